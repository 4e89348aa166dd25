package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/reportcore/internal/config"
	"github.com/roach88/reportcore/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config overrides loading from ConfigPath and the environment (for
	// testing). Loaded on first use when nil.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the reportcore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reportcore",
		Short: "reportcore - analytical queries over report sections",
		Long: `Validate, run and serve reports: sections with declarative data queries
(filter, aggregate, sort, paginate) resolved in dependency order.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewDatasetsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// config returns the effective configuration, loading it once.
func (o *RootOptions) config() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig+": failed to load config", err)
	}
	o.Config = cfg
	return cfg, nil
}

// logger builds the command logger on w. --verbose forces debug level.
func (o *RootOptions) logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lopts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if o.Verbose {
		lopts.Level = "debug"
	}
	logger, err := logging.Init(w, lopts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig+": failed to set up logging", err)
	}
	return logger, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keeps JSON on stdout clean
		Verbose:   o.Verbose,
	}
}

// setup resolves the configuration, installs the logger on stderr and
// builds the output formatter. Config errors are reported through the
// formatter.
func (o *RootOptions) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, *OutputFormatter, error) {
	f := o.formatter(cmd)
	cfg, err := o.config()
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, nil, nil, err
	}
	logger, err := o.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, nil, nil, err
	}
	return cfg, logger, f, nil
}
