package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reportcore/internal/report"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <report>",
		Short: "Validate a report without executing it",
		Long: `Validate a report definition (.yaml, .json or .cue) without fetching data.

Checks data source declarations, every section query, references between
sections and data sources, and the dependency graph for cycles. All
problems are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	def, err := loadReport(formatter, path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded report %q: %d data source(s), %d section(s)", def.Name, len(def.DataSources), len(def.Sections))

	result := checkView{Report: def.Name, CheckResult: report.Check(def)}
	if !result.Valid {
		if err := formatter.Failure(ErrCodeInvalid, result.Errors[0].Error(), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: validation failed with %d error(s)", ErrCodeInvalid, len(result.Errors)))
	}
	return formatter.Success(result)
}

type checkView struct {
	Report string `json:"report"`
	report.CheckResult
}

func (v checkView) writeText(w io.Writer) error {
	if v.Valid {
		fmt.Fprintf(w, "✓ Report %q valid\n", v.Report)
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, issue := range v.Errors {
			fmt.Fprintf(w, "  %s\n", issue.Error())
		}
	}
	if len(v.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, issue := range v.Warnings {
			fmt.Fprintf(w, "  %s\n", issue.Error())
		}
	}
	if len(v.Order) > 0 {
		fmt.Fprintf(w, "Execution order: %v\n", v.Order)
	}
	return nil
}
