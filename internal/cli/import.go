package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/record"
	"github.com/roach88/reportcore/internal/store"
)

// ImportOptions holds flags for the import and datasets commands.
type ImportOptions struct {
	*RootOptions
	Database string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <dataset-id> <rows.json>",
		Short: "Import JSON rows into a dataset database",
		Long: `Store rows as a dataset in a SQLite database, replacing any previous
rows under the same id. The file holds a JSON array of objects, or an object
with a "rows" array. Use "-" to read standard input.

Reports reference the dataset through a sqlite data source:

  dataSources:
    - {id: orders, kind: sqlite, path: ./reportcore.db}

Example:
  reportcore import --db ./reportcore.db orders ./orders.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, id, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeLoad+": failed to open rows", err)
		}
		defer f.Close()
		in = f
	}

	rows, err := record.DecodeRows(in)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeLoad+": failed to decode rows", err)
	}

	src, err := datasource.OpenSQLite(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
	}
	defer src.Close()

	if err := src.Import(cmd.Context(), id, rows); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": import failed", err)
	}
	formatter.VerboseLog("Imported %d row(s) into %s", len(rows), opts.Database)
	return formatter.Success(importView{Dataset: id, Rows: len(rows)})
}

type importView struct {
	Dataset string `json:"dataset"`
	Rows    int    `json:"rows"`
}

func (v importView) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ Imported %d row(s) into dataset %q\n", v.Rows, v.Dataset)
	return err
}

// NewDatasetsCommand creates the datasets command.
func NewDatasetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "datasets",
		Short:         "List the datasets of a database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasets(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runDatasets(opts *ImportOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": database not found", err)
	}
	src, err := datasource.OpenSQLite(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
	}
	defer src.Close()

	infos, err := src.Datasets(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStore+": failed to list datasets", err)
	}
	return formatter.Success(datasetsView(infos))
}

type datasetsView []store.DatasetInfo

func (v datasetsView) writeText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "(no datasets)")
		return err
	}
	for _, d := range v {
		fmt.Fprintf(w, "%-24s %6d rows  imported %s\n", d.ID, d.RowCount, d.ImportedAt.Format(time.RFC3339))
	}
	return nil
}
