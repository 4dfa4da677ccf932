package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/topbeat/reconcile-cli/internal/model"
)

var (
	importSource string
	importFile   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a source export file (CSV or XLSX)",
	Long:  "Streams one export file into the raw tables. Re-importing the same file upserts by natural key, so corrected exports can be reloaded safely.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		source, err := parseSource(importSource)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(cmd.Context()); err != nil {
			return err
		}

		batch, err := newImporter(env).Run(cmd.Context(), source, importFile)
		if err != nil {
			return err
		}

		printBatch(batch)
		return nil
	},
}

func printBatch(b *model.ImportBatch) {
	fmt.Printf("batch %s (%s) %s\n", b.ID, b.Source, b.Status)
	fmt.Printf("  rows: %d total, %d new, %d updated, %d failed\n",
		b.TotalRows, b.NewRows, b.UpdatedRows, b.FailedRows)
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "source system: storefront, logistics, payments, attendance")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the export file")
	_ = importCmd.MarkFlagRequired("source")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
