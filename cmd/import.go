package cmd

import (
	"fmt"
	"os"

	"graph-store/feature/importer"

	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <entity> <file>",
	Short: "Import a JSON array of records",
	Long: `Reconciles the records of a local JSON file, or with --object of a file
stored in the bucket, into the store: existing objects are updated by their
identifier and missing ones are created.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		entity, source := args[0], args[1]

		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := importer.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		fromBucket, _ := cmd.Flags().GetBool("object")
		strict, _ := cmd.Flags().GetBool("strict")

		env, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := []importer.Option{
			importer.WithThreshold(env.cfg.Store.BatchThreshold),
			importer.WithRecorder(env.metrics),
		}
		if strict {
			opts = append(opts, importer.WithStrict())
		}
		svc := importer.NewService(env.stack, env.model, env.storage, env.cfg.Storage.Bucket, env.logger, opts...)

		var report *importer.Report
		if fromBucket {
			if err := env.requireStorage(); err != nil {
				return err
			}
			report, err = svc.ImportObject(ctx, entity, source, mode)
		} else {
			data, readErr := os.ReadFile(source)
			if readErr != nil {
				return fmt.Errorf("failed to read %s: %w", source, readErr)
			}
			report, err = svc.Import(ctx, entity, data, mode)
		}
		if err != nil {
			return err
		}

		return printJSON(report)
	},
}

func init() {
	RootCmd.AddCommand(importCmd)
	importCmd.Flags().String("mode", "auto", "Reconciliation path: auto, simple or batch")
	importCmd.Flags().Bool("object", false, "Read the file from the bucket instead of the local disk")
	importCmd.Flags().Bool("strict", false, "Reject reentrant reconciliations")
}
