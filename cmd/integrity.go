package cmd

import (
	"encoding/json"
	"fmt"

	"graph-store/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Run all integrity checks",
	Long:  `Checks the bucket layout, scans every entity for duplicate identifiers and verifies the database schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIntegrity(cmd, func(svc *integrity.Service, logg *zap.Logger) error {
			report, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

// structureCmd represents the integrity structure command
var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Check and fix the bucket folder structure",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIntegrity(cmd, func(svc *integrity.Service, logg *zap.Logger) error {
			ctx := cmd.Context()
			logg.Info("Checking folder structure...")
			missing, err := svc.CheckStructure(ctx)
			if err != nil {
				return fmt.Errorf("structure check failed: %w", err)
			}

			if len(missing) == 0 {
				logg.Info("Structure is intact.")
				return nil
			}
			logg.Warn("Missing folders detected", zap.Strings("missing", missing))
			if !fixFlag {
				logg.Info("Run with --fix to create missing folders.")
				return nil
			}

			logg.Info("Fixing missing folders...")
			if err := svc.FixStructure(ctx, missing); err != nil {
				return fmt.Errorf("failed to fix structure: %w", err)
			}
			logg.Info("Structure fixed successfully.")
			return nil
		})
	},
}

// duplicatesCmd represents the integrity duplicates command
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates [entity...]",
	Short: "Report identifiers stored more than once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIntegrity(cmd, func(svc *integrity.Service, logg *zap.Logger) error {
			report, err := svc.CheckDuplicates(cmd.Context(), args...)
			if err != nil {
				return err
			}
			for entity, groups := range report.Entities {
				for _, g := range groups {
					logg.Warn("Duplicate identifier", zap.String("entity", entity), zap.String("uid", g.UID), zap.Strings("ids", g.IDs))
				}
			}
			if report.Clean {
				logg.Info("No duplicate identifiers found.")
			}
			return nil
		})
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the objects table against its model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIntegrity(cmd, func(svc *integrity.Service, logg *zap.Logger) error {
			report, err := svc.CheckSchema()
			if err != nil {
				return fmt.Errorf("schema check failed: %w", err)
			}
			if report.Matched {
				logg.Info("Schema matches the expected definition.", zap.String("table", report.Table))
				return nil
			}
			if len(report.MissingColumns) > 0 {
				logg.Warn("Missing Columns", zap.String("table", report.Table), zap.Strings("columns", report.MissingColumns))
			}
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(structureCmd, duplicatesCmd, schemaCmd)

	structureCmd.Flags().BoolVar(&fixFlag, "fix", false, "Fix missing folders")
}

func withIntegrity(cmd *cobra.Command, fn func(*integrity.Service, *zap.Logger) error) error {
	env, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	svc := integrity.NewService(env.storage, env.cfg.Storage.Bucket, env.logger, env.backend, env.db, env.model)
	return fn(svc, env.logger)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
