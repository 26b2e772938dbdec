// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dbmirror/internal/config"
	"dbmirror/internal/logging"
	"dbmirror/internal/output"
	"dbmirror/internal/sync"
)

var version = "dev"

// runFlags are the flags shared by the sync and plan commands.
type runFlags struct {
	configFile      string
	envFile         string
	format          string
	outFile         string
	rollbackOutFile string
	installTriggers bool
	replaceTriggers bool
	timeout         time.Duration
}

func printInfo(format string, msg string) {
	if strings.EqualFold(strings.TrimSpace(format), string(output.FormatJSON)) {
		_, _ = fmt.Fprintln(os.Stderr, msg)
		return
	}
	fmt.Println(msg)
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "dbmirror",
		Short:        "MySQL origin to destination table sync",
		SilenceUsage: true,
	}

	var syncFlags runFlags
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the destination database with the origin",
		Long: `Sync makes the destination database hold the same set of tables as the origin.

Tables missing on the destination are created from the origin definition and filled with
the origin rows. Destination tables that do not exist on the origin are dropped. Tables
present on both sides are left untouched.

With --install-triggers, insert, update and delete triggers are installed on every origin
table so later writes are replicated to the destination.

Examples:
  dbmirror sync --config dbmirror.toml
  dbmirror sync --config dbmirror.yaml --install-triggers --format summary
  DBMIRROR_ORIGIN_PASSWORD=secret dbmirror sync --config dbmirror.toml --env-file .env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, syncFlags, false)
		},
	}
	addRunFlags(syncCmd, &syncFlags)

	var planFlags runFlags
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the statements a sync would run without changing anything",
		Long: `Plan connects to both databases, computes the table differences and prints every
statement a sync would execute, together with preflight warnings for destructive and
blocking statements. Nothing is written to either database.

Examples:
  dbmirror plan --config dbmirror.toml --format sql -o plan.sql
  dbmirror plan --config dbmirror.toml --install-triggers -r rollback.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, planFlags, true)
		},
	}
	addRunFlags(planCmd, &planFlags)
	planCmd.Flags().StringVarP(&planFlags.rollbackOutFile, "rollback-output", "r", "", "Output file for generated rollback SQL (run separately)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dbmirror %s\n", version)
		},
	}

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to a .toml, .yaml or .yml config file")
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "Dotenv file loaded before reading DBMIRROR_ variables")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: human, json, summary or sql")
	cmd.Flags().StringVarP(&f.outFile, "output", "o", "", "Output file for the report")
	cmd.Flags().BoolVarP(&f.installTriggers, "install-triggers", "t", false, "Install replication triggers on every origin table")
	cmd.Flags().BoolVar(&f.replaceTriggers, "replace-triggers", false, "Drop existing triggers of the same name before creating them")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Run timeout, e.g. 300s; 0 means no deadline (overrides sync.timeout)")
}

func run(cmd *cobra.Command, f runFlags, dryRun bool) error {
	formatter, err := output.NewFormatter(f.format)
	if err != nil {
		return err
	}

	if f.envFile != "" {
		if err := config.LoadEnvFile(f.envFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("install-triggers") {
		cfg.Sync.InstallOriginTriggers = f.installTriggers
	}
	if cmd.Flags().Changed("replace-triggers") {
		cfg.Sync.ReplaceTriggers = f.replaceTriggers
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Sync.Timeout = f.timeout
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Sync.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Sync.Timeout)
		defer cancel()
	}

	orchestrator := sync.New(sync.Options{
		Origin:                 cfg.Origin,
		Destination:            cfg.Destination,
		InstallOriginTriggers:  cfg.Sync.InstallOriginTriggers,
		ReplaceTriggers:        cfg.Sync.ReplaceTriggers,
		DryRun:                 dryRun,
		FallbackDate:           cfg.Sync.FallbackDate,
		AllowUnsafeIdentifiers: cfg.Sync.AllowUnsafeIdentifiers,
		Logger:                 logger,
	})
	report, runErr := orchestrator.Run(ctx)

	if err := writeReport(formatter, f, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if dryRun && f.rollbackOutFile != "" && report != nil {
		if err := writeFile(f.rollbackOutFile, output.FormatRollbackSQL(report.Plan)); err != nil {
			return fmt.Errorf("failed to write rollback output: %w", err)
		}
		printInfo(f.format, fmt.Sprintf("Rollback saved to %s", f.rollbackOutFile))
	}
	return runErr
}

func writeReport(formatter output.Formatter, f runFlags, report *sync.Report) error {
	if f.outFile == "" {
		return output.WriteReport(os.Stdout, formatter, report)
	}
	formatted, err := formatter.FormatReport(report)
	if err != nil {
		return err
	}
	if err := writeFile(f.outFile, formatted); err != nil {
		return err
	}
	printInfo(f.format, fmt.Sprintf("Output saved to %s", f.outFile))
	return nil
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
