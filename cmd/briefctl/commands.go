package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/briefs-backend/internal/app"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/services"
)

// backend is the slice of the app the CLI drives.
type backend struct {
	Briefs    services.BriefVersionService
	Reconcile services.ReconcileService
	Close     func()
}

type opener func() (*backend, error)

// errViolations makes `check` exit non-zero without printing a second error line.
var errViolations = errors.New("invariant violations found")

func exitCode(err error) int {
	if errors.Is(err, errViolations) {
		return 2
	}
	return 1
}

// openApp wires storage and services from the same config as the server, without the
// background worker or HTTP listener.
func openApp() (*backend, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := app.LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Reconcile.Interval = 0
	cfg.Metrics.Enabled = false
	a, err := app.NewWithConfig(log, cfg)
	if err != nil {
		return nil, err
	}
	return &backend{
		Briefs:    a.Services.BriefVersion,
		Reconcile: a.Services.Reconcile,
		Close:     a.Close,
	}, nil
}

func newRootCmd(open opener) *cobra.Command {
	var configFile string
	rootCmd := &cobra.Command{
		Use:           "briefctl",
		Short:         "Operate on brief version families",
		Long:          `briefctl runs reconciliation and consistency checks against the brief store the server uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (overrides CONFIG_FILE)")

	rootCmd.AddCommand(newReconcileCmd(open), newCheckCmd(open), newHistoryCmd(open))
	return rootCmd
}

func newReconcileCmd(open opener) *cobra.Command {
	var opts services.ReconcileOptions
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair families that do not have exactly one active published version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open()
			if err != nil {
				return err
			}
			defer b.Close()

			sum, err := b.Reconcile.Reconcile(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report decisions without writing")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "families repaired in parallel (0 uses the configured value)")
	return cmd
}

func newCheckCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List invariant violations; exits 2 when any are found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open()
			if err != nil {
				return err
			}
			defer b.Close()

			violations, err := b.Reconcile.Check(cmd.Context())
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			out := map[string]interface{}{
				"consistent": len(violations) == 0,
				"violations": violations,
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if len(violations) > 0 {
				return errViolations
			}
			return nil
		},
	}
}

func newHistoryCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "history [root-id]",
		Short: "Print every version of a family in version order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid root id %q: %w", args[0], err)
			}
			b, err := open()
			if err != nil {
				return err
			}
			defer b.Close()

			versions, err := b.Briefs.ListFamilyHistory(cmd.Context(), rootID)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), versions)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
