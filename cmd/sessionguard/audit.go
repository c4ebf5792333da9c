package main

import (
	"errors"
	"fmt"
	"time"

	auditpg "github.com/MrEthical07/sessionguard/internal/audit/postgres"
	"github.com/spf13/cobra"
)

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Manage persisted audit events",
	}
	cmd.AddCommand(newAuditMigrateCmd(a), newAuditQueryCmd(a))
	return cmd
}

func newAuditMigrateCmd(a *app) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back) the audit table migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.auditDSN == "" {
				return errors.New("--audit-dsn is required")
			}
			logger, err := a.logger()
			if err != nil {
				return err
			}
			db, err := a.openDB(a.auditDSN)
			if err != nil {
				return fmt.Errorf("opening audit database: %w", err)
			}
			defer db.Close()

			if down {
				return auditpg.MigrateDown(db)
			}
			return auditpg.Migrate(db, logger)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back every migration")
	return cmd
}

func newAuditQueryCmd(a *app) *cobra.Command {
	var (
		account   int64
		eventType string
		since     time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print persisted audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.auditDSN == "" {
				return errors.New("--audit-dsn is required")
			}
			logger, err := a.logger()
			if err != nil {
				return err
			}
			db, err := a.openDB(a.auditDSN)
			if err != nil {
				return fmt.Errorf("opening audit database: %w", err)
			}
			defer db.Close()

			filter := auditpg.QueryFilter{Account: account, Type: eventType, Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			events, err := auditpg.New(db, auditpg.Config{Logger: logger}).Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().Int64Var(&account, "account", 0, "only events of this account")
	cmd.Flags().StringVar(&eventType, "type", "", "only events of this type")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum events (0 uses the default)")
	return cmd
}
