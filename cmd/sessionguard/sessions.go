package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MrEthical07/sessionguard/internal/accounts"
	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/MrEthical07/sessionguard/session"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and revoke account sessions",
	}
	cmd.AddCommand(
		newSessionsAddCmd(a),
		newSessionsListCmd(a),
		newSessionsCountCmd(a),
		newSessionsRevokeCmd(a),
		newSessionsRevokeAllCmd(a),
		newSessionsWipeCmd(a),
	)
	return cmd
}

func newSessionsAddCmd(a *app) *cobra.Command {
	var (
		sessionUUID string
		ip          string
		browser     string
		platform    string
		ttl         time.Duration
	)
	cmd := &cobra.Command{
		Use:   "add <account> <session-id>",
		Short: "Create a session record and register it with the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			env, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if sessionUUID == "" {
				sessionUUID = uuid.NewString()
			}
			now := time.Now()
			record := &session.Record{
				Meta: &session.Meta{
					Datetime: now.UnixMilli(),
					IP:       ip,
					UUID:     sessionUUID,
					Browser:  browser,
					Platform: platform,
				},
				Passport: &session.Passport{User: session.NewAccountRef(account)},
			}
			store := session.NewStore(env.redis, env.engine.Config().Session.KeyPrefix)
			if err := store.Save(cmd.Context(), args[1], record, ttl); err != nil {
				return err
			}
			index := accounts.NewRedisIndex(kv.New(env.redis), accounts.JoinDateKey)
			if err := index.Add(cmd.Context(), account, float64(now.UnixMilli())); err != nil {
				return err
			}
			if err := env.engine.AddSession(cmd.Context(), account, args[1], sessionUUID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added session '%s' to account %d\n", args[1], account)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionUUID, "uuid", "", "device UUID (generated when empty)")
	cmd.Flags().StringVar(&ip, "ip", "", "client IP recorded on the session")
	cmd.Flags().StringVar(&browser, "browser", "", "client browser recorded on the session")
	cmd.Flags().StringVar(&platform, "platform", "", "client platform recorded on the session")
	cmd.Flags().DurationVar(&ttl, "ttl", 14*24*time.Hour, "session record lifetime")
	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var (
		current string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list <account>",
		Short: "List an account's live sessions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			env, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			views, err := env.engine.ListSessionsLimit(cmd.Context(), account, current, limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), views)
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "session id to flag as the caller's own")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum sessions to list (0 uses the configured limit)")
	return cmd
}

func newSessionsCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <account>",
		Short: "Print the number of live sessions of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			env, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			n, err := env.engine.ActiveSessionCount(cmd.Context(), account)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newSessionsRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <account> <session-id>...",
		Short: "Revoke one or more sessions of an account",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			env, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.engine.RevokeSession(cmd.Context(), account, args[1:]...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s) of account %d\n", len(args)-1, account)
			return nil
		},
	}
}

func newSessionsRevokeAllCmd(a *app) *cobra.Command {
	var except string
	cmd := &cobra.Command{
		Use:   "revoke-all <account>...",
		Short: "Revoke every session of the listed accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				account, err := parseAccount(arg)
				if err != nil {
					return err
				}
				ids = append(ids, account)
			}
			env, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.engine.RevokeAllSessions(cmd.Context(), ids, except); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked all sessions of %d account(s)\n", len(ids))
			return nil
		},
	}
	cmd.Flags().StringVar(&except, "except", "", "session id to keep")
	return cmd
}

func newSessionsWipeCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Destroy every session of every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to wipe all sessions without --yes")
			}
			env, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.engine.DeleteAllSessions(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All sessions wiped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}

func parseAccount(s string) (int64, error) {
	account, err := strconv.ParseInt(s, 10, 64)
	if err != nil || account <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return account, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
