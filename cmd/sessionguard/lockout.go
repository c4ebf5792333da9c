package main

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/sessionguard"
	"github.com/spf13/cobra"
)

func newLockoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lockout",
		Short: "Inspect and reset failed-login lockouts",
	}
	cmd.AddCommand(
		newLockoutStatusCmd(a),
		newLockoutFailCmd(a),
		newLockoutClearCmd(a),
		newLockoutResetCmd(a),
	)
	return cmd
}

type lockoutStatusView struct {
	Account   int64  `json:"account"`
	Locked    bool   `json:"locked"`
	Remaining string `json:"remaining,omitempty"`
	Attempts  int    `json:"attempts"`
}

func newLockoutStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <account>",
		Short: "Show the attempt counter and lockout flag of an account",
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

			status, err := env.engine.LockoutStatus(cmd.Context(), account)
			if err != nil {
				return err
			}
			view := lockoutStatusView{Account: account, Locked: status.Locked, Attempts: status.Attempts}
			if status.Locked {
				view.Remaining = status.Remaining.String()
			}
			return writeJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newLockoutFailCmd(a *app) *cobra.Command {
	var ip string
	cmd := &cobra.Command{
		Use:   "fail <account>",
		Short: "Record one failed login attempt",
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

			err = env.engine.RecordFailedAttempt(cmd.Context(), account, ip)
			switch {
			case errors.Is(err, sessionguard.ErrAccountLocked):
				fmt.Fprintf(cmd.OutOrStdout(), "Account %d is locked\n", account)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded failed attempt for account %d\n", account)
			return nil
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "", "client IP attached to a lockout audit event")
	return cmd
}

func newLockoutClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <account>",
		Short: "Delete the failed-attempt counter, keeping any active lockout",
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

			if err := env.engine.ClearAttempts(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared failed attempts of account %d\n", account)
			return nil
		},
	}
}

func newLockoutResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <account>",
		Short: "Delete both the failed-attempt counter and the lockout",
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

			if err := env.engine.ResetLockout(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset lockout of account %d\n", account)
			return nil
		},
	}
}
