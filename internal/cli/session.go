package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session management commands",
	}

	cmd.AddCommand(newSessionStartCmd())
	cmd.AddCommand(newSessionHeartbeatCmd())
	cmd.AddCommand(newSessionEndCmd())

	return cmd
}

func newSessionStartCmd() *cobra.Command {
	var account, device string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session (signs out any other live session for the account)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if device == "" {
				device, _ = os.Hostname()
			}

			req := map[string]string{"account_id": account, "device": device}
			var result Session

			if err := client.Post("/api/v1/sessions", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveCredentials(result.AccountID, result.Token); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account ID (required)")
	cmd.Flags().StringVar(&device, "device", "", "Device label (defaults to hostname)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newSessionHeartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Check the saved session is still the live one",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session

			if err := client.Post("/api/v1/sessions/heartbeat", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/sessions"); err != nil {
				return err
			}

			if err := cfg.ClearCredentials(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Session ended")
			return nil
		},
	}
}
