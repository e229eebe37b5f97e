package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"concierge/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()

			if !direct {
				client, err := ctx.apiClient()
				if err == nil {
					resp, err := client.TestNotification(cmd.Context())
					if !daemonUnreachable(err) {
						if resp.Message != "" {
							fmt.Fprintln(out, resp.Message)
						}
						if err != nil {
							return wrapAPIError(err, cfg.API.Bind)
						}
						return nil
					}
				}
			}

			// No daemon to ask; publish from this process.
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(out, "ntfy topic not configured")
				return nil
			}
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
	cmd.Flags().BoolVar(&direct, "direct", false, "Publish from the CLI instead of the running daemon")
	return cmd
}
