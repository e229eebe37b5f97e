package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"concierge/internal/api"
	"concierge/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			status, err := client.Status(reqCtx)
			running := err == nil
			if err != nil && !daemonUnreachable(err) {
				return wrapAPIError(err, cfg.API.Bind)
			}

			if jsonOutput {
				if !running {
					status = api.DaemonStatus{Running: false}
				}
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			if running {
				lines = daemonLines(status, colorize)
			} else {
				lines = offlineLines(preflight.RunAll(cmd.Context(), cfg), colorize)
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
