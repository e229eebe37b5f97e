package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"concierge/internal/api"
)

func newTicketsCommand(ctx *commandContext) *cobra.Command {
	ticketsCmd := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect open tickets",
	}

	var jsonOutput bool
	var offline bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List open tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := ctx.openRecordsSource(cmd.Context(), offline)
			if err != nil {
				return err
			}
			defer source.Close()

			tickets, err := source.Tickets(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tickets: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, api.TicketListResponse{Tickets: tickets})
			}
			if len(tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No open tickets")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTickets(tickets))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&offline, "offline", false, "Read the store directly instead of asking the daemon")

	ticketsCmd.AddCommand(listCmd)
	return ticketsCmd
}

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect tasks",
	}

	var jsonOutput bool
	var offline bool
	var statusFlag string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseTaskStatus(statusFlag)
			if err != nil {
				return err
			}
			source, err := ctx.openRecordsSource(cmd.Context(), offline)
			if err != nil {
				return err
			}
			defer source.Close()

			tasks, err := source.Tasks(cmd.Context(), status)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, api.TaskListResponse{Tasks: tasks})
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTasks(tasks))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (open, completed, all)")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&offline, "offline", false, "Read the store directly instead of asking the daemon")

	tasksCmd.AddCommand(listCmd)
	return tasksCmd
}

func renderTickets(tickets []api.Ticket) string {
	rows := make([][]string, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, []string{t.ChannelName, t.Reason, userLabel(t.OpenedBy), t.CreatedAt, t.ChannelID})
	}
	return renderTable(
		[]string{"Channel", "Reason", "Opened By", "Created", "Channel ID"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func renderTasks(tasks []api.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.Itoa(t.Number),
			t.Title,
			userLabel(t.AssigneeID),
			t.Due,
			t.Status,
			yesNo(t.OverdueNotified),
			strconv.Itoa(len(t.Reassignments)),
		})
	}
	return renderTable(
		[]string{"#", "Title", "Assignee", "Due", "Status", "Overdue", "Reassigned"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func userLabel(id string) string {
	if id == "" {
		return "-"
	}
	return "<@" + id + ">"
}
