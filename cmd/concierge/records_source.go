package main

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/records"
	"concierge/internal/store"
)

// recordsSource lists tickets and tasks either from the running daemon or
// from the store on disk.
type recordsSource interface {
	Tickets(ctx context.Context) ([]api.Ticket, error)
	Tasks(ctx context.Context, status records.TaskStatus) ([]api.Task, error)
	Close() error
}

type recordsAPIAdapter struct {
	client *api.Client
}

func (a *recordsAPIAdapter) Tickets(ctx context.Context) ([]api.Ticket, error) {
	return a.client.Tickets(ctx)
}

func (a *recordsAPIAdapter) Tasks(ctx context.Context, status records.TaskStatus) ([]api.Task, error) {
	return a.client.Tasks(ctx, string(status))
}

func (a *recordsAPIAdapter) Close() error { return nil }

// recordsStoreAdapter reads a snapshot straight from the backend. It never
// writes, so it is safe beside a running daemon.
type recordsStoreAdapter struct {
	st store.Store
}

func (a *recordsStoreAdapter) Tickets(ctx context.Context) ([]api.Ticket, error) {
	collection, err := a.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromTickets(collection.SortedTickets()), nil
}

func (a *recordsStoreAdapter) Tasks(ctx context.Context, status records.TaskStatus) ([]api.Task, error) {
	collection, err := a.st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromTasks(api.FilterTasks(collection.Tasks, status)), nil
}

func (a *recordsStoreAdapter) Close() error { return a.st.Close() }

// openRecordsSource prefers the daemon API and falls back to the store when
// the daemon is not running or the API is disabled.
func (c *commandContext) openRecordsSource(ctx context.Context, offline bool) (recordsSource, error) {
	cfg := c.configValue()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if !offline {
		if client, err := c.apiClient(); err == nil {
			_, err := client.Status(ctx)
			switch {
			case err == nil:
				return &recordsAPIAdapter{client: client}, nil
			case !daemonUnreachable(err):
				return nil, wrapAPIError(err, cfg.API.Bind)
			}
		}
	}
	return openStoreSource(cfg)
}

func openStoreSource(cfg *config.Config) (recordsSource, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &recordsStoreAdapter{st: st}, nil
}

func parseTaskStatus(value string) (records.TaskStatus, error) {
	switch v := strings.TrimSpace(value); {
	case v == "" || strings.EqualFold(v, "all"):
		return "", nil
	case strings.EqualFold(v, string(records.TaskOpen)):
		return records.TaskOpen, nil
	case strings.EqualFold(v, string(records.TaskCompleted)):
		return records.TaskCompleted, nil
	default:
		return "", fmt.Errorf("unknown task status %q (use open, completed, or all)", value)
	}
}
