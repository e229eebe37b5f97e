// Package notifications sends operator alerts to an ntfy topic.
//
// Alerts cover events an operator may want outside the chat server: overdue
// tasks, completions, closed tickets, and saves that failed. When no topic is
// configured NewService returns a no-op implementation, so callers never
// branch on whether notifications are enabled. Delivery failures are returned
// to the caller, which logs them; they never fail a transition.
package notifications
