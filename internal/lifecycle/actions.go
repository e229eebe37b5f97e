package lifecycle

import "strings"

// Action ids attached to buttons, menus, and modals. A rendered id may carry
// the resource id after a colon, e.g. "ticket.close:1234".
const (
	ActionTicketReason      = "ticket.reason"
	ActionTicketClose       = "ticket.close"
	ActionTaskReview        = "task.review"
	ActionTaskReassign      = "task.reassign"
	ActionTaskComplete      = "task.complete"
	ActionTaskOverdueReason = "task.overdue_reason"
	actionResourceSeparator = ":"
)

// ActionID renders an action id bound to resourceID.
func ActionID(action, resourceID string) string {
	if resourceID == "" {
		return action
	}
	return action + actionResourceSeparator + resourceID
}

// ParseActionID splits a rendered id into its action and resource id. The
// resource id is empty when the rendered id carries none.
func ParseActionID(id string) (action, resourceID string) {
	action, resourceID, _ = strings.Cut(strings.TrimSpace(id), actionResourceSeparator)
	return action, resourceID
}

// KnownAction reports whether action is handled by this package.
func KnownAction(action string) bool {
	switch action {
	case ActionTicketReason, ActionTicketClose, ActionTaskReview,
		ActionTaskReassign, ActionTaskComplete, ActionTaskOverdueReason:
		return true
	}
	return false
}
