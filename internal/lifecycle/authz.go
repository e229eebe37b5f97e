package lifecycle

import (
	"context"
	"slices"

	"concierge/internal/services"
)

// hasAnyRole reports whether the member holds one of roles. An empty role
// list authorizes nobody.
func (s *Service) hasAnyRole(ctx context.Context, userID string, roles []string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	held, err := s.provider.MemberRoles(ctx, userID)
	if err != nil {
		return false, services.Wrap(services.ErrExternal, component, "member_roles", "role lookup failed", err)
	}
	for _, role := range held {
		if role != "" && slices.Contains(roles, role) {
			return true, nil
		}
	}
	return false, nil
}

// authorizeStaff allows only holders of the staff role. The denial never
// names the roles involved.
func (s *Service) authorizeStaff(ctx context.Context, actor Actor, operation string) error {
	ok, err := s.hasAnyRole(ctx, actor.UserID, []string{s.settings.StaffRoleID})
	if err != nil {
		return err
	}
	if !ok {
		return services.Wrap(services.ErrUnauthorized, component, operation, "staff role required", nil)
	}
	return nil
}

// authorizeTaskCreation allows administrators and holders of a task role.
func (s *Service) authorizeTaskCreation(ctx context.Context, actor Actor) error {
	if actor.Administrator {
		return nil
	}
	ok, err := s.hasAnyRole(ctx, actor.UserID, s.settings.TaskRoleIDs)
	if err != nil {
		return err
	}
	if !ok {
		return services.Wrap(services.ErrUnauthorized, component, "create_task", "task role required", nil)
	}
	return nil
}

// authorizeReassign allows administrators, staff, and the task's creator.
func (s *Service) authorizeReassign(ctx context.Context, actor Actor, creatorID string) error {
	if actor.Administrator || (creatorID != "" && actor.UserID == creatorID) {
		return nil
	}
	return s.authorizeStaff(ctx, actor, "reassign_task")
}
