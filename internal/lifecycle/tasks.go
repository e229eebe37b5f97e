package lifecycle

import (
	"context"
	"errors"
	"strings"

	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/services"
)

// TaskRequest holds the inputs of the task command.
type TaskRequest struct {
	Title       string
	Description string
	AssigneeID  string
	// Due is a time of day formatted HH:MM:SS.
	Due string
}

// ReassignRequest holds the inputs of the Re-Assign modal.
type ReassignRequest struct {
	Reason string
	// NewAssigneeID is optional. When empty the reassignment is announced
	// without changing the stored assignee.
	NewAssigneeID string
}

// CreateTask validates req, creates the private task channel, stores the task,
// and posts the task card. Nothing is created when validation or
// authorization fails.
func (s *Service) CreateTask(ctx context.Context, actor Actor, req TaskRequest) (records.Task, error) {
	ctx, logger := s.transitionContext(ctx, "create_task", "")

	if err := s.authorizeTaskCreation(ctx, actor); err != nil {
		logger.Info("task creation denied", logging.String("user_id", actor.UserID))
		return records.Task{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return records.Task{}, services.Wrap(services.ErrValidation, component, "create_task", "a title is required", nil)
	}
	assignee := strings.TrimSpace(req.AssigneeID)
	if assignee == "" {
		return records.Task{}, services.Wrap(services.ErrValidation, component, "create_task", "an assignee is required", nil)
	}
	due, err := records.ParseTimeOfDay(req.Due)
	if err != nil {
		return records.Task{}, services.Wrap(services.ErrValidation, component, "create_task", "invalid time format. Please use HH:MM:SS.", nil)
	}

	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	sequence := s.registry.NextTaskSequence()
	channel, err := s.provider.CreateChannel(ctx, provider.ChannelSpec{
		Name:       records.TaskChannelName(actorLabel(actor), sequence),
		Category:   s.settings.TaskCategory,
		Overwrites: taskOverwrites(actor.UserID, assignee),
	})
	if err != nil {
		return records.Task{}, services.Wrap(services.ErrExternal, component, "create_task", "channel creation failed", err)
	}
	ctx = services.WithResourceID(ctx, channel.ID)
	logger = logging.WithContext(ctx, s.logger)

	var task records.Task
	var saveErr error
	err = s.registry.Exclusive(channel.ID, func() error {
		task, saveErr = s.registry.CreateTask(ctx, records.Task{
			Sequence:    sequence,
			ResourceID:  channel.ID,
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			AssigneeID:  assignee,
			CreatorID:   actor.UserID,
			Due:         due,
			Status:      records.TaskOpen,
			CreatedAt:   s.now(),
		})
		if saveErr != nil && !services.Degraded(saveErr) {
			return saveErr
		}
		return nil
	})
	if err != nil {
		if delErr := s.provider.DeleteChannel(ctx, channel.ID); delErr != nil && !errors.Is(delErr, provider.ErrChannelNotFound) {
			logging.WarnWithContext(logger, "orphan task channel not removed", "task_channel_orphaned", logging.Error(delErr))
		}
		return records.Task{}, err
	}

	if err := s.provider.SendMessage(ctx, task.ResourceID, taskMessage(task)); err != nil {
		logging.WarnWithContext(logger, "task card message failed", "task_message_failed", logging.Error(err))
		return task, services.Wrap(services.ErrPartial, component, "create_task", "task card could not be posted", err)
	}

	logger.Info("task created",
		logging.String(logging.FieldEventType, "task_created"),
		logging.Int("number", task.Sequence),
		logging.String("assignee_id", task.AssigneeID),
		logging.String("due", task.Due.String()),
	)
	return task, saveErr
}

func taskOverwrites(creatorID, assigneeID string) []provider.Overwrite {
	member := provider.PermView | provider.PermSend | provider.PermAttach | provider.PermHistory
	overwrites := []provider.Overwrite{
		{Kind: provider.TargetEveryone, Deny: provider.PermView},
		{Kind: provider.TargetSelf, Allow: member},
		{Kind: provider.TargetMember, ID: creatorID, Allow: member},
	}
	if assigneeID != creatorID {
		overwrites = append(overwrites, provider.Overwrite{Kind: provider.TargetMember, ID: assigneeID, Allow: member})
	}
	return overwrites
}

// RequestReview posts the review request with the Re-Assign and Complete
// affordances. Any channel participant may request a review.
func (s *Service) RequestReview(ctx context.Context, actor Actor, resourceID string) error {
	ctx, logger := s.transitionContext(ctx, "request_review", resourceID)

	task, err := s.registry.Task(resourceID)
	if err != nil {
		return err
	}
	if !task.IsOpen() {
		return services.Wrap(services.ErrConflict, component, "request_review", "task already completed", nil)
	}
	if err := s.provider.SendMessage(ctx, resourceID, reviewRequestMessage(task, actor)); err != nil {
		return services.Wrap(services.ErrExternal, component, "request_review", "review request failed", err)
	}
	logger.Info("task review requested", logging.String("user_id", actor.UserID))
	return nil
}

// Reassign records and announces a reassignment. With a new assignee the
// stored assignee changes, the new assignee gains channel access, and the
// change is appended to the task's reassignment history.
func (s *Service) Reassign(ctx context.Context, actor Actor, resourceID string, req ReassignRequest) (records.Task, error) {
	ctx, logger := s.transitionContext(ctx, "reassign_task", resourceID)

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return records.Task{}, services.Wrap(services.ErrValidation, component, "reassign_task", "a reason is required", nil)
	}
	newAssignee := strings.TrimSpace(req.NewAssigneeID)

	var result records.Task
	var saveErr error
	var changed bool
	err := s.registry.Exclusive(resourceID, func() error {
		task, err := s.registry.Task(resourceID)
		if err != nil {
			return err
		}
		if err := s.authorizeReassign(ctx, actor, task.CreatorID); err != nil {
			return err
		}
		if !task.IsOpen() {
			return services.Wrap(services.ErrConflict, component, "reassign_task", "task already completed", nil)
		}

		changed = newAssignee != "" && newAssignee != task.AssigneeID
		if changed {
			if err := s.provider.AllowMember(ctx, resourceID, newAssignee); err != nil {
				return services.Wrap(services.ErrExternal, component, "reassign_task", "granting channel access failed", err)
			}
			task, saveErr = s.registry.UpdateTask(ctx, resourceID, func(t *records.Task) error {
				t.Reassignments = append(t.Reassignments, records.Reassignment{
					From:   t.AssigneeID,
					To:     newAssignee,
					By:     actor.UserID,
					Reason: reason,
					At:     s.now(),
				})
				t.AssigneeID = newAssignee
				return nil
			})
			if saveErr != nil && !services.Degraded(saveErr) {
				return saveErr
			}
		}

		if err := s.provider.SendMessage(ctx, resourceID, reassignedMessage(task, actor, reason, changed)); err != nil {
			return services.Wrap(services.ErrExternal, component, "reassign_task", "announcement failed", err)
		}
		result = task
		return nil
	})
	if err != nil {
		return records.Task{}, err
	}

	logger.Info("task reassigned",
		logging.String(logging.FieldEventType, "task_reassigned"),
		logging.String("by", actor.UserID),
		logging.String("assignee_id", result.AssigneeID),
		logging.Bool("assignee_changed", changed),
	)
	return result, saveErr
}

// Complete marks the task completed, posts the completion summary, acks the
// actor, and deletes the task channel. Unknown ids fail with NotFound before
// anything is sent or deleted.
func (s *Service) Complete(ctx context.Context, actor Actor, resourceID string, ack Ack) error {
	ctx, logger := s.transitionContext(ctx, "complete_task", resourceID)

	var completed records.Task
	var saveErr, summaryErr error
	err := s.registry.Exclusive(resourceID, func() error {
		current, err := s.registry.Task(resourceID)
		if err != nil {
			return err
		}
		if !current.IsOpen() {
			return services.Wrap(services.ErrConflict, component, "complete_task", "task already completed", nil)
		}

		at := s.now()
		completed, saveErr = s.registry.UpdateTask(ctx, resourceID, func(t *records.Task) error {
			t.Status = records.TaskCompleted
			t.CompletedBy = actor.UserID
			t.CompletedAt = at
			return nil
		})
		if saveErr != nil && !services.Degraded(saveErr) {
			return saveErr
		}

		if err := s.provider.SendMessage(ctx, s.settings.CompletionChannelID, completionMessage(completed, at)); err != nil {
			logging.WarnWithContext(logger, "completion summary failed", "completion_summary_failed",
				logging.String(logging.FieldErrorHint, "check completion_channel_id and bot permissions"),
				logging.Error(err),
			)
			summaryErr = services.Wrap(services.ErrPartial, component, "complete_task", "completion summary could not be posted", err)
		}

		s.acknowledge(ctx, logger, ack, CompletedReply)

		if err := s.provider.DeleteChannel(ctx, resourceID); err != nil {
			if !errors.Is(err, provider.ErrChannelNotFound) {
				return services.Wrap(services.ErrPartial, component, "complete_task", "task completed but channel deletion failed", err)
			}
			logger.Debug("task channel already gone")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("task completed",
		logging.String(logging.FieldEventType, "task_completed"),
		logging.Int("number", completed.Sequence),
		logging.String("completed_by", actor.UserID),
	)
	s.publish(ctx, logger, notifications.EventTaskCompleted, notifications.Payload{
		"number":      completed.Sequence,
		"title":       completed.Title,
		"completedBy": actorLabel(actor),
	})
	if summaryErr != nil {
		return summaryErr
	}
	return saveErr
}

// SubmitOverdueReason posts actor's explanation into the task channel. The
// task's status is unchanged.
func (s *Service) SubmitOverdueReason(ctx context.Context, actor Actor, resourceID, reason string) error {
	ctx, logger := s.transitionContext(ctx, "overdue_reason", resourceID)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return services.Wrap(services.ErrValidation, component, "overdue_reason", "a reason is required", nil)
	}
	if _, err := s.registry.Task(resourceID); err != nil {
		return err
	}
	if err := s.provider.SendMessage(ctx, resourceID, overdueReasonMessage(actor, reason)); err != nil {
		return services.Wrap(services.ErrExternal, component, "overdue_reason", "reason could not be posted", err)
	}
	logger.Info("overdue reason submitted", logging.String("user_id", actor.UserID))
	return nil
}
