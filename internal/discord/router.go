package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"concierge/internal/lifecycle"
	"concierge/internal/logging"
	"concierge/internal/services"
)

// responder is the subset of *discordgo.Session used to answer interactions.
type responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Router turns interactions into lifecycle transitions.
type Router struct {
	service   *lifecycle.Service
	responder responder
	logger    *slog.Logger
	newID     func() string

	gate     chan struct{}
	gateOnce sync.Once

	// inflight counts running Handle calls. Once draining is set no new
	// call is admitted.
	inflightMu sync.Mutex
	draining   bool
	inflight   sync.WaitGroup
	stopping   chan struct{}
}

// NewRouter builds a router answering through resp, usually the client's
// session.
func NewRouter(svc *lifecycle.Service, resp responder, logger *slog.Logger) *Router {
	return &Router{
		service:   svc,
		responder: resp,
		logger:    logging.NewComponentLogger(logger, "router"),
		newID:     uuid.NewString,
		gate:      make(chan struct{}),
		stopping:  make(chan struct{}),
	}
}

// Register installs the slash commands for the guild and starts receiving
// interactions. Interactions are held until StartDispatch.
func (r *Router) Register(ctx context.Context, c *Client) error {
	appID := c.botUserID()
	if appID == "" {
		return fmt.Errorf("register commands: gateway not ready")
	}
	if _, err := c.session.ApplicationCommandBulkOverwrite(appID, c.guildID, applicationCommands(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	c.session.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		r.Handle(ctx, ic.Interaction)
	})
	r.logger.Info("slash commands registered", logging.Int("count", len(applicationCommands())))
	return nil
}

// StartDispatch releases held interactions. It is safe to call more than
// once.
func (r *Router) StartDispatch() {
	r.gateOnce.Do(func() {
		close(r.gate)
		r.logger.Info("interaction dispatch started")
	})
}

// Dispatching reports whether StartDispatch was called.
func (r *Router) Dispatching() bool {
	select {
	case <-r.gate:
		return true
	default:
		return false
	}
}

// Drain stops admitting interactions and waits for running ones to finish.
// Interactions still held for dispatch are dropped. It returns ctx.Err() if
// ctx ends first.
func (r *Router) Drain(ctx context.Context) error {
	r.inflightMu.Lock()
	if !r.draining {
		r.draining = true
		close(r.stopping)
	}
	r.inflightMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) admit() bool {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	if r.draining {
		return false
	}
	r.inflight.Add(1)
	return true
}

func (r *Router) waitGate(ctx context.Context) error {
	select {
	case <-r.gate:
		return nil
	case <-r.stopping:
		return errors.New("router draining")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle processes one interaction.
func (r *Router) Handle(ctx context.Context, i *discordgo.Interaction) {
	if i == nil {
		return
	}
	if !r.admit() {
		r.logger.Debug("interaction ignored while draining")
		return
	}
	defer r.inflight.Done()
	ctx = services.WithRequestID(ctx, r.newID())
	logger := logging.WithContext(ctx, r.logger)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(ctx, logger, i)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(ctx, logger, i)
	case discordgo.InteractionModalSubmit:
		r.handleModal(ctx, logger, i)
	default:
		logger.Debug("ignoring interaction", logging.String("type", i.Type.String()))
	}
}

func (r *Router) handleCommand(ctx context.Context, logger *slog.Logger, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	reply := r.begin(ctx, logger, i)
	if reply == nil {
		return
	}
	actor := actorFrom(i)

	switch data.Name {
	case commandSetupTicket:
		err := r.service.PostTicketPanel(ctx, actor, i.ChannelID)
		reply.finish(ctx, "Ticket panel posted.", err)
	case commandTask:
		task, err := r.service.CreateTask(ctx, actor, lifecycle.TaskRequest{
			Title:       optionString(data.Options, optionTitle),
			Description: optionString(data.Options, optionDescription),
			AssigneeID:  parseUserRef(optionString(data.Options, optionAssignee)),
			Due:         optionString(data.Options, optionDue),
		})
		reply.finish(ctx, "Task created: "+lifecycle.ChannelMention(task.ResourceID), err)
	default:
		reply.finish(ctx, "Unknown command.", nil)
	}
}

func (r *Router) handleComponent(ctx context.Context, logger *slog.Logger, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	action, resourceID := lifecycle.ParseActionID(data.CustomID)
	if resourceID == "" {
		resourceID = i.ChannelID
	}
	logger = logger.With(logging.String("action", action), logging.String(logging.FieldResourceID, resourceID))

	// Modals only collect input; their submissions wait for dispatch.
	switch action {
	case lifecycle.ActionTaskReassign:
		r.respond(logger, i, reassignModal(resourceID))
		return
	case lifecycle.ActionTaskOverdueReason:
		r.respond(logger, i, overdueReasonModal(resourceID))
		return
	}

	reply := r.begin(ctx, logger, i)
	if reply == nil {
		return
	}
	actor := actorFrom(i)

	switch action {
	case lifecycle.ActionTicketReason:
		reason := ""
		if len(data.Values) > 0 {
			reason = data.Values[0]
		}
		ticket, err := r.service.CreateTicket(ctx, actor, reason)
		reply.finish(ctx, lifecycle.TicketCreatedReply(ticket), err)
	case lifecycle.ActionTicketClose:
		err := r.service.CloseTicket(ctx, actor, resourceID, reply.send)
		reply.finish(ctx, lifecycle.ClosingReply, err)
	case lifecycle.ActionTaskReview:
		err := r.service.RequestReview(ctx, actor, resourceID)
		reply.finish(ctx, "Review requested.", err)
	case lifecycle.ActionTaskComplete:
		err := r.service.Complete(ctx, actor, resourceID, reply.send)
		reply.finish(ctx, lifecycle.CompletedReply, err)
	default:
		logger.Warn("unknown action", logging.String("custom_id", data.CustomID))
		reply.finish(ctx, "Unknown action.", nil)
	}
}

func (r *Router) handleModal(ctx context.Context, logger *slog.Logger, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	action, resourceID := lifecycle.ParseActionID(data.CustomID)
	if resourceID == "" {
		resourceID = i.ChannelID
	}
	logger = logger.With(logging.String("action", action), logging.String(logging.FieldResourceID, resourceID))

	reply := r.begin(ctx, logger, i)
	if reply == nil {
		return
	}
	actor := actorFrom(i)
	reason := modalValue(data.Components, fieldReason)

	switch action {
	case lifecycle.ActionTaskReassign:
		_, err := r.service.Reassign(ctx, actor, resourceID, lifecycle.ReassignRequest{
			Reason:        reason,
			NewAssigneeID: parseUserRef(modalValue(data.Components, fieldAssignee)),
		})
		reply.finish(ctx, lifecycle.ReassignReply(reason), err)
	case lifecycle.ActionTaskOverdueReason:
		err := r.service.SubmitOverdueReason(ctx, actor, resourceID, reason)
		reply.finish(ctx, lifecycle.OverdueReasonReply(reason), err)
	default:
		logger.Warn("unknown modal", logging.String("custom_id", data.CustomID))
		reply.finish(ctx, "Unknown action.", nil)
	}
}

func (r *Router) respond(logger *slog.Logger, i *discordgo.Interaction, resp *discordgo.InteractionResponse) {
	if err := r.responder.InteractionRespond(i, resp); err != nil {
		logging.WarnWithContext(logger, "interaction response failed", "interaction_response_failed", logging.Error(err))
	}
}

// begin defers an ephemeral reply and waits for dispatch to start. It returns
// nil when the interaction cannot be answered.
func (r *Router) begin(ctx context.Context, logger *slog.Logger, i *discordgo.Interaction) *interactionReply {
	err := r.responder.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		logging.WarnWithContext(logger, "interaction defer failed", "interaction_response_failed", logging.Error(err))
		return nil
	}
	if err := r.waitGate(ctx); err != nil {
		logger.Info("interaction dropped during shutdown")
		return nil
	}
	return &interactionReply{responder: r.responder, interaction: i, logger: logger}
}

func actorFrom(i *discordgo.Interaction) lifecycle.Actor {
	var actor lifecycle.Actor
	user := i.User
	if i.Member != nil {
		if i.Member.User != nil {
			user = i.Member.User
		}
		actor.Administrator = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	}
	if user != nil {
		actor.UserID = user.ID
		actor.DisplayName = user.Username
	}
	return actor
}

type interactionReply struct {
	responder   responder
	interaction *discordgo.Interaction
	logger      *slog.Logger

	mu       sync.Mutex
	answered bool
}

// send replaces the deferred reply with content. It is the lifecycle Ack for
// transitions that delete the interaction's channel.
func (rp *interactionReply) send(_ context.Context, content string) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.answered = true
	_, err := rp.responder.InteractionResponseEdit(rp.interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

// finish answers with success unless err is set or the reply was already
// sent. Errors are shown through services.UserMessage so ids never leak.
func (rp *interactionReply) finish(ctx context.Context, success string, err error) {
	content := success
	if err != nil {
		content = services.UserMessage(err)
		kind := services.ErrorKind(err)
		switch kind {
		case services.KindValidation, services.KindUnauthorized, services.KindNotFound, services.KindConflict:
			rp.logger.Info("interaction rejected", logging.String("kind", string(kind)), logging.Error(err))
		default:
			logging.ErrorWithContext(rp.logger, "interaction failed", "interaction_failed",
				logging.String("kind", string(kind)),
				logging.Error(err),
			)
		}
	} else {
		rp.mu.Lock()
		answered := rp.answered
		rp.mu.Unlock()
		if answered {
			return
		}
	}
	if sendErr := rp.send(ctx, content); sendErr != nil {
		rp.logger.Debug("final reply not delivered", logging.Error(sendErr))
	}
}
