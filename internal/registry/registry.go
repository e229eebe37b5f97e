package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"concierge/internal/logging"
	"concierge/internal/records"
	"concierge/internal/services"
	"concierge/internal/store"
)

const component = "registry"

// Option customizes a Registry.
type Option func(*Registry)

// WithSaveFailureHook registers fn to be called after every failed save.
func WithSaveFailureHook(fn func(error)) Option {
	return func(r *Registry) { r.onSaveFailure = fn }
}

// Registry is the in-memory record map backed by a store.Store.
type Registry struct {
	store         store.Store
	logger        *slog.Logger
	onSaveFailure func(error)

	mu      sync.RWMutex
	tickets map[string]records.Ticket
	tasks   map[string]records.Task

	locks  *keyedMutex
	writer *writer
}

// Open loads the persisted collection and starts the save writer.
func Open(ctx context.Context, st store.Store, logger *slog.Logger, opts ...Option) (*Registry, error) {
	collection, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	r := &Registry{
		store:   st,
		logger:  logging.NewComponentLogger(logger, component),
		tickets: make(map[string]records.Ticket, len(collection.Tickets)),
		tasks:   make(map[string]records.Task, len(collection.Tasks)),
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for id, ticket := range collection.Tickets {
		ticket.ResourceID = id
		r.tickets[id] = ticket
	}
	for _, task := range collection.Tasks {
		r.tasks[task.ResourceID] = task
	}
	r.writer = startWriter(st, r.Snapshot)

	r.logger.Info("records loaded",
		logging.Int("tickets", len(r.tickets)),
		logging.Int("tasks", len(r.tasks)),
		logging.String("store", st.Location()),
	)
	return r, nil
}

// Close stops the writer after a final save of the current state.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.writer == nil {
		return nil
	}
	r.writer.stop()
	if err := r.store.Save(ctx, r.Snapshot()); err != nil {
		return services.Wrap(services.ErrPersistence, component, "flush", "final save failed", err)
	}
	return nil
}

// Exclusive runs fn while holding the critical section for resourceID.
// Calls for the same id run one at a time; different ids do not block each
// other. fn must not call Exclusive for the same id.
func (r *Registry) Exclusive(resourceID string, fn func() error) error {
	r.locks.Lock(resourceID)
	defer r.locks.Unlock(resourceID)
	return fn()
}

// Snapshot returns a deep copy of the current collection.
func (r *Registry) Snapshot() records.Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	collection := records.NewCollection()
	for id, ticket := range r.tickets {
		collection.Tickets[id] = ticket
	}
	collection.Tasks = make([]records.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		collection.Tasks = append(collection.Tasks, task.Clone())
	}
	sortTasks(collection.Tasks)
	return collection
}

// Counts returns the number of open tickets and the number of tasks.
func (r *Registry) Counts() (tickets, tasks int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets), len(r.tasks)
}

// CreateTicket inserts a new ticket and saves.
func (r *Registry) CreateTicket(ctx context.Context, ticket records.Ticket) error {
	if ticket.ResourceID == "" {
		return services.Wrap(services.ErrValidation, component, "create_ticket", "resource id is required", nil)
	}
	r.mu.Lock()
	if _, exists := r.tickets[ticket.ResourceID]; exists {
		r.mu.Unlock()
		return services.Wrap(services.ErrConflict, component, "create_ticket", "ticket "+ticket.ResourceID+" already exists", nil)
	}
	r.tickets[ticket.ResourceID] = ticket
	r.mu.Unlock()

	return r.persist(ctx, "create_ticket", ticket.ResourceID)
}

// Ticket returns the ticket for resourceID.
func (r *Registry) Ticket(resourceID string) (records.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[resourceID]
	if !ok {
		return records.Ticket{}, services.Wrap(services.ErrNotFound, component, "get_ticket", "ticket "+resourceID, nil)
	}
	return ticket, nil
}

// Tickets returns all open tickets ordered by creation.
func (r *Registry) Tickets() []records.Ticket {
	r.mu.RLock()
	collection := records.Collection{Tickets: make(map[string]records.Ticket, len(r.tickets))}
	for id, ticket := range r.tickets {
		collection.Tickets[id] = ticket
	}
	r.mu.RUnlock()
	return collection.SortedTickets()
}

// ChannelNameInUse reports whether an open ticket already uses name.
func (r *Registry) ChannelNameInUse(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ticket := range r.tickets {
		if ticket.ChannelName == name {
			return true
		}
	}
	return false
}

// DeleteTicket removes the ticket for resourceID and saves.
func (r *Registry) DeleteTicket(ctx context.Context, resourceID string) error {
	r.mu.Lock()
	if _, ok := r.tickets[resourceID]; !ok {
		r.mu.Unlock()
		return services.Wrap(services.ErrNotFound, component, "delete_ticket", "ticket "+resourceID, nil)
	}
	delete(r.tickets, resourceID)
	r.mu.Unlock()

	return r.persist(ctx, "delete_ticket", resourceID)
}

// NextTaskSequence returns the sequence number the next task will receive.
func (r *Registry) NextTaskSequence() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks) + 1
}

// CreateTask inserts a new task and saves. A zero Sequence is assigned from
// the current task count.
func (r *Registry) CreateTask(ctx context.Context, task records.Task) (records.Task, error) {
	if task.ResourceID == "" {
		return records.Task{}, services.Wrap(services.ErrValidation, component, "create_task", "resource id is required", nil)
	}
	if task.Status == "" {
		task.Status = records.TaskOpen
	}
	r.mu.Lock()
	if _, exists := r.tasks[task.ResourceID]; exists {
		r.mu.Unlock()
		return records.Task{}, services.Wrap(services.ErrConflict, component, "create_task", "task "+task.ResourceID+" already exists", nil)
	}
	if task.Sequence == 0 {
		task.Sequence = len(r.tasks) + 1
	}
	r.tasks[task.ResourceID] = task.Clone()
	r.mu.Unlock()

	return task, r.persist(ctx, "create_task", task.ResourceID)
}

// Task returns the task for resourceID.
func (r *Registry) Task(resourceID string) (records.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[resourceID]
	if !ok {
		return records.Task{}, services.Wrap(services.ErrNotFound, component, "get_task", "task "+resourceID, nil)
	}
	return task.Clone(), nil
}

// Tasks returns all tasks ordered by sequence.
func (r *Registry) Tasks() []records.Task {
	r.mu.RLock()
	out := make([]records.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task.Clone())
	}
	r.mu.RUnlock()
	sortTasks(out)
	return out
}

// UpdateTask applies mutate to a copy of the task and, when mutate succeeds,
// stores the copy and saves. The resource id and sequence cannot change.
func (r *Registry) UpdateTask(ctx context.Context, resourceID string, mutate func(*records.Task) error) (records.Task, error) {
	r.mu.Lock()
	current, ok := r.tasks[resourceID]
	if !ok {
		r.mu.Unlock()
		return records.Task{}, services.Wrap(services.ErrNotFound, component, "update_task", "task "+resourceID, nil)
	}
	updated := current.Clone()
	if err := mutate(&updated); err != nil {
		r.mu.Unlock()
		return current.Clone(), err
	}
	updated.ResourceID = current.ResourceID
	updated.Sequence = current.Sequence
	r.tasks[resourceID] = updated
	r.mu.Unlock()

	return updated.Clone(), r.persist(ctx, "update_task", resourceID)
}

func (r *Registry) persist(ctx context.Context, op, resourceID string) error {
	err := r.writer.save()
	if err == nil {
		return nil
	}
	logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "record save failed; in-memory state kept", "persistence_failed",
		logging.String(logging.FieldResourceID, resourceID),
		logging.String("operation", op),
		logging.String(logging.FieldErrorHint, "check free space and permissions of the data directory"),
		logging.Error(err),
	)
	if r.onSaveFailure != nil {
		r.onSaveFailure(err)
	}
	return services.Wrap(services.ErrPersistence, component, op, "save failed", err)
}

func sortTasks(tasks []records.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Sequence != tasks[j].Sequence {
			return tasks[i].Sequence < tasks[j].Sequence
		}
		return tasks[i].ResourceID < tasks[j].ResourceID
	})
}
