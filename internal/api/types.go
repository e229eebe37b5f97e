package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Ticket describes an open ticket.
type Ticket struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	Reason      string `json:"reason"`
	OpenedBy    string `json:"openedBy,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Reassignment is one entry of a task's reassignment history.
type Reassignment struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	By     string `json:"by"`
	Reason string `json:"reason"`
	At     string `json:"at,omitempty"`
}

// Task describes a task.
type Task struct {
	Number          int            `json:"number"`
	ChannelID       string         `json:"channelId"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	AssigneeID      string         `json:"assigneeId"`
	CreatorID       string         `json:"creatorId,omitempty"`
	Due             string         `json:"due"`
	Status          string         `json:"status"`
	OverdueNotified bool           `json:"overdueNotified"`
	CreatedAt       string         `json:"createdAt,omitempty"`
	CompletedBy     string         `json:"completedBy,omitempty"`
	CompletedAt     string         `json:"completedAt,omitempty"`
	Reassignments   []Reassignment `json:"reassignments,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool   `json:"running"`
	Dispatching    bool   `json:"dispatching"`
	PID            int    `json:"pid"`
	StartedAt      string `json:"startedAt,omitempty"`
	Tickets        int    `json:"tickets"`
	Tasks          int    `json:"tasks"`
	OpenTasks      int    `json:"openTasks"`
	StoreBackend   string `json:"storeBackend"`
	StorePath      string `json:"storePath"`
	LockFilePath   string `json:"lockFilePath"`
	LastOverdueRun string `json:"lastOverdueRun,omitempty"`
}

// TicketListResponse wraps a collection of tickets.
type TicketListResponse struct {
	Tickets []Ticket `json:"tickets"`
}

// TaskListResponse wraps a collection of tasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// TestNotificationResponse reports the outcome of a test notification.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
