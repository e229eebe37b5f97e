package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"concierge/internal/records"
)

const (
	TicketsDocument = "tickets.json"
	TasksDocument   = "tasks.json"
)

type tasksDocument struct {
	Tasks []records.Task `json:"tasks"`
}

func encodeTickets(tickets map[string]records.Ticket) ([]byte, error) {
	if tickets == nil {
		tickets = map[string]records.Ticket{}
	}
	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", TicketsDocument, err)
	}
	return data, nil
}

func decodeTickets(data []byte) (map[string]records.Ticket, error) {
	tickets := map[string]records.Ticket{}
	if len(data) == 0 {
		return tickets, nil
	}
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, TicketsDocument, err)
	}
	for id, ticket := range tickets {
		if id == "" {
			return nil, fmt.Errorf("%w: %s: empty resource id", ErrCorrupt, TicketsDocument)
		}
		ticket.ResourceID = id
		tickets[id] = ticket
	}
	return tickets, nil
}

func encodeTasks(tasks []records.Task) ([]byte, error) {
	doc := tasksDocument{Tasks: tasks}
	if doc.Tasks == nil {
		doc.Tasks = []records.Task{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", TasksDocument, err)
	}
	return data, nil
}

func decodeTasks(data []byte) ([]records.Task, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, TasksDocument, err)
	}
	tasks := make([]records.Task, 0, len(raw.Tasks))
	seen := make(map[string]struct{}, len(raw.Tasks))
	for i, entry := range raw.Tasks {
		task, err := decodeTask(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: task %d: %w", ErrCorrupt, TasksDocument, i+1, err)
		}
		if task.ResourceID == "" {
			return nil, fmt.Errorf("%w: %s: task %d has no channel_id", ErrCorrupt, TasksDocument, i+1)
		}
		if _, dup := seen[task.ResourceID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate channel_id %s", ErrCorrupt, TasksDocument, task.ResourceID)
		}
		seen[task.ResourceID] = struct{}{}
		if task.Sequence == 0 {
			task.Sequence = i + 1
		}
		if task.Status == "" {
			task.Status = records.TaskOpen
		}
		tasks = append(tasks, task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Sequence < tasks[j].Sequence
	})
	return tasks, nil
}

// idFields hold platform ids. Older documents wrote them as JSON numbers.
var idFields = []string{"channel_id", "assignee_id", "creator_id"}

// decodeTask reads one task entry, accepting the older layout with numeric
// ids and the due time under "due".
func decodeTask(entry json.RawMessage) (records.Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return records.Task{}, err
	}
	for _, key := range idFields {
		if value, ok := fields[key]; ok && isJSONNumber(value) {
			fields[key] = json.RawMessage(strconv.Quote(string(value)))
		}
	}
	if due, ok := fields["due"]; ok {
		if _, has := fields["due_time"]; !has {
			fields["due_time"] = due
		}
		delete(fields, "due")
	}
	normalized, err := json.Marshal(fields)
	if err != nil {
		return records.Task{}, err
	}
	var task records.Task
	if err := json.Unmarshal(normalized, &task); err != nil {
		return records.Task{}, err
	}
	return task, nil
}

func isJSONNumber(value json.RawMessage) bool {
	if len(value) == 0 {
		return false
	}
	c := value[0]
	return c == '-' || (c >= '0' && c <= '9')
}
