package testsupport

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"concierge/internal/provider"
)

// SentMessage is a message captured by FakeProvider.
type SentMessage struct {
	ChannelID string
	Message   provider.Message
}

// FakeChannel is a channel held by FakeProvider.
type FakeChannel struct {
	Channel provider.Channel
	Spec    provider.ChannelSpec
	Members []string
}

// FakeProvider is an in-memory provider.ResourceProvider. Every call is
// appended to an operation log so tests can assert ordering.
type FakeProvider struct {
	mu       sync.Mutex
	nextID   int
	channels map[string]*FakeChannel
	roles    map[string][]string
	history  map[string][]provider.HistoryEntry
	sent     []SentMessage
	ops      []string

	CreateErr  error
	DeleteErr  error
	SendErr    error
	GetErr     error
	HistoryErr error
	RolesErr   error
	// OnSend runs after a message is recorded, outside the provider lock.
	OnSend func(channelID string, msg provider.Message)
}

// NewFakeProvider returns an empty fake with the transcript and completion
// channels from NewConfig already present.
func NewFakeProvider() *FakeProvider {
	f := &FakeProvider{
		channels: make(map[string]*FakeChannel),
		roles:    make(map[string][]string),
		history:  make(map[string][]provider.HistoryEntry),
	}
	f.AddChannel(TranscriptChannelID, "transcripts")
	f.AddChannel(CompletionChannelID, "completed-tasks")
	return f
}

// AddChannel registers an existing channel.
func (f *FakeProvider) AddChannel(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[id] = &FakeChannel{Channel: provider.Channel{ID: id, Name: name}}
}

// RemoveChannel deletes a channel out of band, as a moderator would.
func (f *FakeProvider) RemoveChannel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, id)
}

// SetRoles assigns role ids to a member.
func (f *FakeProvider) SetRoles(userID string, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[userID] = roles
}

// SetHistory sets the messages RecentMessages returns for a channel.
func (f *FakeProvider) SetHistory(channelID string, entries []provider.HistoryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[channelID] = entries
}

// Channel returns the channel with id, if present.
func (f *FakeProvider) Channel(id string) (FakeChannel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return FakeChannel{}, false
	}
	out := *ch
	out.Members = slices.Clone(ch.Members)
	return out, true
}

// ChannelCount returns the number of live channels.
func (f *FakeProvider) ChannelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

// Sent returns every message sent so far.
func (f *FakeProvider) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

// MessagesTo returns messages sent to channelID.
func (f *FakeProvider) MessagesTo(channelID string) []provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provider.Message
	for _, s := range f.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

// Ops returns the operation log, e.g. "create:billing-123", "delete:c1".
func (f *FakeProvider) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ops)
}

func (f *FakeProvider) CreateChannel(_ context.Context, spec provider.ChannelSpec) (provider.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "create:"+spec.Name)
	if f.CreateErr != nil {
		return provider.Channel{}, f.CreateErr
	}
	f.nextID++
	id := fmt.Sprintf("c%d", f.nextID)
	ch := &FakeChannel{Channel: provider.Channel{ID: id, Name: spec.Name}, Spec: spec}
	for _, o := range spec.Overwrites {
		if o.Kind == provider.TargetMember && o.Allow&provider.PermView != 0 {
			ch.Members = append(ch.Members, o.ID)
		}
	}
	f.channels[id] = ch
	return ch.Channel, nil
}

func (f *FakeProvider) GetChannel(_ context.Context, channelID string) (provider.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "get:"+channelID)
	if f.GetErr != nil {
		return provider.Channel{}, f.GetErr
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return provider.Channel{}, provider.ErrChannelNotFound
	}
	return ch.Channel, nil
}

func (f *FakeProvider) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "delete:"+channelID)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.channels[channelID]; !ok {
		return provider.ErrChannelNotFound
	}
	delete(f.channels, channelID)
	return nil
}

func (f *FakeProvider) SendMessage(_ context.Context, channelID string, msg provider.Message) error {
	f.mu.Lock()
	f.ops = append(f.ops, "send:"+channelID)
	if f.SendErr != nil {
		err := f.SendErr
		f.mu.Unlock()
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		f.mu.Unlock()
		return provider.ErrChannelNotFound
	}
	f.sent = append(f.sent, SentMessage{ChannelID: channelID, Message: msg})
	hook := f.OnSend
	f.mu.Unlock()
	if hook != nil {
		hook(channelID, msg)
	}
	return nil
}

func (f *FakeProvider) RecentMessages(_ context.Context, channelID string, limit int) ([]provider.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "history:"+channelID)
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	entries := f.history[channelID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return slices.Clone(entries), nil
}

func (f *FakeProvider) MemberRoles(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RolesErr != nil {
		return nil, f.RolesErr
	}
	return slices.Clone(f.roles[userID]), nil
}

func (f *FakeProvider) AllowMember(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "allow:"+channelID+":"+userID)
	ch, ok := f.channels[channelID]
	if !ok {
		return provider.ErrChannelNotFound
	}
	if !slices.Contains(ch.Members, userID) {
		ch.Members = append(ch.Members, userID)
	}
	return nil
}

var _ provider.ResourceProvider = (*FakeProvider)(nil)
