// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Adapters
// =============================

// ---- Mock HelpdeskAdapter ----

type MockHelpdesk struct {
	mu      sync.Mutex
	Replies []struct{ ConversationID, Body string }

	GetConversationFunc           func(ctx context.Context, id string) (*adapter.Conversation, error)
	GetParticipatingOperatorsFunc func(ctx context.Context, conversationID string) ([]adapter.Operator, error)
	ReplyToConversationFunc       func(ctx context.Context, conversationID, body string) error
}

var _ adapter.HelpdeskAdapter = (*MockHelpdesk)(nil)

func (m *MockHelpdesk) GetConversation(ctx context.Context, id string) (*adapter.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	return &adapter.Conversation{ID: id, Subject: "test conversation"}, nil
}

func (m *MockHelpdesk) GetParticipatingOperators(ctx context.Context, conversationID string) ([]adapter.Operator, error) {
	if m.GetParticipatingOperatorsFunc != nil {
		return m.GetParticipatingOperatorsFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *MockHelpdesk) ReplyToConversation(ctx context.Context, conversationID, body string) error {
	if m.ReplyToConversationFunc != nil {
		return m.ReplyToConversationFunc(ctx, conversationID, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, struct{ ConversationID, Body string }{conversationID, body})
	return nil
}

func (m *MockHelpdesk) SentReplies() []struct{ ConversationID, Body string } {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]struct{ ConversationID, Body string }, len(m.Replies))
	copy(out, m.Replies)
	return out
}

// ---- Mock KnowledgeBaseAdapter ----

type MockKB struct {
	mu      sync.Mutex
	Store   map[string]model.Ticket // tracker id -> last stored ticket
	Updates []struct {
		TrackerID string
		Patch     adapter.TicketPatch
	}
	Created []model.Ticket

	ListTicketsFunc         func(ctx context.Context) ([]model.Ticket, error)
	GetTicketFunc           func(ctx context.Context, trackerID string) (*model.Ticket, error)
	CreateTicketFunc        func(ctx context.Context, t model.Ticket) (*model.Ticket, error)
	UpdateTicketFunc        func(ctx context.Context, trackerID string, patch adapter.TicketPatch) (*model.Ticket, error)
	GetCheckboxPropertyFunc func(ctx context.Context, pageID, propertyID string) (bool, error)
}

var _ adapter.KnowledgeBaseAdapter = (*MockKB)(nil)

func (m *MockKB) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	if m.ListTicketsFunc != nil {
		return m.ListTicketsFunc(ctx)
	}
	return nil, nil
}

func (m *MockKB) GetTicket(ctx context.Context, trackerID string) (*model.Ticket, error) {
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(ctx, trackerID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockKB) CreateTicket(ctx context.Context, t model.Ticket) (*model.Ticket, error) {
	if m.CreateTicketFunc != nil {
		return m.CreateTicketFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, t)
	created := t
	created.TrackerID = "page-created"
	created.TrackerURL = "https://notion.example.com/page-created"
	created.TicketID = "JMP-1"
	if m.Store == nil {
		m.Store = make(map[string]model.Ticket)
	}
	m.Store[created.TrackerID] = created
	return &created, nil
}

func (m *MockKB) UpdateTicket(ctx context.Context, trackerID string, patch adapter.TicketPatch) (*model.Ticket, error) {
	m.mu.Lock()
	m.Updates = append(m.Updates, struct {
		TrackerID string
		Patch     adapter.TicketPatch
	}{trackerID, patch})
	m.mu.Unlock()
	if m.UpdateTicketFunc != nil {
		return m.UpdateTicketFunc(ctx, trackerID, patch)
	}
	// Echo the stored ticket with the patch applied, like the real
	// adapter returns the page after the update.
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Store[trackerID]
	if !ok {
		t = model.Ticket{TrackerID: trackerID}
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.LinkedConversations != nil {
		t.LinkedConversations = *patch.LinkedConversations
	}
	if patch.ChatChannel != nil {
		t.ChatChannel = *patch.ChatChannel
	}
	if m.Store == nil {
		m.Store = make(map[string]model.Ticket)
	}
	m.Store[trackerID] = t
	return &t, nil
}

func (m *MockKB) GetCheckboxProperty(ctx context.Context, pageID, propertyID string) (bool, error) {
	if m.GetCheckboxPropertyFunc != nil {
		return m.GetCheckboxPropertyFunc(ctx, pageID, propertyID)
	}
	return false, nil
}

func (m *MockKB) UpdateCalls() []struct {
	TrackerID string
	Patch     adapter.TicketPatch
} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]struct {
		TrackerID string
		Patch     adapter.TicketPatch
	}, len(m.Updates))
	copy(out, m.Updates)
	return out
}

// ---- Mock ChatAdapter ----

type MockChat struct {
	mu       sync.Mutex
	Invited  map[string][]string // channelID -> userIDs
	Topics   map[string]string
	Messages map[string][]string
	Channels []string // created channel names

	CreateChannelFunc      func(ctx context.Context, name string) (*model.ChannelInfo, error)
	ListChannelMembersFunc func(ctx context.Context, channelID string) ([]string, error)
	ListAllUsersFunc       func(ctx context.Context) ([]adapter.ChatUser, error)
	InviteUsersFunc        func(ctx context.Context, channelID string, userIDs []string) error
	SetChannelTopicFunc    func(ctx context.Context, channelID, topic string) error
	PostMessageFunc        func(ctx context.Context, channelID, text string) error
}

var _ adapter.ChatAdapter = (*MockChat)(nil)

func (m *MockChat) CreateChannel(ctx context.Context, name string) (*model.ChannelInfo, error) {
	if m.CreateChannelFunc != nil {
		return m.CreateChannelFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Channels = append(m.Channels, name)
	return &model.ChannelInfo{ChannelID: "C1", URL: "https://app.slack.com/archives/C1"}, nil
}

func (m *MockChat) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	if m.ListChannelMembersFunc != nil {
		return m.ListChannelMembersFunc(ctx, channelID)
	}
	return nil, nil
}

func (m *MockChat) ListAllUsers(ctx context.Context) ([]adapter.ChatUser, error) {
	if m.ListAllUsersFunc != nil {
		return m.ListAllUsersFunc(ctx)
	}
	return nil, nil
}

func (m *MockChat) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	if m.InviteUsersFunc != nil {
		return m.InviteUsersFunc(ctx, channelID, userIDs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Invited == nil {
		m.Invited = make(map[string][]string)
	}
	m.Invited[channelID] = append(m.Invited[channelID], userIDs...)
	return nil
}

func (m *MockChat) SetChannelTopic(ctx context.Context, channelID, topic string) error {
	if m.SetChannelTopicFunc != nil {
		return m.SetChannelTopicFunc(ctx, channelID, topic)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Topics == nil {
		m.Topics = make(map[string]string)
	}
	m.Topics[channelID] = topic
	return nil
}

func (m *MockChat) PostMessage(ctx context.Context, channelID, text string) error {
	if m.PostMessageFunc != nil {
		return m.PostMessageFunc(ctx, channelID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Messages == nil {
		m.Messages = make(map[string][]string)
	}
	m.Messages[channelID] = append(m.Messages[channelID], text)
	return nil
}

// ---- Mock LLMAdapter ----

type MockLLM struct {
	FindOrCreateTicketFunc func(ctx context.Context, candidates []model.Ticket, messageBody string, conv *adapter.Conversation) (*model.AIDecision, error)
}

var _ adapter.LLMAdapter = (*MockLLM)(nil)

func (m *MockLLM) FindOrCreateTicket(ctx context.Context, candidates []model.Ticket, messageBody string, conv *adapter.Conversation) (*model.AIDecision, error) {
	if m.FindOrCreateTicketFunc != nil {
		return m.FindOrCreateTicketFunc(ctx, candidates, messageBody, conv)
	}
	return model.NewDecision(model.NewTicketSpec{Title: "t", Summary: "s", Slug: "t"}), nil
}
