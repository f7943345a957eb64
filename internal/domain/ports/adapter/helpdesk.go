package adapter

import "context"

// Conversation is the helpdesk thread an inbound message belongs to.
type Conversation struct {
	ID      string
	Subject string
	Preview string
}

// Operator is a human support agent identified in the helpdesk.
type Operator struct {
	ID    string
	Email string
	Name  string
}

// HelpdeskAdapter is the port for the customer-conversation system.
type HelpdeskAdapter interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetParticipatingOperators(ctx context.Context, conversationID string) ([]Operator, error)
	ReplyToConversation(ctx context.Context, conversationID, body string) error
}
