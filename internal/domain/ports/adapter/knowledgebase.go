package adapter

import (
	"context"

	"helpdesk-bridge/internal/domain/model"
)

// TicketPatch is a partial ticket update; nil fields are left untouched.
type TicketPatch struct {
	Title               *string
	LinkedConversations *string
	ChatChannel         *string
}

// KnowledgeBaseAdapter is the port for the tracker storage.
type KnowledgeBaseAdapter interface {
	// ListTickets enumerates every ticket the LLM should consider,
	// following pagination to exhaustion.
	ListTickets(ctx context.Context) ([]model.Ticket, error)

	// GetTicket fetches a single ticket by its opaque tracker id.
	GetTicket(ctx context.Context, trackerID string) (*model.Ticket, error)

	// CreateTicket stores a new ticket and echoes it back populated
	// with TrackerID, TrackerURL and TicketID.
	CreateTicket(ctx context.Context, t model.Ticket) (*model.Ticket, error)

	// UpdateTicket applies a partial update and returns the stored ticket.
	UpdateTicket(ctx context.Context, trackerID string, patch TicketPatch) (*model.Ticket, error)

	// GetCheckboxProperty reads a single checkbox property of a page.
	GetCheckboxProperty(ctx context.Context, pageID, propertyID string) (bool, error)
}
