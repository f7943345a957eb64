package adapter

import (
	"context"

	"helpdesk-bridge/internal/domain/model"
)

// LLMAdapter is the port for the decision oracle. Given the existing
// tickets and the incoming message/conversation, it either picks the
// most relevant existing ticket or proposes a new one. The pipeline
// trusts the decision and does not re-validate it.
type LLMAdapter interface {
	FindOrCreateTicket(ctx context.Context, candidates []model.Ticket, messageBody string, conv *Conversation) (*model.AIDecision, error)
}
