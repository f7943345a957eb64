// File: internal/infra/web/dto.go
package web

import (
	"time"

	"helpdesk-bridge/internal/domain/model"
)

type requestJSON struct {
	ID              string     `json:"id"`
	ConversationID  string     `json:"conversation_id"`
	ConversationURL string     `json:"conversation_url"`
	Status          string     `json:"status"`
	Steps           []stepJSON `json:"steps"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type stepJSON struct {
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type ticketJSON struct {
	TicketID            string `json:"ticket_id"`
	TrackerID           string `json:"tracker_id"`
	TrackerURL          string `json:"tracker_url"`
	Title               string `json:"title"`
	Summary             string `json:"summary,omitempty"`
	LinkedConversations string `json:"linked_conversations,omitempty"`
	ChatChannel         string `json:"chat_channel,omitempty"`
}

type decisionJSON struct {
	Kind    string      `json:"kind"`
	Ticket  *ticketJSON `json:"ticket,omitempty"`
	Title   string      `json:"title,omitempty"`
	Summary string      `json:"summary,omitempty"`
	Slug    string      `json:"slug,omitempty"`
}

func toRequestJSON(r *model.Request) requestJSON {
	out := requestJSON{
		ID:              r.ID,
		ConversationID:  r.SourceConversationID,
		ConversationURL: r.SourceConversationURL,
		Status:          string(r.Status),
		Steps:           make([]stepJSON, 0, len(r.Steps)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, s := range r.Steps {
		out.Steps = append(out.Steps, stepJSON{
			Type:        string(s.Type),
			Status:      string(s.Status),
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
			Result:      toResultJSON(s.Result),
			Error:       s.Error,
		})
	}
	return out
}

func toResultJSON(res *model.StepResult) any {
	if res == nil {
		return nil
	}
	switch {
	case res.Tickets != nil:
		out := make([]ticketJSON, 0, len(res.Tickets))
		for _, t := range res.Tickets {
			out = append(out, toTicketJSON(t))
		}
		return out
	case res.Decision != nil:
		d := decisionJSON{Kind: string(res.Decision.Kind)}
		if res.Decision.Existing != nil {
			t := toTicketJSON(*res.Decision.Existing)
			d.Ticket = &t
		}
		if res.Decision.New != nil {
			d.Title = res.Decision.New.Title
			d.Summary = res.Decision.New.Summary
			d.Slug = res.Decision.New.Slug
		}
		return d
	case res.Ticket != nil:
		return toTicketJSON(*res.Ticket)
	case res.Channel != nil:
		return *res.Channel
	default:
		return nil
	}
}

func toTicketJSON(t model.Ticket) ticketJSON {
	return ticketJSON{
		TicketID:            t.TicketID,
		TrackerID:           t.TrackerID,
		TrackerURL:          t.TrackerURL,
		Title:               t.Title,
		Summary:             t.Summary,
		LinkedConversations: t.LinkedConversations,
		ChatChannel:         t.ChatChannel,
	}
}
