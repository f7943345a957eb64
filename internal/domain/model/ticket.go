package model

import (
	"strings"
)

// Ticket is the canonical tracker record. The knowledge base owns the
// authoritative copy; instances here only live in flight as step results.
type Ticket struct {
	TicketID            string // human-readable key, e.g. "JMP-10"
	TrackerID           string // opaque external page id
	TrackerURL          string
	Title               string
	Summary             string
	LinkedConversations string // comma-joined conversation URLs, may be empty
	ChatChannel         string // chat-service URL or raw channel id, may be empty
}

// Conversations splits LinkedConversations into its individual entries.
func (t Ticket) Conversations() []string {
	if strings.TrimSpace(t.LinkedConversations) == "" {
		return nil
	}
	parts := strings.Split(t.LinkedConversations, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasConversation reports whether url is already linked to the ticket.
func (t Ticket) HasConversation(url string) bool {
	for _, c := range t.Conversations() {
		if c == url {
			return true
		}
	}
	return false
}

// WithConversation returns the linked-conversations value after appending url.
func (t Ticket) WithConversation(url string) string {
	existing := t.Conversations()
	if len(existing) == 0 {
		return url
	}
	return strings.Join(append(existing, url), ",")
}

// NewTicketSpec is the LLM's proposal for a ticket that does not exist yet.
type NewTicketSpec struct {
	Title   string
	Summary string
	Slug    string // short URL-safe identifier, names the chat channel
}

// ChannelName builds the chat channel name for a fresh ticket,
// format "{ticket_id}-{slug}", lowercased.
func ChannelName(ticketID, slug string) string {
	return strings.ToLower(ticketID + "-" + slug)
}
