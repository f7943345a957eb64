// File: internal/infra/adapters/kb/notion_adapter.go
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/metrics"
)

const (
	serviceName   = "knowledgebase"
	notionVersion = "2022-06-28"

	// Property names of the tracker database.
	propTicketID = "ID"
	propTitle    = "Name"
	propSummary  = "Summary"
	propLinked   = "Linked Conversations"
	propChannel  = "Chat Channel"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.KnowledgeBaseAdapter = (*NotionAdapter)(nil)

// NotionAdapter implements adapter.KnowledgeBaseAdapter against the
// Notion REST API, with one tracker database holding a page per ticket.
type NotionAdapter struct {
	token      string
	databaseID string
	base       string // e.g. https://api.notion.com/v1
	client     *http.Client
}

func NewNotionAdapter(token, databaseID, baseURL string, timeout time.Duration) (*NotionAdapter, error) {
	if token == "" {
		return nil, errors.New("notion token empty")
	}
	if databaseID == "" {
		return nil, errors.New("notion database id empty")
	}
	if baseURL == "" {
		baseURL = "https://api.notion.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &NotionAdapter{
		token:      token,
		databaseID: databaseID,
		base:       strings.TrimSuffix(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// ListTickets enumerates the whole database, following pagination so the
// LLM sees every candidate.
func (n *NotionAdapter) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var (
		tickets []model.Ticket
		cursor  string
	)
	for {
		payload := map[string]any{"page_size": 100}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}
		var out struct {
			Results    []notionPage `json:"results"`
			HasMore    bool         `json:"has_more"`
			NextCursor string       `json:"next_cursor"`
		}
		if err := n.do(ctx, http.MethodPost, "/databases/"+n.databaseID+"/query", payload, &out); err != nil {
			return nil, err
		}
		for _, p := range out.Results {
			tickets = append(tickets, p.toTicket())
		}
		if !out.HasMore || out.NextCursor == "" {
			break
		}
		cursor = out.NextCursor
	}
	return tickets, nil
}

func (n *NotionAdapter) GetTicket(ctx context.Context, trackerID string) (*model.Ticket, error) {
	var page notionPage
	if err := n.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(trackerID), nil, &page); err != nil {
		return nil, err
	}
	t := page.toTicket()
	return &t, nil
}

func (n *NotionAdapter) CreateTicket(ctx context.Context, t model.Ticket) (*model.Ticket, error) {
	props := map[string]any{
		propTitle: map[string]any{
			"title": []any{richText(t.Title)},
		},
	}
	if t.Summary != "" {
		props[propSummary] = map[string]any{"rich_text": []any{richText(t.Summary)}}
	}
	if t.LinkedConversations != "" {
		props[propLinked] = map[string]any{"rich_text": []any{richText(t.LinkedConversations)}}
	}
	if t.ChatChannel != "" {
		props[propChannel] = map[string]any{"url": t.ChatChannel}
	}
	payload := map[string]any{
		"parent":     map[string]any{"database_id": n.databaseID},
		"properties": props,
	}
	var page notionPage
	if err := n.do(ctx, http.MethodPost, "/pages", payload, &page); err != nil {
		return nil, err
	}
	created := page.toTicket()
	return &created, nil
}

func (n *NotionAdapter) UpdateTicket(ctx context.Context, trackerID string, patch adapter.TicketPatch) (*model.Ticket, error) {
	props := map[string]any{}
	if patch.Title != nil {
		props[propTitle] = map[string]any{"title": []any{richText(*patch.Title)}}
	}
	if patch.LinkedConversations != nil {
		props[propLinked] = map[string]any{"rich_text": []any{richText(*patch.LinkedConversations)}}
	}
	if patch.ChatChannel != nil {
		var u any
		if *patch.ChatChannel != "" {
			u = *patch.ChatChannel
		}
		props[propChannel] = map[string]any{"url": u}
	}
	if len(props) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	payload := map[string]any{"properties": props}
	var page notionPage
	if err := n.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(trackerID), payload, &page); err != nil {
		return nil, err
	}
	updated := page.toTicket()
	return &updated, nil
}

func (n *NotionAdapter) GetCheckboxProperty(ctx context.Context, pageID, propertyID string) (bool, error) {
	var out struct {
		Type     string `json:"type"`
		Checkbox *bool  `json:"checkbox"`
	}
	path := "/pages/" + url.PathEscape(pageID) + "/properties/" + url.PathEscape(propertyID)
	if err := n.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	if out.Type != "checkbox" || out.Checkbox == nil {
		return false, &domain.ParseError{Service: serviceName, Detail: fmt.Sprintf("property %s is %q, not a checkbox", propertyID, out.Type)}
	}
	return *out.Checkbox, nil
}

// ---- wire types ----

type notionPage struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url"`
	Properties map[string]notionProperty `json:"properties"`
}

type notionProperty struct {
	Type     string           `json:"type"`
	Title    []notionRichText `json:"title"`
	RichText []notionRichText `json:"rich_text"`
	URL      *string          `json:"url"`
	Checkbox *bool            `json:"checkbox"`
	UniqueID *notionUniqueID  `json:"unique_id"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text"`
}

type notionUniqueID struct {
	Prefix string `json:"prefix"`
	Number int64  `json:"number"`
}

func (p notionPage) toTicket() model.Ticket {
	t := model.Ticket{
		TrackerID:  p.ID,
		TrackerURL: p.URL,
	}
	if prop, ok := p.Properties[propTicketID]; ok && prop.UniqueID != nil {
		if prop.UniqueID.Prefix != "" {
			t.TicketID = fmt.Sprintf("%s-%d", prop.UniqueID.Prefix, prop.UniqueID.Number)
		} else {
			t.TicketID = fmt.Sprintf("%d", prop.UniqueID.Number)
		}
	}
	if prop, ok := p.Properties[propTitle]; ok {
		t.Title = plainText(prop.Title)
	}
	if prop, ok := p.Properties[propSummary]; ok {
		t.Summary = plainText(prop.RichText)
	}
	if prop, ok := p.Properties[propLinked]; ok {
		t.LinkedConversations = plainText(prop.RichText)
	}
	if prop, ok := p.Properties[propChannel]; ok && prop.URL != nil {
		t.ChatChannel = *prop.URL
	}
	return t
}

func plainText(parts []notionRichText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

func richText(s string) map[string]any {
	return map[string]any{
		"type": "text",
		"text": map[string]any{"content": s},
	}
}

// do performs one JSON round-trip and maps failures to the typed
// adapter errors the pipeline stores on steps.
func (n *NotionAdapter) do(ctx context.Context, method, path string, payload, out any) error {
	start := time.Now()
	err := n.doOnce(ctx, method, path, payload, out)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	return err
}

func (n *NotionAdapter) doOnce(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &domain.ParseError{Service: serviceName, Detail: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, n.base+path, body)
	if err != nil {
		return &domain.TransportError{Service: serviceName, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Notion-Version", notionVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &domain.TransportError{Service: serviceName, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &domain.RemoteError{Service: serviceName, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ParseError{Service: serviceName, Detail: err.Error()}
	}
	return nil
}
