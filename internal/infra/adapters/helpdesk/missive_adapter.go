// File: internal/infra/adapters/helpdesk/missive_adapter.go
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/metrics"
)

const serviceName = "helpdesk"

// Compile-time assurance this adapter satisfies the port
var _ adapter.HelpdeskAdapter = (*MissiveAdapter)(nil)

// MissiveAdapter implements adapter.HelpdeskAdapter against the Missive
// public REST API.
type MissiveAdapter struct {
	token       string
	adminUserID string
	base        string // e.g. https://public.missiveapp.com/v1
	client      *http.Client
}

func NewMissiveAdapter(token, adminUserID, baseURL string, timeout time.Duration) (*MissiveAdapter, error) {
	if token == "" {
		return nil, errors.New("missive token empty")
	}
	if baseURL == "" {
		baseURL = "https://public.missiveapp.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &MissiveAdapter{
		token:       token,
		adminUserID: adminUserID,
		base:        strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (m *MissiveAdapter) GetConversation(ctx context.Context, id string) (*adapter.Conversation, error) {
	var out struct {
		Conversations []struct {
			ID                   string `json:"id"`
			Subject              string `json:"subject"`
			LatestMessageSubject string `json:"latest_message_subject"`
			LatestMessagePreview string `json:"latest_message_preview"`
			MessagesCount        int    `json:"messages_count"`
		} `json:"conversations"`
	}
	if err := m.do(ctx, http.MethodGet, "/conversations/"+id, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Conversations) == 0 {
		return nil, domain.ErrNotFound
	}
	c := out.Conversations[0]
	subject := c.Subject
	if subject == "" {
		subject = c.LatestMessageSubject
	}
	return &adapter.Conversation{ID: c.ID, Subject: subject, Preview: c.LatestMessagePreview}, nil
}

func (m *MissiveAdapter) GetParticipatingOperators(ctx context.Context, conversationID string) ([]adapter.Operator, error) {
	var out struct {
		Conversations []struct {
			Users []struct {
				ID    string `json:"id"`
				Email string `json:"email"`
				Name  string `json:"name"`
			} `json:"users"`
		} `json:"conversations"`
	}
	if err := m.do(ctx, http.MethodGet, "/conversations/"+conversationID, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Conversations) == 0 {
		return nil, domain.ErrNotFound
	}
	users := out.Conversations[0].Users
	ops := make([]adapter.Operator, 0, len(users))
	for _, u := range users {
		ops = append(ops, adapter.Operator{ID: u.ID, Email: u.Email, Name: u.Name})
	}
	return ops, nil
}

func (m *MissiveAdapter) ReplyToConversation(ctx context.Context, conversationID, body string) error {
	payload := map[string]any{
		"posts": map[string]any{
			"conversation": conversationID,
			"text":         body,
			"username":     "Tracker Bot",
		},
	}
	if m.adminUserID != "" {
		payload["posts"].(map[string]any)["author"] = m.adminUserID
	}
	return m.do(ctx, http.MethodPost, "/posts", payload, nil)
}

// do performs one JSON round-trip and maps failures to the typed
// adapter errors the pipeline stores on steps.
func (m *MissiveAdapter) do(ctx context.Context, method, path string, payload, out any) error {
	start := time.Now()
	err := m.doOnce(ctx, method, path, payload, out)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	return err
}

func (m *MissiveAdapter) doOnce(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &domain.ParseError{Service: serviceName, Detail: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.base+path, body)
	if err != nil {
		return &domain.TransportError{Service: serviceName, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
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
