// File: internal/infra/adapters/kb/notion_adapter_test.go
package kb_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/adapters/kb"
)

func page(id, ticketPrefix string, ticketNumber int, title, linked, channel string) map[string]any {
	props := map[string]any{
		"ID": map[string]any{
			"type":      "unique_id",
			"unique_id": map[string]any{"prefix": ticketPrefix, "number": ticketNumber},
		},
		"Name": map[string]any{
			"type":  "title",
			"title": []any{map[string]any{"plain_text": title}},
		},
	}
	if linked != "" {
		props["Linked Conversations"] = map[string]any{
			"type":      "rich_text",
			"rich_text": []any{map[string]any{"plain_text": linked}},
		}
	}
	if channel != "" {
		props["Chat Channel"] = map[string]any{"type": "url", "url": channel}
	}
	return map[string]any{
		"id":         id,
		"url":        "https://www.notion.so/" + id,
		"properties": props,
	}
}

func newAdapter(t *testing.T, handler http.HandlerFunc) *kb.NotionAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ad, err := kb.NewNotionAdapter("secret-token", "db-1", srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewNotionAdapter() error = %v", err)
	}
	return ad
}

func TestNotionAdapter_ListTickets(t *testing.T) {
	t.Run("follows pagination and maps properties", func(t *testing.T) {
		// --- Arrange ---
		var cursors []string
		ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/databases/db-1/query" || r.Method != http.MethodPost {
				t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
				t.Errorf("Notion-Version = %q", got)
			}
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			cursor, _ := in["start_cursor"].(string)
			cursors = append(cursors, cursor)

			var out map[string]any
			if cursor == "" {
				out = map[string]any{
					"results":     []any{page("p1", "JMP", 1, "First", "https://a/conv-1", "https://app.slack.com/archives/C1")},
					"has_more":    true,
					"next_cursor": "cur-2",
				}
			} else {
				out = map[string]any{
					"results":  []any{page("p2", "JMP", 2, "Second", "", "")},
					"has_more": false,
				}
			}
			_ = json.NewEncoder(w).Encode(out)
		})

		// --- Act ---
		tickets, err := ad.ListTickets(context.Background())

		// --- Assert ---
		if err != nil {
			t.Fatalf("ListTickets() error = %v", err)
		}
		if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "cur-2" {
			t.Errorf("cursors = %v, want two pages", cursors)
		}
		if len(tickets) != 2 {
			t.Fatalf("tickets = %d, want 2", len(tickets))
		}
		first := tickets[0]
		if first.TicketID != "JMP-1" || first.TrackerID != "p1" || first.Title != "First" {
			t.Errorf("first ticket = %+v", first)
		}
		if first.LinkedConversations != "https://a/conv-1" || first.ChatChannel != "https://app.slack.com/archives/C1" {
			t.Errorf("first ticket links = %+v", first)
		}
		if tickets[1].TicketID != "JMP-2" || tickets[1].ChatChannel != "" {
			t.Errorf("second ticket = %+v", tickets[1])
		}
	})

	t.Run("remote failure maps to RemoteError", func(t *testing.T) {
		ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"rate_limited"}`))
		})

		_, err := ad.ListTickets(context.Background())

		var remote *domain.RemoteError
		if !errors.As(err, &remote) {
			t.Fatalf("error = %v, want RemoteError", err)
		}
		if remote.Status != http.StatusTooManyRequests || remote.Service != "knowledgebase" {
			t.Errorf("RemoteError = %+v", remote)
		}
	})
}

func TestNotionAdapter_CreateTicket(t *testing.T) {
	// --- Arrange ---
	var captured map[string]any
	ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages" || r.Method != http.MethodPost {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(page("p-new", "JMP", 3, "New bug", "https://a/conv-9", ""))
	})

	// --- Act ---
	created, err := ad.CreateTicket(context.Background(), model.Ticket{
		Title:               "New bug",
		Summary:             "broken badly",
		LinkedConversations: "https://a/conv-9",
	})

	// --- Assert ---
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	if created.TicketID != "JMP-3" || created.TrackerID != "p-new" {
		t.Errorf("created = %+v", created)
	}
	parent, _ := captured["parent"].(map[string]any)
	if parent["database_id"] != "db-1" {
		t.Errorf("parent = %v, want the configured database", parent)
	}
	props, _ := captured["properties"].(map[string]any)
	for _, name := range []string{"Name", "Summary", "Linked Conversations"} {
		if _, ok := props[name]; !ok {
			t.Errorf("request missing property %q", name)
		}
	}
}

func TestNotionAdapter_UpdateTicket(t *testing.T) {
	t.Run("patches only the given fields", func(t *testing.T) {
		// --- Arrange ---
		var captured map[string]any
		ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/pages/p1" || r.Method != http.MethodPatch {
				t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&captured)
			_ = json.NewEncoder(w).Encode(page("p1", "JMP", 1, "First", "", "https://app.slack.com/archives/C1"))
		})

		// --- Act ---
		channel := "https://app.slack.com/archives/C1"
		updated, err := ad.UpdateTicket(context.Background(), "p1", adapter.TicketPatch{ChatChannel: &channel})

		// --- Assert ---
		if err != nil {
			t.Fatalf("UpdateTicket() error = %v", err)
		}
		if updated.ChatChannel != channel {
			t.Errorf("updated = %+v", updated)
		}
		props, _ := captured["properties"].(map[string]any)
		if len(props) != 1 {
			t.Errorf("patched properties = %v, want only Chat Channel", props)
		}
	})

	t.Run("empty patch is rejected locally", func(t *testing.T) {
		ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("empty patch reached the server")
		})
		if _, err := ad.UpdateTicket(context.Background(), "p1", adapter.TicketPatch{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestNotionAdapter_GetCheckboxProperty(t *testing.T) {
	t.Run("reads the checkbox value", func(t *testing.T) {
		ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/pages/p1/properties/prop-done" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "checkbox", "checkbox": true})
		})

		checked, err := ad.GetCheckboxProperty(context.Background(), "p1", "prop-done")
		if err != nil {
			t.Fatalf("GetCheckboxProperty() error = %v", err)
		}
		if !checked {
			t.Error("checked = false, want true")
		}
	})

	t.Run("non-checkbox property is a parse error", func(t *testing.T) {
		ad := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"type": "select"})
		})

		_, err := ad.GetCheckboxProperty(context.Background(), "p1", "prop-done")
		var parse *domain.ParseError
		if !errors.As(err, &parse) {
			t.Errorf("error = %v, want ParseError", err)
		}
	})
}
