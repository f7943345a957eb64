package model_test

import (
	"errors"
	"testing"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
)

func TestExtractChannelID(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "archive URL", in: "https://app.slack.com/archives/C04HL53GPLA/p1700000000", want: "C04HL53GPLA"},
		{name: "archive URL without trailing segment", in: "https://app.slack.com/archives/C04HL53GPLA", want: "C04HL53GPLA"},
		{name: "raw channel id round-trips", in: "C04HL53GPLA", want: "C04HL53GPLA"},
		{name: "raw id with surrounding whitespace", in: "  C04HL53GPLA ", want: "C04HL53GPLA"},
		{name: "URL without archives segment", in: "https://app.slack.com/client/T123/C456", wantErr: true},
		{name: "lowercase value is not a raw id", in: "c04hl53gpla", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "free text", in: "ask in the general channel", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := model.ExtractChannelID(tc.in)
			if tc.wantErr {
				var invalid *domain.InvalidInputError
				if err == nil || !errors.As(err, &invalid) {
					t.Fatalf("ExtractChannelID(%q) error = %v, want InvalidInputError", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractChannelID(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ExtractChannelID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractConversationID(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "URL takes the last path segment", in: "https://missive.example.com/inboxes/x/conversations/abc123", want: "abc123"},
		{name: "trailing slash is ignored", in: "https://missive.example.com/conversations/abc123/", want: "abc123"},
		{name: "bare id passes through", in: "abc123", want: "abc123"},
		{name: "whitespace is trimmed", in: " abc123 ", want: "abc123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := model.ExtractConversationID(tc.in); got != tc.want {
				t.Errorf("ExtractConversationID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTicketConversations(t *testing.T) {
	t.Run("splits and trims the comma-joined list", func(t *testing.T) {
		tk := model.Ticket{LinkedConversations: "https://a/conv-1, https://a/conv-2 ,,https://a/conv-3"}
		got := tk.Conversations()
		want := []string{"https://a/conv-1", "https://a/conv-2", "https://a/conv-3"}
		if len(got) != len(want) {
			t.Fatalf("Conversations() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Conversations()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("empty value yields nil", func(t *testing.T) {
		if got := (model.Ticket{LinkedConversations: "  "}).Conversations(); got != nil {
			t.Errorf("Conversations() = %v, want nil", got)
		}
	})

	t.Run("HasConversation matches exact entries", func(t *testing.T) {
		tk := model.Ticket{LinkedConversations: "https://a/conv-1,https://a/conv-2"}
		if !tk.HasConversation("https://a/conv-2") {
			t.Error("HasConversation() = false for a linked URL")
		}
		if tk.HasConversation("https://a/conv-3") {
			t.Error("HasConversation() = true for an unlinked URL")
		}
	})

	t.Run("WithConversation appends, or starts the list", func(t *testing.T) {
		tk := model.Ticket{LinkedConversations: "https://a/conv-1"}
		if got := tk.WithConversation("https://a/conv-2"); got != "https://a/conv-1,https://a/conv-2" {
			t.Errorf("WithConversation() = %q", got)
		}
		if got := (model.Ticket{}).WithConversation("https://a/conv-1"); got != "https://a/conv-1" {
			t.Errorf("WithConversation() on empty = %q", got)
		}
	})
}

func TestChannelName(t *testing.T) {
	if got := model.ChannelName("JMP-42", "login-broken"); got != "jmp-42-login-broken" {
		t.Errorf("ChannelName() = %q, want jmp-42-login-broken", got)
	}
}

func TestRequestReset(t *testing.T) {
	completed := func() *model.Request {
		req := model.NewRequest("r1", "conv-1", "https://a/conv-1", "body")
		for i := range req.Steps {
			req.Steps[i].Status = model.StepStatusCompleted
			req.Steps[i].Result = model.TicketsResult([]model.Ticket{{TicketID: "JMP-1"}})
			req.Steps[i].Error = ""
		}
		req.Status = model.RequestStatusCompleted
		return req
	}

	t.Run("ResetFrom keeps earlier results and clears the rest", func(t *testing.T) {
		// --- Arrange ---
		req := completed()

		// --- Act ---
		req.ResetFrom(model.StepCreateOrUpdateTracker)

		// --- Assert ---
		if req.Status != model.RequestStatusPending {
			t.Errorf("status = %s, want pending", req.Status)
		}
		for _, st := range []model.StepType{model.StepCheckExistingTickets, model.StepAIAnalysis} {
			s := req.Step(st)
			if s.Status != model.StepStatusCompleted || s.Result == nil {
				t.Errorf("step %s lost its completed result", st)
			}
		}
		for _, st := range []model.StepType{model.StepCreateOrUpdateTracker, model.StepMaybeCreateChatChannel, model.StepMaybeUpdateTrackerChat, model.StepAddOperatorsToChat} {
			s := req.Step(st)
			if s.Status != model.StepStatusPending || s.Result != nil || s.StartedAt != nil || s.Error != "" {
				t.Errorf("step %s not reset: %+v", st, s)
			}
		}
	})

	t.Run("ResetAll clears every step", func(t *testing.T) {
		req := completed()
		req.ResetAll()
		for _, st := range model.StepOrder() {
			if s := req.Step(st); s.Status != model.StepStatusPending || s.Result != nil {
				t.Errorf("step %s not reset", st)
			}
		}
	})
}

func TestRequestClone(t *testing.T) {
	// --- Arrange ---
	req := model.NewRequest("r1", "conv-1", "https://a/conv-1", "body")
	req.Steps[0].Status = model.StepStatusCompleted
	req.Steps[0].Result = model.TicketsResult([]model.Ticket{{TicketID: "JMP-1"}})
	req.Steps[1].Result = model.DecisionResult(model.ExistingDecision(model.Ticket{TicketID: "JMP-1"}))
	req.Steps[2].Result = model.TicketResult(model.Ticket{TicketID: "JMP-1"})
	req.Steps[3].Result = model.ChannelResult(model.ChannelInfo{ChannelID: "C1", URL: "https://app.slack.com/archives/C1"})

	// --- Act ---
	cp := req.Clone()
	cp.Status = model.RequestStatusFailed
	cp.Steps[0].Result.Tickets[0].TicketID = "MUTATED"
	cp.Steps[1].Result.Decision.Existing.TicketID = "MUTATED"
	cp.Steps[2].Result.Ticket.TicketID = "MUTATED"
	cp.Steps[3].Result.Channel.ChannelID = "MUTATED"

	// --- Assert ---
	if req.Status != model.RequestStatusPending {
		t.Error("clone shared the status field")
	}
	if req.Steps[0].Result.Tickets[0].TicketID != "JMP-1" {
		t.Error("clone shared the tickets slice")
	}
	if req.Steps[1].Result.Decision.Existing.TicketID != "JMP-1" {
		t.Error("clone shared the decision ticket")
	}
	if req.Steps[2].Result.Ticket.TicketID != "JMP-1" {
		t.Error("clone shared the ticket result")
	}
	if req.Steps[3].Result.Channel.ChannelID != "C1" {
		t.Error("clone shared the channel result")
	}
}

func TestNewRequestStepOrder(t *testing.T) {
	req := model.NewRequest("r1", "conv-1", "u", "b")
	order := model.StepOrder()
	if len(req.Steps) != len(order) {
		t.Fatalf("steps = %d, want %d", len(req.Steps), len(order))
	}
	for i, st := range order {
		if req.Steps[i].Type != st {
			t.Errorf("steps[%d] = %s, want %s", i, req.Steps[i].Type, st)
		}
		if req.Steps[i].Status != model.StepStatusPending {
			t.Errorf("steps[%d] status = %s, want pending", i, req.Steps[i].Status)
		}
	}
}
