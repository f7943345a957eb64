package model

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusRunning   RequestStatus = "running"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
)

// Request is one pipeline invocation triggered by one helpdesk event.
// Steps always holds the six canonical steps in execution order.
type Request struct {
	ID                    string
	SourceConversationID  string
	SourceConversationURL string
	MessageBody           string
	Status                RequestStatus
	Steps                 []Step
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewRequest builds a pending request with all six steps pending.
func NewRequest(id, conversationID, conversationURL, messageBody string) *Request {
	now := time.Now()
	order := StepOrder()
	steps := make([]Step, len(order))
	for i, t := range order {
		steps[i] = Step{Type: t, Status: StepStatusPending}
	}
	return &Request{
		ID:                    id,
		SourceConversationID:  conversationID,
		SourceConversationURL: conversationURL,
		MessageBody:           messageBody,
		Status:                RequestStatusPending,
		Steps:                 steps,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Step returns the step of the given type, or nil if absent.
func (r *Request) Step(t StepType) *Step {
	for i := range r.Steps {
		if r.Steps[i].Type == t {
			return &r.Steps[i]
		}
	}
	return nil
}

// StepResultOf is a convenience accessor for a completed step's payload.
func (r *Request) StepResultOf(t StepType) *StepResult {
	if s := r.Step(t); s != nil {
		return s.Result
	}
	return nil
}

// Terminal reports whether the request reached a final state.
func (r *Request) Terminal() bool {
	return r.Status == RequestStatusCompleted || r.Status == RequestStatusFailed
}

// ResetFrom clears the given step and every later step back to pending
// and returns the request to pending. Earlier completed steps keep their
// results, so a re-run does not redo their external work.
func (r *Request) ResetFrom(t StepType) {
	hit := false
	for i := range r.Steps {
		if r.Steps[i].Type == t {
			hit = true
		}
		if hit {
			r.Steps[i].Reset()
		}
	}
	r.Status = RequestStatusPending
	r.UpdatedAt = time.Now()
}

// ResetAll clears every step back to pending.
func (r *Request) ResetAll() {
	r.ResetFrom(r.Steps[0].Type)
}

// Clone returns a deep, point-in-time copy safe to hand to subscribers.
func (r *Request) Clone() *Request {
	cp := *r
	cp.Steps = make([]Step, len(r.Steps))
	for i, s := range r.Steps {
		sc := s
		if s.StartedAt != nil {
			t := *s.StartedAt
			sc.StartedAt = &t
		}
		if s.CompletedAt != nil {
			t := *s.CompletedAt
			sc.CompletedAt = &t
		}
		if s.Result != nil {
			sc.Result = s.Result.clone()
		}
		cp.Steps[i] = sc
	}
	return &cp
}

func (res *StepResult) clone() *StepResult {
	cp := StepResult{}
	if res.Tickets != nil {
		cp.Tickets = make([]Ticket, len(res.Tickets))
		copy(cp.Tickets, res.Tickets)
	}
	if res.Decision != nil {
		d := *res.Decision
		if res.Decision.Existing != nil {
			t := *res.Decision.Existing
			d.Existing = &t
		}
		if res.Decision.New != nil {
			n := *res.Decision.New
			d.New = &n
		}
		cp.Decision = &d
	}
	if res.Ticket != nil {
		t := *res.Ticket
		cp.Ticket = &t
	}
	if res.Channel != nil {
		c := *res.Channel
		cp.Channel = &c
	}
	return &cp
}
