package model

import "time"

type StepType string

const (
	StepCheckExistingTickets   StepType = "check_existing_tickets"
	StepAIAnalysis             StepType = "ai_analysis"
	StepCreateOrUpdateTracker  StepType = "create_or_update_tracker"
	StepMaybeCreateChatChannel StepType = "maybe_create_chat_channel"
	StepMaybeUpdateTrackerChat StepType = "maybe_update_tracker_with_chat"
	StepAddOperatorsToChat     StepType = "add_operators_to_chat"
)

// StepOrder is the canonical, total execution order.
func StepOrder() []StepType {
	return []StepType{
		StepCheckExistingTickets,
		StepAIAnalysis,
		StepCreateOrUpdateTracker,
		StepMaybeCreateChatChannel,
		StepMaybeUpdateTrackerChat,
		StepAddOperatorsToChat,
	}
}

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepResult carries the typed payload of a completed step. Exactly one
// field is set, matching the step type that produced it; all fields nil
// means Unit (add_operators_to_chat).
type StepResult struct {
	Tickets  []Ticket
	Decision *AIDecision
	Ticket   *Ticket
	Channel  *ChannelInfo
}

func TicketsResult(ts []Ticket) *StepResult    { return &StepResult{Tickets: ts} }
func DecisionResult(d *AIDecision) *StepResult { return &StepResult{Decision: d} }
func TicketResult(t Ticket) *StepResult        { return &StepResult{Ticket: &t} }
func ChannelResult(c ChannelInfo) *StepResult  { return &StepResult{Channel: &c} }
func UnitResult() *StepResult                  { return &StepResult{} }

// Step is one unit of pipeline work.
// Invariants: StartedAt <= CompletedAt; Result non-nil iff completed;
// Error non-empty iff failed.
type Step struct {
	Type        StepType
	Status      StepStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Result      *StepResult
	Error       string
}

// Reset returns the step to its initial pending state.
func (s *Step) Reset() {
	s.Status = StepStatusPending
	s.StartedAt = nil
	s.CompletedAt = nil
	s.Result = nil
	s.Error = ""
}
