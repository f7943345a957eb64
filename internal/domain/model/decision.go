package model

// DecisionKind tags the two AIDecision variants.
type DecisionKind string

const (
	DecisionExisting DecisionKind = "existing"
	DecisionNew      DecisionKind = "new"
)

// AIDecision is the LLM's verdict: reuse an existing tracker record or
// create a new one. Exactly one of Existing/New is set, per Kind.
type AIDecision struct {
	Kind     DecisionKind
	Existing *Ticket
	New      *NewTicketSpec
}

func ExistingDecision(t Ticket) *AIDecision {
	return &AIDecision{Kind: DecisionExisting, Existing: &t}
}

func NewDecision(spec NewTicketSpec) *AIDecision {
	return &AIDecision{Kind: DecisionNew, New: &spec}
}
