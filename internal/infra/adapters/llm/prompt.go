// File: internal/infra/adapters/llm/prompt.go
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
)

const serviceName = "llm"

const systemPrompt = `You triage customer-support conversations into a ticket tracker.
Given the existing tickets and a new conversation, either pick the one most
relevant existing ticket or propose a new one.

Respond with a single JSON object and nothing else. One of:
  {"action":"existing","ticket_id":"<id of the chosen ticket>"}
  {"action":"new","title":"<short title>","summary":"<one-sentence summary>","slug":"<short-url-safe-slug>"}

The slug must be lowercase letters, digits and hyphens only.
Only choose "existing" when the conversation is clearly about the same issue.`

// newEncoder returns the tokenizer used to keep the candidate block
// within budget; falls back to cl100k_base for models tiktoken does not know.
func newEncoder(model string) *tiktoken.Tiktoken {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return enc
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
}

// renderCandidates serializes tickets one per line, stopping once the
// token budget is spent so a large tracker cannot blow up the prompt.
func renderCandidates(candidates []model.Ticket, budget int, enc *tiktoken.Tiktoken) string {
	if len(candidates) == 0 {
		return "(no existing tickets)"
	}
	var (
		sb    strings.Builder
		spent int
	)
	for _, t := range candidates {
		line := fmt.Sprintf("- %s | %s | %s\n", t.TicketID, t.Title, t.Summary)
		if enc != nil && budget > 0 {
			n := len(enc.Encode(line, nil, nil))
			if spent+n > budget && spent > 0 {
				sb.WriteString("- (further tickets omitted)\n")
				break
			}
			spent += n
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func buildUserPrompt(candidates []model.Ticket, messageBody string, conv *adapter.Conversation, budget int, enc *tiktoken.Tiktoken) string {
	var sb strings.Builder
	sb.WriteString("Existing tickets (id | title | summary):\n")
	sb.WriteString(renderCandidates(candidates, budget, enc))
	sb.WriteString("\nNew conversation:\n")
	if conv != nil && conv.Subject != "" {
		sb.WriteString("Subject: " + conv.Subject + "\n")
	}
	if conv != nil && conv.Preview != "" {
		sb.WriteString("Latest message preview: " + conv.Preview + "\n")
	}
	sb.WriteString("Message:\n" + messageBody + "\n")
	return sb.String()
}

type decisionJSON struct {
	Action   string `json:"action"`
	TicketID string `json:"ticket_id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Slug     string `json:"slug"`
}

// parseDecision turns the model's raw reply into an AIDecision, mapping
// an "existing" pick back onto the candidate it names.
func parseDecision(raw string, candidates []model.Ticket) (*model.AIDecision, error) {
	cleaned := stripFences(raw)
	var d decisionJSON
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, &domain.ParseError{Service: serviceName, Detail: fmt.Sprintf("bad decision JSON: %v", err)}
	}

	switch strings.ToLower(d.Action) {
	case "existing":
		for _, t := range candidates {
			if strings.EqualFold(t.TicketID, d.TicketID) {
				return model.ExistingDecision(t), nil
			}
		}
		return nil, &domain.ParseError{Service: serviceName, Detail: fmt.Sprintf("decision names unknown ticket %q", d.TicketID)}

	case "new":
		if d.Title == "" {
			return nil, &domain.ParseError{Service: serviceName, Detail: "new-ticket decision without a title"}
		}
		slug := slugify(d.Slug)
		if slug == "" {
			slug = slugify(d.Title)
		}
		if slug == "" {
			return nil, &domain.ParseError{Service: serviceName, Detail: "new-ticket decision without a usable slug"}
		}
		return model.NewDecision(model.NewTicketSpec{Title: d.Title, Summary: d.Summary, Slug: slug}), nil

	default:
		return nil, &domain.ParseError{Service: serviceName, Detail: fmt.Sprintf("unknown decision action %q", d.Action)}
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}
