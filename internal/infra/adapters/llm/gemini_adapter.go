// File: internal/infra/adapters/llm/gemini_adapter.go
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"google.golang.org/genai"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.LLMAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter implements the decision oracle using the official SDK.
type GeminiAdapter struct {
	client *genai.Client
	model  string
	budget int
	enc    *tiktoken.Tiktoken
}

func NewGeminiAdapter(ctx context.Context, apiKey, model string, candidateBudget int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key empty")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model, budget: candidateBudget, enc: newEncoder(model)}, nil
}

func (g *GeminiAdapter) FindOrCreateTicket(ctx context.Context, candidates []model.Ticket, messageBody string, conv *adapter.Conversation) (*model.AIDecision, error) {
	userPrompt := buildUserPrompt(candidates, messageBody, conv, g.budget, g.enc)

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), cfg)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &domain.TransportError{Service: serviceName, Cause: err}
	}
	text := resp.Text()
	if text == "" {
		return nil, &domain.ParseError{Service: serviceName, Detail: "empty response"}
	}
	return parseDecision(text, candidates)
}
