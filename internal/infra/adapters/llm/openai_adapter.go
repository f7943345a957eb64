// File: internal/infra/adapters/llm/openai_adapter.go
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.LLMAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements the decision oracle on Chat Completions.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	budget int
	enc    *tiktoken.Tiktoken
}

func NewOpenAIAdapter(apiKey, baseURL, model string, candidateBudget int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{
		client: openai.NewClient(opts...),
		model:  model,
		budget: candidateBudget,
		enc:    newEncoder(model),
	}, nil
}

func (o *OpenAIAdapter) FindOrCreateTicket(ctx context.Context, candidates []model.Ticket, messageBody string, conv *adapter.Conversation) (*model.AIDecision, error) {
	userPrompt := buildUserPrompt(candidates, messageBody, conv, o.budget, o.enc)

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0),
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, wrapOpenAIErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.ParseError{Service: serviceName, Detail: "no choices in response"}
	}
	return parseDecision(resp.Choices[0].Message.Content, candidates)
}

func wrapOpenAIErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &domain.RemoteError{Service: serviceName, Status: apierr.StatusCode, Body: apierr.Message}
	}
	return &domain.TransportError{Service: serviceName, Cause: err}
}
