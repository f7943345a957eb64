// File: internal/usecase/pipeline_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/logging"
	"helpdesk-bridge/internal/infra/metrics"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// Adapters bundles the external collaborators one request runs against.
// Test doubles may be injected per request.
type Adapters struct {
	Helpdesk adapter.HelpdeskAdapter
	KB       adapter.KnowledgeBaseAdapter
	Chat     adapter.ChatAdapter
	LLM      adapter.LLMAdapter
}

// InboundEvent is a new-message event from the helpdesk.
type InboundEvent struct {
	ConversationID  string
	ConversationURL string
	MessageBody     string
}

type PipelineUseCase interface {
	// NewRequest materialises an inbound event as a pending request.
	NewRequest(ev InboundEvent) *model.Request

	// Run executes the request's steps in canonical order, publishing a
	// snapshot on every state change. It never returns an error: failures
	// land in the request itself for the operator to retry.
	Run(ctx context.Context, req *model.Request)
}

type pipelineUC struct {
	ads         Adapters
	coord       *Coordinator
	callTimeout time.Duration
	log         *zerolog.Logger
}

func NewPipelineUseCase(ads Adapters, coord *Coordinator, callTimeout time.Duration, logger *zerolog.Logger) *pipelineUC {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &pipelineUC{ads: ads, coord: coord, callTimeout: callTimeout, log: logger}
}

func (p *pipelineUC) NewRequest(ev InboundEvent) *model.Request {
	return model.NewRequest(uuid.NewString(), ev.ConversationID, ev.ConversationURL, ev.MessageBody)
}

func (p *pipelineUC) Run(ctx context.Context, req *model.Request) {
	ctx = logging.WithRequestID(ctx, req.ID)
	ctx = logging.WithConversationID(ctx, req.SourceConversationID)
	log := logging.With(ctx, p.log)
	defer logging.TraceDuration(log, "PipelineUC.Run")()

	req.Status = model.RequestStatusRunning
	req.UpdatedAt = time.Now()
	p.coord.Publish(req)

	for _, st := range model.StepOrder() {
		step := req.Step(st)
		if step.Status == model.StepStatusCompleted {
			// Retry-safe: earlier results are durable within the request.
			continue
		}

		start := time.Now()
		step.Status = model.StepStatusRunning
		step.StartedAt = &start
		req.UpdatedAt = start
		p.coord.Publish(req)

		result, err := p.executeStep(ctx, req, st)

		end := time.Now()
		step.CompletedAt = &end
		req.UpdatedAt = end
		metrics.ObserveStep(string(st), end.Sub(start).Milliseconds(), err == nil)

		if err != nil {
			step.Status = model.StepStatusFailed
			step.Error = err.Error()
			log.Error().Err(err).Str("step", string(st)).Msg("step failed, halting request")
			p.coord.Publish(req)
			break
		}

		step.Status = model.StepStatusCompleted
		step.Result = result
		log.Debug().Str("step", string(st)).Dur("took", end.Sub(start)).Msg("step completed")
		p.coord.Publish(req)
	}

	req.Status = model.RequestStatusCompleted
	for i := range req.Steps {
		if req.Steps[i].Status == model.StepStatusFailed {
			req.Status = model.RequestStatusFailed
			break
		}
	}
	req.UpdatedAt = time.Now()
	metrics.IncRequest(string(req.Status))
	p.coord.Publish(req)
}

// executeStep dispatches to the step implementation and converts panics
// into step errors, so a misbehaving adapter can never take the worker down.
func (p *pipelineUC) executeStep(ctx context.Context, req *model.Request, st model.StepType) (res *model.StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic in step %s: %v", st, r)
		}
	}()

	switch st {
	case model.StepCheckExistingTickets:
		return p.stepCheckExistingTickets(ctx)
	case model.StepAIAnalysis:
		return p.stepAIAnalysis(ctx, req)
	case model.StepCreateOrUpdateTracker:
		return p.stepCreateOrUpdateTracker(ctx, req)
	case model.StepMaybeCreateChatChannel:
		return p.stepMaybeCreateChatChannel(ctx, req)
	case model.StepMaybeUpdateTrackerChat:
		return p.stepMaybeUpdateTrackerChat(ctx, req)
	case model.StepAddOperatorsToChat:
		return p.stepAddOperatorsToChat(ctx, req)
	default:
		return nil, &domain.MissingImplError{StepType: string(st)}
	}
}

// callCtx bounds a single adapter call.
func (p *pipelineUC) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.callTimeout)
}

// asTimeout maps a deadline hit to the typed timeout error for the service.
func (p *pipelineUC) asTimeout(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Service: service, After: p.callTimeout}
	}
	return err
}

func (p *pipelineUC) stepCheckExistingTickets(ctx context.Context) (*model.StepResult, error) {
	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	tickets, err := p.ads.KB.ListTickets(cctx)
	if err != nil {
		return nil, p.asTimeout("knowledgebase", err)
	}
	return model.TicketsResult(tickets), nil
}

func (p *pipelineUC) stepAIAnalysis(ctx context.Context, req *model.Request) (*model.StepResult, error) {
	prev := req.StepResultOf(model.StepCheckExistingTickets)
	if prev == nil {
		return nil, &domain.MissingImplError{StepType: string(model.StepAIAnalysis)}
	}

	cctx, cancel := p.callCtx(ctx)
	conv, err := p.ads.Helpdesk.GetConversation(cctx, req.SourceConversationID)
	cancel()
	if err != nil {
		return nil, p.asTimeout("helpdesk", err)
	}

	cctx, cancel = p.callCtx(ctx)
	decision, err := p.ads.LLM.FindOrCreateTicket(cctx, prev.Tickets, req.MessageBody, conv)
	cancel()
	if err != nil {
		return nil, p.asTimeout("llm", err)
	}
	return model.DecisionResult(decision), nil
}

func (p *pipelineUC) stepCreateOrUpdateTracker(ctx context.Context, req *model.Request) (*model.StepResult, error) {
	prev := req.StepResultOf(model.StepAIAnalysis)
	if prev == nil || prev.Decision == nil {
		return nil, &domain.MissingImplError{StepType: string(model.StepCreateOrUpdateTracker)}
	}
	decision := prev.Decision

	switch decision.Kind {
	case model.DecisionExisting:
		t := *decision.Existing
		if t.HasConversation(req.SourceConversationURL) {
			return model.TicketResult(t), nil
		}
		linked := t.WithConversation(req.SourceConversationURL)
		cctx, cancel := p.callCtx(ctx)
		defer cancel()
		updated, err := p.ads.KB.UpdateTicket(cctx, t.TrackerID, adapter.TicketPatch{LinkedConversations: &linked})
		if err != nil {
			return nil, p.asTimeout("knowledgebase", err)
		}
		return model.TicketResult(*updated), nil

	case model.DecisionNew:
		spec := decision.New
		cctx, cancel := p.callCtx(ctx)
		defer cancel()
		created, err := p.ads.KB.CreateTicket(cctx, model.Ticket{
			Title:               spec.Title,
			Summary:             spec.Summary,
			LinkedConversations: req.SourceConversationURL,
		})
		if err != nil {
			return nil, p.asTimeout("knowledgebase", err)
		}
		return model.TicketResult(*created), nil

	default:
		return nil, &domain.MissingImplError{StepType: string(model.StepCreateOrUpdateTracker)}
	}
}

func (p *pipelineUC) stepMaybeCreateChatChannel(ctx context.Context, req *model.Request) (*model.StepResult, error) {
	analysisRes := req.StepResultOf(model.StepAIAnalysis)
	trackerRes := req.StepResultOf(model.StepCreateOrUpdateTracker)
	if analysisRes == nil || analysisRes.Decision == nil || trackerRes == nil || trackerRes.Ticket == nil {
		return nil, &domain.MissingImplError{StepType: string(model.StepMaybeCreateChatChannel)}
	}
	decision, ticket := analysisRes.Decision, trackerRes.Ticket

	switch decision.Kind {
	case model.DecisionExisting:
		// The ticket already carries its channel: no remote call.
		channelID, err := model.ExtractChannelID(decision.Existing.ChatChannel)
		if err != nil {
			return nil, err
		}
		return model.ChannelResult(model.ChannelInfo{ChannelID: channelID, URL: decision.Existing.ChatChannel}), nil

	case model.DecisionNew:
		name := model.ChannelName(ticket.TicketID, decision.New.Slug)
		cctx, cancel := p.callCtx(ctx)
		defer cancel()
		ch, err := p.ads.Chat.CreateChannel(cctx, name)
		if err != nil {
			return nil, p.asTimeout("chat", err)
		}
		return model.ChannelResult(*ch), nil

	default:
		return nil, &domain.MissingImplError{StepType: string(model.StepMaybeCreateChatChannel)}
	}
}

func (p *pipelineUC) stepMaybeUpdateTrackerChat(ctx context.Context, req *model.Request) (*model.StepResult, error) {
	trackerRes := req.StepResultOf(model.StepCreateOrUpdateTracker)
	channelRes := req.StepResultOf(model.StepMaybeCreateChatChannel)
	if trackerRes == nil || trackerRes.Ticket == nil || channelRes == nil || channelRes.Channel == nil {
		return nil, &domain.MissingImplError{StepType: string(model.StepMaybeUpdateTrackerChat)}
	}
	ticket, channel := trackerRes.Ticket, channelRes.Channel

	if channel.URL == ticket.ChatChannel {
		// Tracker already points at this channel.
		return model.TicketResult(*ticket), nil
	}

	cctx, cancel := p.callCtx(ctx)
	defer cancel()
	updated, err := p.ads.KB.UpdateTicket(cctx, ticket.TrackerID, adapter.TicketPatch{ChatChannel: &channel.URL})
	if err != nil {
		return nil, p.asTimeout("knowledgebase", err)
	}
	return model.TicketResult(*updated), nil
}

func (p *pipelineUC) stepAddOperatorsToChat(ctx context.Context, req *model.Request) (*model.StepResult, error) {
	analysisRes := req.StepResultOf(model.StepAIAnalysis)
	channelRes := req.StepResultOf(model.StepMaybeCreateChatChannel)
	updatedRes := req.StepResultOf(model.StepMaybeUpdateTrackerChat)
	if analysisRes == nil || analysisRes.Decision == nil ||
		channelRes == nil || channelRes.Channel == nil ||
		updatedRes == nil || updatedRes.Ticket == nil {
		return nil, &domain.MissingImplError{StepType: string(model.StepAddOperatorsToChat)}
	}
	decision, channel, ticket := analysisRes.Decision, channelRes.Channel, updatedRes.Ticket

	cctx, cancel := p.callCtx(ctx)
	operators, err := p.ads.Helpdesk.GetParticipatingOperators(cctx, req.SourceConversationID)
	cancel()
	if err != nil {
		return nil, p.asTimeout("helpdesk", err)
	}

	cctx, cancel = p.callCtx(ctx)
	chatUsers, err := p.ads.Chat.ListAllUsers(cctx)
	cancel()
	if err != nil {
		return nil, p.asTimeout("chat", err)
	}

	targets := MatchUsers(operators, chatUsers)

	switch decision.Kind {
	case model.DecisionExisting:
		cctx, cancel = p.callCtx(ctx)
		members, err := p.ads.Chat.ListChannelMembers(cctx, channel.ChannelID)
		cancel()
		if err != nil {
			return nil, p.asTimeout("chat", err)
		}
		existing := make(map[string]struct{}, len(members))
		for _, m := range members {
			existing[m] = struct{}{}
		}
		var missing []string
		for _, id := range targets {
			if _, ok := existing[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			cctx, cancel = p.callCtx(ctx)
			err = p.ads.Chat.InviteUsers(cctx, channel.ChannelID, missing)
			cancel()
			if err != nil {
				return nil, p.asTimeout("chat", err)
			}
		}
		return model.UnitResult(), nil

	case model.DecisionNew:
		// Channel is fresh: no member diff needed. The adapter treats
		// "already a member" as success either way.
		if len(targets) > 0 {
			cctx, cancel = p.callCtx(ctx)
			err = p.ads.Chat.InviteUsers(cctx, channel.ChannelID, targets)
			cancel()
			if err != nil {
				return nil, p.asTimeout("chat", err)
			}
		}
		cctx, cancel = p.callCtx(ctx)
		err = p.ads.Chat.SetChannelTopic(cctx, channel.ChannelID, ticket.TrackerURL)
		cancel()
		if err != nil {
			return nil, p.asTimeout("chat", err)
		}
		return model.UnitResult(), nil

	default:
		return nil, &domain.MissingImplError{StepType: string(model.StepAddOperatorsToChat)}
	}
}
