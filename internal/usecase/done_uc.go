// File: internal/usecase/done_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/logging"
	"helpdesk-bridge/internal/infra/metrics"
)

// Compile-time check
var _ DoneUseCase = (*doneUC)(nil)

// TrackerEvent is the decoded tracker webhook payload the usecase cares about.
type TrackerEvent struct {
	Type              string
	PageID            string
	UpdatedProperties []string
	AttemptNumber     int
}

// DoneUseCase reacts to ticket completion: it posts a done notice to the
// ticket's chat channel and to each linked helpdesk conversation.
// Per-target failures are logged, never surfaced: completion noise must
// not fail the webhook.
type DoneUseCase interface {
	HandleTrackerEvent(ctx context.Context, ev TrackerEvent)
	NotifyTicketDone(ctx context.Context, t model.Ticket)
}

type doneUC struct {
	kb             adapter.KnowledgeBaseAdapter
	chat           adapter.ChatAdapter
	helpdesk       adapter.HelpdeskAdapter
	donePropertyID string
	defaultChannel string
	log            *zerolog.Logger
}

func NewDoneUseCase(kb adapter.KnowledgeBaseAdapter, chat adapter.ChatAdapter, helpdesk adapter.HelpdeskAdapter, donePropertyID, defaultChannel string, logger *zerolog.Logger) *doneUC {
	return &doneUC{
		kb:             kb,
		chat:           chat,
		helpdesk:       helpdesk,
		donePropertyID: donePropertyID,
		defaultChannel: defaultChannel,
		log:            logger,
	}
}

func (d *doneUC) HandleTrackerEvent(ctx context.Context, ev TrackerEvent) {
	if ev.Type != "page.properties_updated" {
		return
	}
	if !contains(ev.UpdatedProperties, d.donePropertyID) {
		return
	}
	if !d.resolveChecked(ctx, ev) {
		return
	}

	ticket, err := d.kb.GetTicket(ctx, ev.PageID)
	if err != nil {
		d.log.Warn().Err(err).Str("page_id", ev.PageID).Msg("cannot load ticket for done notification")
		return
	}
	d.NotifyTicketDone(ctx, *ticket)
}

// resolveChecked determines the new checkbox value. The webhook payload
// does not carry it, so the property is read back from the knowledge
// base. When that read fails, a redelivery (attempt_number > 1) is
// treated as checked; a first attempt is skipped with a warning rather
// than guessed at.
func (d *doneUC) resolveChecked(ctx context.Context, ev TrackerEvent) bool {
	checked, err := d.kb.GetCheckboxProperty(ctx, ev.PageID, d.donePropertyID)
	if err == nil {
		return checked
	}
	if ev.AttemptNumber > 1 {
		d.log.Warn().Err(err).Str("page_id", ev.PageID).
			Msg("property read failed on redelivery, assuming checked")
		return true
	}
	d.log.Warn().Err(err).Str("page_id", ev.PageID).
		Msg("property read failed, skipping done notification")
	return false
}

func (d *doneUC) NotifyTicketDone(ctx context.Context, t model.Ticket) {
	msg := fmt.Sprintf("Ticket %s has been marked as Done.", t.TicketID)
	ctx = logging.WithTicketID(ctx, t.TicketID)
	log := logging.With(ctx, d.log)

	channel := t.ChatChannel
	if channel == "" {
		channel = d.defaultChannel
	}
	if channel == "" {
		log.Warn().Msg("ticket has no chat channel and no default is configured, skipping chat notice")
	} else if channelID, err := model.ExtractChannelID(channel); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("unparseable chat channel, skipping chat notice")
	} else if err := d.chat.PostMessage(ctx, channelID, msg); err != nil {
		metrics.IncNotifyDelivery("chat", false)
		log.Error().Err(err).Str("channel_id", channelID).Msg("chat done notice failed")
	} else {
		metrics.IncNotifyDelivery("chat", true)
	}

	for _, conv := range t.Conversations() {
		convID := model.ExtractConversationID(conv)
		if convID == "" {
			continue
		}
		if err := d.helpdesk.ReplyToConversation(ctx, convID, msg); err != nil {
			metrics.IncNotifyDelivery("helpdesk", false)
			log.Error().Err(err).Str("conversation_id", convID).Msg("helpdesk done notice failed")
			continue
		}
		metrics.IncNotifyDelivery("helpdesk", true)
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
