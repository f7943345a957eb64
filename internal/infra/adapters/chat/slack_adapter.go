// File: internal/infra/adapters/chat/slack_adapter.go
package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/domain/ports/adapter"
	"helpdesk-bridge/internal/infra/metrics"
)

const serviceName = "chat"

// Compile-time assurance this adapter satisfies the port
var _ adapter.ChatAdapter = (*SlackAdapter)(nil)

// SlackAdapter implements adapter.ChatAdapter via the Slack Web API.
type SlackAdapter struct {
	api *slack.Client
}

func NewSlackAdapter(token string, opts ...slack.Option) (*SlackAdapter, error) {
	if token == "" {
		return nil, errors.New("slack token empty")
	}
	return &SlackAdapter{api: slack.New(token, opts...)}, nil
}

func (s *SlackAdapter) CreateChannel(ctx context.Context, name string) (*model.ChannelInfo, error) {
	start := time.Now()
	ch, err := s.api.CreateConversationContext(ctx, slack.CreateConversationParams{ChannelName: name})
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &model.ChannelInfo{ChannelID: ch.ID, URL: channelURL(ch.ID)}, nil
}

func (s *SlackAdapter) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var (
		members []string
		cursor  string
	)
	for {
		params := &slack.GetUsersInConversationParameters{ChannelID: channelID, Limit: 200, Cursor: cursor}
		start := time.Now()
		page, next, err := s.api.GetUsersInConversationContext(ctx, params)
		metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
		if err != nil {
			return nil, wrapErr(err)
		}
		members = append(members, page...)
		if next == "" {
			return members, nil
		}
		cursor = next
	}
}

func (s *SlackAdapter) ListAllUsers(ctx context.Context) ([]adapter.ChatUser, error) {
	start := time.Now()
	users, err := s.api.GetUsersContext(ctx)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]adapter.ChatUser, 0, len(users))
	for _, u := range users {
		if u.Deleted || u.IsBot || u.ID == "USLACKBOT" {
			continue
		}
		name := u.RealName
		if name == "" {
			name = u.Name
		}
		out = append(out, adapter.ChatUser{ID: u.ID, Email: u.Profile.Email, Name: name})
	}
	return out, nil
}

func (s *SlackAdapter) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	start := time.Now()
	_, err := s.api.InviteUsersToConversationContext(ctx, channelID, userIDs...)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil || inviteBenign(err))
	if err != nil && !inviteBenign(err) {
		return wrapErr(err)
	}
	return nil
}

func (s *SlackAdapter) SetChannelTopic(ctx context.Context, channelID, topic string) error {
	start := time.Now()
	_, err := s.api.SetTopicOfConversationContext(ctx, channelID, topic)
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *SlackAdapter) PostMessage(ctx context.Context, channelID, text string) error {
	start := time.Now()
	_, _, err := s.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	metrics.ObserveAdapterCall(serviceName, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func channelURL(id string) string {
	return "https://app.slack.com/archives/" + id
}

// inviteBenign keeps InviteUsers idempotent: inviting someone who is
// already in the channel (or the bot itself) is not a failure.
func inviteBenign(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already_in_channel") || strings.Contains(msg, "cant_invite_self")
}

func wrapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return &domain.RemoteError{Service: serviceName, Status: http.StatusTooManyRequests, Body: err.Error()}
	}
	// The Slack Web API reports errors in-band over HTTP 200.
	return &domain.RemoteError{Service: serviceName, Status: http.StatusOK, Body: err.Error()}
}
