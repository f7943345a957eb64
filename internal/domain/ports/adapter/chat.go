package adapter

import (
	"context"

	"helpdesk-bridge/internal/domain/model"
)

// ChatUser is a user of the team-messaging service.
type ChatUser struct {
	ID    string
	Email string
	Name  string
}

// ChatAdapter is the port for the team-messaging system.
type ChatAdapter interface {
	CreateChannel(ctx context.Context, name string) (*model.ChannelInfo, error)
	ListChannelMembers(ctx context.Context, channelID string) ([]string, error)
	ListAllUsers(ctx context.Context) ([]ChatUser, error)

	// InviteUsers is idempotent: inviting an existing member is not an error.
	InviteUsers(ctx context.Context, channelID string, userIDs []string) error

	SetChannelTopic(ctx context.Context, channelID, topic string) error
	PostMessage(ctx context.Context, channelID, text string) error
}
