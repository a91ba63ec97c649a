package ticket

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// The manager only talks to the chat platform through these interfaces.
// handlers provides the discordgo-backed implementation.

type ChannelLister interface {
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
}

type ChannelGetter interface {
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
}

type ChannelCreator interface {
	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
}

type ChannelDeleter interface {
	DeleteChannel(ctx context.Context, channelID, reason string) error
}

type RoleLister interface {
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
}

type MemberGetter interface {
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// MessageFetcher returns up to limit of the most recent messages, in the
// order the platform lists them.
type MessageFetcher interface {
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

type PermissionSetter interface {
	SetPermission(ctx context.Context, channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error
}

type Platform interface {
	ChannelLister
	ChannelGetter
	ChannelCreator
	ChannelDeleter
	RoleLister
	MemberGetter
	MessageFetcher
	MessageSender
	PermissionSetter
}

// Replier answers a single interaction.
type Replier interface {
	Respond(ctx context.Context, resp *discordgo.InteractionResponse) error
	Followup(ctx context.Context, content string) error
}
