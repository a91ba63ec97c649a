package handlers

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/JulianoPassing/scc-ticket-hp/ticket"
)

// sessionPlatform is the discordgo implementation of ticket.Platform.
// Reads go to the gateway state cache first and fall back to REST.
type sessionPlatform struct {
	s *discordgo.Session
}

var _ ticket.Platform = (*sessionPlatform)(nil)

func NewPlatform(s *discordgo.Session) ticket.Platform {
	return &sessionPlatform{s: s}
}

func (p *sessionPlatform) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	return p.s.GuildChannels(guildID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if p.s.State != nil {
		if ch, err := p.s.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return p.s.Channel(channelID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	return p.s.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := p.s.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return err
}

func (p *sessionPlatform) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	return p.s.GuildRoles(guildID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if p.s.State != nil {
		if m, err := p.s.State.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	return p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	return p.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
}

func (p *sessionPlatform) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return p.s.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) SetPermission(ctx context.Context, channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error {
	return p.s.ChannelPermissionSet(channelID, targetID, targetType, allow, deny, discordgo.WithContext(ctx))
}

// interactionReplier answers one interaction through the session.
type interactionReplier struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func (r *interactionReplier) Respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	return r.s.InteractionRespond(r.i, resp, discordgo.WithContext(ctx))
}

func (r *interactionReplier) Followup(ctx context.Context, content string) error {
	_, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
		Content:         content,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	return err
}
