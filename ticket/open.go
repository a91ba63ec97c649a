package ticket

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/events"
)

const (
	memberAllow  = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory | discordgo.PermissionAttachFiles
	supportAllow = memberAllow | discordgo.PermissionManageMessages
)

// RequestOpen handles the Open Ticket button: it refuses requesters that
// already have a ticket and otherwise asks for the reason.
func (m *Manager) RequestOpen(ctx context.Context, in *Interaction) error {
	existing, err := m.guard.FindTicket(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return m.deny(ctx, in, err)
	}
	if existing != nil {
		return m.deny(ctx, in, ErrDuplicateTicket, "channel", mentionChannel(existing.ID))
	}
	return in.Reply.Modal(ctx, ModalOpen, m.msgs.T("modal.open.title"), InputOpenReason, m.msgs.T("modal.open.label"))
}

// SubmitOpen handles the reason modal and creates the ticket channel.
func (m *Manager) SubmitOpen(ctx context.Context, in *Interaction, reason string) (*discordgo.Channel, error) {
	log := m.logFor(in)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, m.deny(ctx, in, ErrReasonRequired)
	}

	release, ok, err := m.lock.Acquire(ctx, in.GuildID, in.User.ID)
	if err != nil {
		log.Warn("open lock unavailable, relying on channel scan", zap.Error(err))
		release = func() {}
	} else if !ok {
		return nil, m.deny(ctx, in, ErrOpenInProgress)
	}
	defer release()

	// The user may have submitted the modal twice.
	existing, err := m.guard.FindTicket(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return nil, m.deny(ctx, in, err)
	}
	if existing != nil {
		return nil, m.deny(ctx, in, ErrDuplicateTicket, "channel", mentionChannel(existing.ID))
	}

	if err := m.checkResources(ctx, in.GuildID); err != nil {
		log.Warn("ticket resources missing", zap.Error(err))
		return nil, m.deny(ctx, in, err)
	}

	ch, err := m.platform.CreateChannel(ctx, in.GuildID, m.channelData(in))
	if err != nil {
		log.Error("create ticket channel", zap.Error(err))
		return nil, m.deny(ctx, in, fmt.Errorf("create channel: %w", err))
	}

	if _, err := m.platform.SendMessage(ctx, ch.ID, m.welcomeMessage(in.User.ID, reason)); err != nil {
		log.Warn("send welcome message", zap.String("ticket_channel_id", ch.ID), zap.Error(err))
	}

	if err := in.Reply.Ephemeral(ctx, m.msgs.T("ticket.created", "channel", mentionChannel(ch.ID))); err != nil {
		log.Warn("acknowledge ticket creation", zap.Error(err))
	}

	e := events.New(events.TicketOpened, m.now())
	e.GuildID = in.GuildID
	e.ChannelID = ch.ID
	e.ChannelName = ch.Name
	e.UserID = in.User.ID
	e.OwnerID = in.User.ID
	e.Reason = reason
	m.publish(ctx, e)

	log.Info("ticket opened", zap.String("ticket_channel_id", ch.ID), zap.String("ticket_channel", ch.Name))
	return ch, nil
}

// checkResources verifies the support role and category before anything is
// created, so a misconfiguration leaves no half-built ticket behind.
func (m *Manager) checkResources(ctx context.Context, guildID string) error {
	if m.cfg.SupportRoleID == "" {
		return ErrSupportRoleMissing
	}
	roles, err := m.platform.GuildRoles(ctx, guildID)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	found := false
	for _, r := range roles {
		if r.ID == m.cfg.SupportRoleID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("role %s: %w", m.cfg.SupportRoleID, ErrSupportRoleMissing)
	}

	if m.cfg.CategoryID == "" {
		return nil
	}
	cat, err := m.platform.Channel(ctx, m.cfg.CategoryID)
	if err != nil || cat.Type != discordgo.ChannelTypeGuildCategory || cat.GuildID != guildID {
		return fmt.Errorf("category %s: %w", m.cfg.CategoryID, ErrCategoryMissing)
	}
	return nil
}

func (m *Manager) channelData(in *Interaction) discordgo.GuildChannelCreateData {
	return discordgo.GuildChannelCreateData{
		Name:     ChannelName(m.cfg.ChannelPrefix, in.User),
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    Tag(in.User.ID),
		ParentID: m.cfg.CategoryID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: in.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
			{ID: in.User.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: memberAllow},
			{ID: m.cfg.SupportRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: supportAllow},
		},
	}
}

func (m *Manager) welcomeMessage(userID, reason string) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       m.msgs.T("ticket.welcome_title"),
		Description: m.msgs.T("ticket.welcome_body", "user", mentionUser(userID), "reason", reason),
		Color:       0x3498db,
		Footer:      &discordgo.MessageEmbedFooter{Text: m.msgs.T("ticket.welcome_footer")},
	}
	return &discordgo.MessageSend{
		Content: mentionUser(userID) + " " + mentionRole(m.cfg.SupportRoleID),
		Embeds:  []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{userID},
			Roles: []string{m.cfg.SupportRoleID},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    m.msgs.T("ticket.close_button"),
						Style:    discordgo.DangerButton,
						CustomID: ButtonClose,
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
				},
			},
		},
	}
}
