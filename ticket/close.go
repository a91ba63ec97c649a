package ticket

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/events"
	"github.com/JulianoPassing/scc-ticket-hp/storage"
)

// RequestClose handles the Close Ticket button: only support members may
// close, and only inside a ticket channel.
func (m *Manager) RequestClose(ctx context.Context, in *Interaction) error {
	if _, err := m.authorizeClose(ctx, in); err != nil {
		return m.deny(ctx, in, err)
	}
	return in.Reply.Modal(ctx, ModalClose, m.msgs.T("modal.close.title"), InputCloseReason, m.msgs.T("modal.close.label"))
}

func (m *Manager) authorizeClose(ctx context.Context, in *Interaction) (*discordgo.Channel, error) {
	ch, err := m.platform.Channel(ctx, in.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel: %w", err)
	}
	if !IsTicket(ch) {
		return nil, ErrNotTicketChannel
	}
	if !hasRole(in.Roles, m.cfg.SupportRoleID) {
		return nil, ErrNotSupport
	}
	return ch, nil
}

// SubmitClose handles the closing-reason modal. Once the invoker has been
// acknowledged, archival problems are logged and never stop the channel
// from being deleted.
func (m *Manager) SubmitClose(ctx context.Context, in *Interaction, reason string) error {
	log := m.logFor(in)
	ch, err := m.authorizeClose(ctx, in)
	if err != nil {
		return m.deny(ctx, in, err)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return m.deny(ctx, in, ErrReasonRequired)
	}

	if err := in.Reply.Ephemeral(ctx, m.msgs.T("ticket.closing")); err != nil && !errors.Is(err, ErrAlreadyResponded) {
		log.Warn("acknowledge close", zap.Error(err))
	}

	msgs, err := m.platform.ChannelMessages(ctx, ch.ID, m.cfg.TranscriptLimit)
	if err != nil {
		log.Error("fetch ticket messages", zap.Error(err))
		if ferr := in.Reply.Followup(ctx, m.msgs.T("ticket.close_failed")); ferr != nil {
			log.Warn("follow up close failure", zap.Error(ferr))
		}
		return fmt.Errorf("fetch messages: %w", err)
	}

	// Mute the owner only once the close can no longer abort.
	ownerID, hasOwner := ResolveOwner(ch, m.cfg.SupportRoleID)
	if hasOwner {
		m.freeze(ctx, ch.ID, ownerID, log)
	}

	unknown := m.msgs.T("unknown")
	t := &Transcript{
		ChannelName: ch.Name,
		Owner:       unknown,
		Closer:      in.User.String(),
		Reason:      reason,
		Entries:     Entries(msgs, unknown),
		GeneratedAt: m.now(),
	}
	if hasOwner {
		t.Owner = m.ownerTag(ctx, in.GuildID, ownerID, t.Entries)
	}

	m.archive(ctx, in, ch, t, ownerID, log)

	if m.history != nil {
		rec := storage.ClosureRecord{
			ID:           uuid.NewString(),
			GuildID:      in.GuildID,
			ChannelID:    ch.ID,
			ChannelName:  ch.Name,
			OwnerID:      ownerID,
			OwnerTag:     t.Owner,
			CloserID:     in.User.ID,
			CloserTag:    t.Closer,
			Reason:       reason,
			MessageCount: len(t.Entries),
			ClosedAt:     t.GeneratedAt,
		}
		if err := m.history.AddClosure(ctx, rec); err != nil {
			log.Warn("record ticket closure", zap.Error(err))
		}
	}

	e := events.New(events.TicketClosed, t.GeneratedAt)
	e.GuildID = in.GuildID
	e.ChannelID = ch.ID
	e.ChannelName = ch.Name
	e.UserID = in.User.ID
	e.OwnerID = ownerID
	e.Reason = reason
	m.publish(ctx, e)

	if err := m.scheduler.Schedule(ctx, in.GuildID, ch.ID, m.cfg.DeleteDelay); err != nil {
		log.Warn("schedule channel deletion", zap.Error(err))
	}
	log.Info("ticket closed",
		zap.String("ticket_channel", ch.Name),
		zap.String("owner_id", ownerID),
		zap.Int("messages", len(t.Entries)))
	return nil
}

// freeze stops the owner from posting while the ticket is archived and
// awaits deletion.
func (m *Manager) freeze(ctx context.Context, channelID, ownerID string, log *zap.Logger) {
	allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory)
	deny := int64(discordgo.PermissionSendMessages)
	if err := m.platform.SetPermission(ctx, channelID, ownerID, discordgo.PermissionOverwriteTypeMember, allow, deny); err != nil {
		log.Debug("freeze ticket channel", zap.Error(err))
	}
}

// ownerTag prefers the member lookup, then any message the owner wrote,
// then the raw ID.
func (m *Manager) ownerTag(ctx context.Context, guildID, ownerID string, entries []Entry) string {
	if member, err := m.platform.GuildMember(ctx, guildID, ownerID); err == nil && member != nil && member.User != nil {
		return member.User.String()
	}
	for _, e := range entries {
		if e.AuthorID == ownerID {
			return e.AuthorTag
		}
	}
	return ownerID
}

// archive renders the transcript to a temporary file, uploads it to the
// archive channel and always removes the file.
func (m *Manager) archive(ctx context.Context, in *Interaction, ch *discordgo.Channel, t *Transcript, ownerID string, log *zap.Logger) {
	path, err := t.WriteFile(m.cfg.TempDir, m.msgs, m.cfg.Location)
	if err != nil {
		log.Warn("write transcript", zap.Error(err))
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("remove transcript file", zap.String("path", path), zap.Error(err))
		}
	}()

	if m.cfg.ArchiveChannelID == "" {
		log.Warn("no transcript channel configured, skipping upload")
		return
	}
	if _, err := m.platform.Channel(ctx, m.cfg.ArchiveChannelID); err != nil {
		log.Warn("transcript channel unavailable, skipping upload",
			zap.String("archive_channel_id", m.cfg.ArchiveChannelID), zap.Error(err))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warn("open transcript", zap.Error(err))
		return
	}
	defer f.Close()

	owner := t.Owner
	if ownerID != "" {
		owner = mentionUser(ownerID)
	}
	summary := &discordgo.MessageEmbed{
		Title: m.msgs.T("archive.title"),
		Color: 0xED4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: m.msgs.T("archive.closer"), Value: mentionUser(in.User.ID), Inline: true},
			{Name: m.msgs.T("archive.owner"), Value: owner, Inline: true},
			{Name: m.msgs.T("archive.channel"), Value: ch.Name, Inline: true},
			{Name: m.msgs.T("archive.messages"), Value: strconv.Itoa(len(t.Entries)), Inline: true},
			{Name: m.msgs.T("archive.reason"), Value: t.Reason},
		},
		Timestamp: t.GeneratedAt.Format(time.RFC3339),
	}

	_, err = m.platform.SendMessage(ctx, m.cfg.ArchiveChannelID, &discordgo.MessageSend{
		Content:         m.msgs.T("archive.content", "channel", ch.Name),
		Embeds:          []*discordgo.MessageEmbed{summary},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
		Files: []*discordgo.File{{
			Name:        "transcript-" + ch.Name + ".html",
			ContentType: "text/html",
			Reader:      f,
		}},
	})
	if err != nil {
		log.Warn("upload transcript", zap.Error(err))
		return
	}
	log.Debug("transcript uploaded", zap.String("file", filepath.Base(path)))
}
