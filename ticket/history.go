package ticket

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	historyLimit     = 10
	historyReasonMax = 200
)

// HistoryMessage lists the most recent closed tickets of the guild, or of
// one owner when ownerID is set.
func (m *Manager) HistoryMessage(ctx context.Context, guildID, ownerID string) (*discordgo.MessageSend, error) {
	if m.history == nil {
		return nil, fmt.Errorf("closure history is not configured")
	}
	records, err := m.history.Closures(ctx, guildID, ownerID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load closures: %w", err)
	}

	title := m.msgs.T("history.title")
	if ownerID != "" {
		title = m.msgs.T("history.title_user", "user", mentionUser(ownerID))
	}

	var b strings.Builder
	for _, r := range records {
		owner := r.OwnerTag
		if r.OwnerID != "" {
			owner = mentionUser(r.OwnerID)
		}
		b.WriteString(m.msgs.T("history.line",
			"channel", r.ChannelName,
			"owner", owner,
			"closer", mentionUser(r.CloserID),
			"date", r.ClosedAt.In(m.cfg.Location).Format(timestampLayout),
			"messages", fmt.Sprint(r.MessageCount),
			"reason", truncate(strings.Join(strings.Fields(r.Reason), " "), historyReasonMax)))
		b.WriteString("\n")
	}
	desc := strings.TrimSpace(b.String())
	if desc == "" {
		desc = m.msgs.T("history.empty")
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: desc,
			Color:       0x95a5a6,
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, nil
}

func (m *Manager) PostHistory(ctx context.Context, channelID, guildID, ownerID string) error {
	msg, err := m.HistoryMessage(ctx, guildID, ownerID)
	if err != nil {
		return err
	}
	_, err = m.platform.SendMessage(ctx, channelID, msg)
	return err
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
