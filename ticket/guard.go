package ticket

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Guard answers whether a requester already has an open ticket by scanning
// the guild's channels for their topic tag.
type Guard struct {
	channels ChannelLister
}

func NewGuard(channels ChannelLister) *Guard {
	return &Guard{channels: channels}
}

// FindTicket returns the open ticket channel of userID, or nil.
func (g *Guard) FindTicket(ctx context.Context, guildID, userID string) (*discordgo.Channel, error) {
	chans, err := g.channels.GuildChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range chans {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if owner, ok := ParseTag(ch.Topic); ok && owner == userID {
			return ch, nil
		}
	}
	return nil, nil
}

func (g *Guard) HasOpenTicket(ctx context.Context, guildID, userID string) (bool, error) {
	ch, err := g.FindTicket(ctx, guildID, userID)
	return ch != nil, err
}
