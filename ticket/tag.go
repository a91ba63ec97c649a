package ticket

import (
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
)

// TagPrefix marks a channel topic as belonging to a ticket. The requester
// ID follows the prefix.
const TagPrefix = "TICKET_USER:"

const maxChannelName = 90

func Tag(userID string) string {
	return TagPrefix + userID
}

// ParseTag extracts the requester ID from a channel topic.
func ParseTag(topic string) (string, bool) {
	idx := strings.Index(topic, TagPrefix)
	if idx < 0 {
		return "", false
	}
	rest := topic[idx+len(TagPrefix):]
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// IsTicket reports whether the channel carries a ticket tag.
func IsTicket(ch *discordgo.Channel) bool {
	if ch == nil {
		return false
	}
	_, ok := ParseTag(ch.Topic)
	return ok
}

// ChannelName builds the display name for a ticket channel. It is cosmetic
// only: ownership is always read from the topic tag.
func ChannelName(prefix string, user *discordgo.User) string {
	var b strings.Builder
	for _, r := range strings.ToLower(user.Username) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if slug == "" {
		slug = user.ID
	}
	name := prefix + slug
	if len(name) > maxChannelName {
		name = name[:maxChannelName]
	}
	return name
}

// ResolveOwner finds the requester of a ticket channel: the topic tag
// first, then the first member overwrite that is neither the support role
// nor @everyone. The overwrite fallback covers channels opened before the
// topic tag existed and is only reached by callers that accept untagged
// channels.
func ResolveOwner(ch *discordgo.Channel, supportRoleID string) (string, bool) {
	if id, ok := ParseTag(ch.Topic); ok {
		return id, true
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == supportRoleID || ow.ID == ch.GuildID {
			continue
		}
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			return ow.ID, true
		}
	}
	return "", false
}

func hasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}
