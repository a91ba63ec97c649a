package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/ticket"
)

const (
	panelCommand       = "painel"
	historyCommand     = "historico"
	interactionTimeout = 30 * time.Second
)

// Handler routes gateway events to the ticket manager.
type Handler struct {
	mgr    *ticket.Manager
	log    *zap.Logger
	prefix string
}

func New(mgr *ticket.Manager, log *zap.Logger, prefix string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{mgr: mgr, log: log, prefix: prefix}
}

func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.onMessage)
	s.AddHandler(h.onInteraction)
}

func (h *Handler) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	name, args, ok := parseCommand(m.Content, h.prefix)
	if !ok || (name != panelCommand && name != historyCommand) {
		return
	}
	if name == panelCommand && len(args) > 0 {
		return
	}

	log := h.log.With(
		zap.String("command", name),
		zap.String("guild_id", m.GuildID),
		zap.String("channel_id", m.ChannelID),
		zap.String("user_id", m.Author.ID))

	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		log.Warn("resolve member permissions", zap.Error(err))
		return
	}
	if perms&discordgo.PermissionAdministrator == 0 {
		log.Debug("admin command from non-admin ignored")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	if name == historyCommand {
		ownerID := ""
		if len(args) > 0 {
			if ownerID, ok = parseUserID(args[0]); !ok {
				log.Debug("history command with invalid user argument", zap.String("arg", args[0]))
				return
			}
		}
		if err := h.mgr.PostHistory(ctx, m.ChannelID, m.GuildID, ownerID); err != nil {
			log.Error("post ticket history", zap.Error(err))
		}
		return
	}

	icon := ""
	if s.State != nil && s.State.User != nil {
		icon = s.State.User.AvatarURL("")
	}
	if err := h.mgr.PostPanel(ctx, m.ChannelID, icon); err != nil {
		log.Error("post ticket panel", zap.Error(err))
		return
	}
	log.Info("ticket panel posted")
}

func (h *Handler) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	in := newInteraction(s, i.Interaction)
	if in.User == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		h.handleComponent(ctx, in, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		h.handleModal(ctx, in, i.ModalSubmitData())
	}
}

// parseCommand splits "<prefix><name> args..." into the command name and
// its whitespace-separated arguments.
func parseCommand(content, prefix string) (string, []string, bool) {
	fields := strings.Fields(content)
	if len(fields) == 0 || prefix == "" || !strings.HasPrefix(fields[0], prefix) {
		return "", nil, false
	}
	name := strings.TrimPrefix(fields[0], prefix)
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

// parseUserID accepts a user mention (<@id> or <@!id>) or a bare ID.
func parseUserID(arg string) (string, bool) {
	id := arg
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimPrefix(id[2:len(id)-1], "!")
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}

// newInteraction strips the SDK event down to what the manager needs.
func newInteraction(s *discordgo.Session, i *discordgo.Interaction) *ticket.Interaction {
	return &ticket.Interaction{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		User:      interactionUser(i),
		Roles:     memberRoles(i),
		Reply:     ticket.NewResponder(&interactionReplier{s: s, i: i}),
	}
}

// interactionUser returns the invoker, which sits on Member in guilds and
// on User in DMs.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func memberRoles(i *discordgo.Interaction) []string {
	if i.Member == nil {
		return nil
	}
	return i.Member.Roles
}
