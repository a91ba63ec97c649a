package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/events"
	"github.com/JulianoPassing/scc-ticket-hp/lang"
	"github.com/JulianoPassing/scc-ticket-hp/storage"
)

// Custom IDs of the components the bot posts. Panels already sitting in a
// guild reference these, so they must not change.
const (
	ButtonOpen       = "open_ticket"
	ButtonClose      = "close_ticket"
	ModalOpen        = "modal_motivo_ticket"
	InputOpenReason  = "motivo_ticket"
	ModalClose       = "modal_motivo_fechamento"
	InputCloseReason = "motivo_fechamento"
)

const maxReasonLength = 1000

var (
	ErrDuplicateTicket    = errors.New("requester already has an open ticket")
	ErrOpenInProgress     = errors.Join(ErrDuplicateTicket, errors.New("ticket creation already in progress"))
	ErrNotTicketChannel   = errors.New("channel is not a ticket")
	ErrNotSupport         = errors.New("invoker lacks the support role")
	ErrSupportRoleMissing = errors.New("support role does not exist")
	ErrCategoryMissing    = errors.New("ticket category does not exist")
	ErrReasonRequired     = errors.New("reason is required")
	ErrAlreadyResponded   = errors.New("interaction already answered")
)

// HistoryStore records closed tickets and lists them newest first.
type HistoryStore interface {
	AddClosure(ctx context.Context, c storage.ClosureRecord) error
	Closures(ctx context.Context, guildID, ownerID string, limit int) ([]storage.ClosureRecord, error)
}

type Settings struct {
	SupportRoleID    string
	CategoryID       string
	ArchiveChannelID string
	ChannelPrefix    string
	DeleteDelay      time.Duration
	TranscriptLimit  int
	TempDir          string
	Location         *time.Location
}

// Interaction is one button press or modal submission, already stripped of
// the SDK event.
type Interaction struct {
	GuildID   string
	ChannelID string
	User      *discordgo.User
	Roles     []string
	Reply     *Responder
}

type Options struct {
	Platform  Platform
	Scheduler *Scheduler
	History   HistoryStore
	Events    events.Publisher
	Lock      OpenLock
	Messages  *lang.Catalog
	Log       *zap.Logger
	Settings  Settings
}

// Manager drives the ticket lifecycle. All ticket state lives on the
// platform; the manager only keeps references to its collaborators.
type Manager struct {
	platform  Platform
	guard     *Guard
	scheduler *Scheduler
	history   HistoryStore
	events    events.Publisher
	lock      OpenLock
	msgs      *lang.Catalog
	log       *zap.Logger
	cfg       Settings
	now       func() time.Time
}

func NewManager(o Options) *Manager {
	m := &Manager{
		platform:  o.Platform,
		guard:     NewGuard(o.Platform),
		scheduler: o.Scheduler,
		history:   o.History,
		events:    o.Events,
		lock:      o.Lock,
		msgs:      o.Messages,
		log:       o.Log,
		cfg:       o.Settings,
		now:       time.Now,
	}
	if m.lock == nil {
		m.lock = NoLock{}
	}
	if m.events == nil {
		m.events = events.NewDispatcher()
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.cfg.ChannelPrefix == "" {
		m.cfg.ChannelPrefix = "ticket-"
	}
	if m.cfg.TranscriptLimit <= 0 || m.cfg.TranscriptLimit > 100 {
		m.cfg.TranscriptLimit = 100
	}
	if m.cfg.Location == nil {
		m.cfg.Location = time.UTC
	}
	return m
}

// PanelMessage builds the message carrying the Open Ticket button.
func (m *Manager) PanelMessage(iconURL string) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       m.msgs.T("panel.title"),
		Description: m.msgs.T("panel.description"),
		Color:       0x2ecc71,
		Footer:      &discordgo.MessageEmbedFooter{Text: m.msgs.T("panel.footer"), IconURL: iconURL},
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    m.msgs.T("panel.button"),
						Style:    discordgo.SuccessButton,
						CustomID: ButtonOpen,
						Emoji:    &discordgo.ComponentEmoji{Name: "🎟️"},
					},
				},
			},
		},
	}
}

func (m *Manager) PostPanel(ctx context.Context, channelID, iconURL string) error {
	_, err := m.platform.SendMessage(ctx, channelID, m.PanelMessage(iconURL))
	return err
}

func messageKey(err error) string {
	switch {
	case errors.Is(err, ErrOpenInProgress):
		return "ticket.open_in_progress"
	case errors.Is(err, ErrDuplicateTicket):
		return "ticket.duplicate"
	case errors.Is(err, ErrNotTicketChannel):
		return "ticket.not_ticket_channel"
	case errors.Is(err, ErrNotSupport):
		return "ticket.not_support"
	case errors.Is(err, ErrSupportRoleMissing):
		return "ticket.support_role_missing"
	case errors.Is(err, ErrCategoryMissing):
		return "ticket.category_missing"
	case errors.Is(err, ErrReasonRequired):
		return "ticket.reason_required"
	default:
		return "ticket.internal_error"
	}
}

// IsPolicy reports whether err is a refusal the invoker was told about,
// as opposed to a platform failure.
func IsPolicy(err error) bool {
	return messageKey(err) != "ticket.internal_error"
}

// deny tells the invoker why the request was refused and returns err. An
// interaction that was already answered gets no second reply.
func (m *Manager) deny(ctx context.Context, in *Interaction, err error, pairs ...string) error {
	log := m.logFor(in)
	if in.Reply.Responded() {
		log.Debug("interaction already answered, not replying", zap.Error(err))
		return err
	}
	if rerr := in.Reply.Ephemeral(ctx, m.msgs.T(messageKey(err), pairs...)); rerr != nil {
		log.Warn("reply to interaction", zap.Error(rerr))
	}
	return err
}

func (m *Manager) logFor(in *Interaction) *zap.Logger {
	fields := []zap.Field{zap.String("guild_id", in.GuildID), zap.String("channel_id", in.ChannelID)}
	if in.User != nil {
		fields = append(fields, zap.String("user_id", in.User.ID))
	}
	return m.log.With(fields...)
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if err := m.events.Publish(ctx, e); err != nil {
		m.log.Warn("publish ticket event",
			zap.String("type", string(e.Type)),
			zap.String("channel_id", e.ChannelID),
			zap.Error(err))
	}
}

func mentionChannel(id string) string { return "<#" + id + ">" }
func mentionUser(id string) string    { return "<@" + id + ">" }
func mentionRole(id string) string    { return "<@&" + id + ">" }
