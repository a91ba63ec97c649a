package bot

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/config"
)

// Intents needed to see guild channels, read the panel command and
// resolve members.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent |
	discordgo.IntentsGuildMembers

type Bot struct {
	Session *discordgo.Session
	Config  *config.Config

	log       *zap.Logger
	ready     chan struct{}
	readyOnce sync.Once
}

func New(cfg *config.Config, log *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return &Bot{
		Session: s,
		Config:  cfg,
		log:     log,
		ready:   make(chan struct{}),
	}, nil
}

func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("bot is online",
			zap.String("user", r.User.String()),
			zap.Int("guilds", len(r.Guilds)))
		b.readyOnce.Do(func() { close(b.ready) })
	})
	return b.Session.Open()
}

// WaitReady blocks until the first Ready event or ctx is done.
func (b *Bot) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) Stop() {
	if err := b.Session.Close(); err != nil {
		b.log.Warn("close discord session", zap.Error(err))
	}
}
