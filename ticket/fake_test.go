package ticket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/events"
	"github.com/JulianoPassing/scc-ticket-hp/lang"
	"github.com/JulianoPassing/scc-ticket-hp/storage"
)

const (
	testGuild   = "1000"
	testSupport = "2000"
	testArchive = "3000"
	testCat     = "4000"
)

var errNotFound = errors.New("unknown channel")

type sentMessage struct {
	ChannelID string
	Msg       *discordgo.MessageSend
	Files     map[string]string
}

type permissionCall struct {
	ChannelID, TargetID string
	Allow, Deny         int64
}

// fakePlatform is an in-memory guild.
type fakePlatform struct {
	mu          sync.Mutex
	nextID      int
	channels    map[string]*discordgo.Channel
	order       []string
	roles       []*discordgo.Role
	members     map[string]*discordgo.Member
	messages    map[string][]*discordgo.Message
	sent        []sentMessage
	perms       []permissionCall
	deleted     []string
	listErr     error
	fetchErr    error
	sendErrFor  map[string]error
	createCalls int
}

func newFakePlatform() *fakePlatform {
	p := &fakePlatform{
		nextID:     5000,
		channels:   make(map[string]*discordgo.Channel),
		members:    make(map[string]*discordgo.Member),
		messages:   make(map[string][]*discordgo.Message),
		sendErrFor: make(map[string]error),
		roles:      []*discordgo.Role{{ID: testGuild, Name: "@everyone"}, {ID: testSupport, Name: "Suporte"}},
	}
	p.addChannel(&discordgo.Channel{ID: testArchive, GuildID: testGuild, Name: "transcripts", Type: discordgo.ChannelTypeGuildText})
	p.addChannel(&discordgo.Channel{ID: testCat, GuildID: testGuild, Name: "Tickets", Type: discordgo.ChannelTypeGuildCategory})
	return p
}

func (p *fakePlatform) addChannel(ch *discordgo.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.ID] = ch
	p.order = append(p.order, ch.ID)
}

func (p *fakePlatform) GuildChannels(_ context.Context, guildID string) ([]*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	var out []*discordgo.Channel
	for _, id := range p.order {
		if ch, ok := p.channels[id]; ok && ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (p *fakePlatform) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, errNotFound
	}
	return ch, nil
}

func (p *fakePlatform) CreateChannel(_ context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	p.mu.Lock()
	p.createCalls++
	p.nextID++
	ch := &discordgo.Channel{
		ID:                   fmt.Sprint(p.nextID),
		GuildID:              guildID,
		Name:                 data.Name,
		Topic:                data.Topic,
		Type:                 data.Type,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	p.mu.Unlock()
	p.addChannel(ch)
	return ch, nil
}

func (p *fakePlatform) DeleteChannel(_ context.Context, channelID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[channelID]; !ok {
		return errNotFound
	}
	delete(p.channels, channelID)
	p.deleted = append(p.deleted, channelID)
	return nil
}

func (p *fakePlatform) GuildRoles(context.Context, string) ([]*discordgo.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roles, nil
}

func (p *fakePlatform) GuildMember(_ context.Context, _, userID string) (*discordgo.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return m, nil
}

func (p *fakePlatform) ChannelMessages(_ context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	msgs := p.messages[channelID]
	// Newest first, like the REST API.
	out := make([]*discordgo.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (p *fakePlatform) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.sendErrFor[channelID]; err != nil {
		return nil, err
	}
	sm := sentMessage{ChannelID: channelID, Msg: msg, Files: make(map[string]string)}
	for _, f := range msg.Files {
		body, err := io.ReadAll(f.Reader)
		if err != nil {
			return nil, err
		}
		sm.Files[f.Name] = string(body)
	}
	p.sent = append(p.sent, sm)
	return &discordgo.Message{ID: fmt.Sprint(len(p.sent)), ChannelID: channelID}, nil
}

func (p *fakePlatform) SetPermission(_ context.Context, channelID, targetID string, _ discordgo.PermissionOverwriteType, allow, deny int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.perms = append(p.perms, permissionCall{ChannelID: channelID, TargetID: targetID, Allow: allow, Deny: deny})
	return nil
}

func (p *fakePlatform) sentTo(channelID string) []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentMessage
	for _, s := range p.sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

func (p *fakePlatform) exists(channelID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[channelID]
	return ok
}

func (p *fakePlatform) post(channelID string, author *discordgo.User, content string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.messages[channelID] = append(p.messages[channelID], &discordgo.Message{
		ID:        fmt.Sprint(p.nextID),
		ChannelID: channelID,
		Author:    author,
		Content:   content,
		Timestamp: at,
	})
}

// fakeReplier records interaction responses.
type fakeReplier struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	followups []string
	err       error
}

func (r *fakeReplier) Respond(_ context.Context, resp *discordgo.InteractionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.responses = append(r.responses, resp)
	return nil
}

func (r *fakeReplier) Followup(_ context.Context, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followups = append(r.followups, content)
	return nil
}

func (r *fakeReplier) last() *discordgo.InteractionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return nil
	}
	return r.responses[len(r.responses)-1]
}

func (r *fakeReplier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

// manualTimers replaces time.AfterFunc so tests decide when deletions run.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (m *manualTimers) afterFunc(d time.Duration, f func()) stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// fireAll runs every timer that is neither stopped nor fired.
func (m *manualTimers) fireAll() {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (m *manualTimers) delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Duration
	for _, t := range m.timers {
		out = append(out, t.delay)
	}
	return out
}

type harness struct {
	platform  *fakePlatform
	db        *storage.MemoryDB
	timers    *manualTimers
	scheduler *Scheduler
	events    []events.Event
	manager   *Manager
	msgs      *lang.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	msgs, err := lang.Default("pt-BR")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h := &harness{
		platform: newFakePlatform(),
		db:       storage.NewMemoryDB(),
		timers:   &manualTimers{},
		msgs:     msgs,
	}
	h.scheduler = NewScheduler(h.platform, h.db, zap.NewNop(), "Ticket fechado")
	h.scheduler.afterFunc = h.timers.afterFunc

	dispatcher := events.NewDispatcher()
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		h.events = append(h.events, e)
		return nil
	})

	h.manager = NewManager(Options{
		Platform:  h.platform,
		Scheduler: h.scheduler,
		History:   h.db,
		Events:    dispatcher,
		Messages:  msgs,
		Log:       zap.NewNop(),
		Settings: Settings{
			SupportRoleID:    testSupport,
			CategoryID:       testCat,
			ArchiveChannelID: testArchive,
			DeleteDelay:      2 * time.Second,
			TranscriptLimit:  100,
			TempDir:          t.TempDir(),
			Location:         time.UTC,
		},
	})
	h.manager.now = func() time.Time { return time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC) }
	return h
}

func newUser(id, name string) *discordgo.User {
	return &discordgo.User{ID: id, Username: name, Discriminator: "0"}
}

func interaction(channelID string, user *discordgo.User, roles ...string) (*Interaction, *fakeReplier) {
	r := &fakeReplier{}
	return &Interaction{
		GuildID:   testGuild,
		ChannelID: channelID,
		User:      user,
		Roles:     roles,
		Reply:     NewResponder(r),
	}, r
}

func responseContent(resp *discordgo.InteractionResponse) string {
	if resp == nil || resp.Data == nil {
		return ""
	}
	return resp.Data.Content
}
