package ticket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/storage"
)

// MarkerStore persists scheduled deletions so a restart can finish them.
type MarkerStore interface {
	AddPendingDeletion(ctx context.Context, p storage.PendingDeletion) error
	RemovePendingDeletion(ctx context.Context, channelID string) error
	PendingDeletions(ctx context.Context) ([]storage.PendingDeletion, error)
}

type stopper interface {
	Stop() bool
}

const deleteTimeout = 15 * time.Second

// Scheduler deletes ticket channels after a delay. Every pending deletion
// is backed by a durable marker; Stop cancels the timers but keeps the
// markers, and Resume replays them on the next start.
type Scheduler struct {
	deleter ChannelDeleter
	markers MarkerStore
	log     *zap.Logger
	reason  string

	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper

	mu      sync.Mutex
	pending map[string]stopper
	stopped bool
	wg      sync.WaitGroup
}

func NewScheduler(deleter ChannelDeleter, markers MarkerStore, log *zap.Logger, reason string) *Scheduler {
	return &Scheduler{
		deleter: deleter,
		markers: markers,
		log:     log,
		reason:  reason,
		now:     time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		pending: make(map[string]stopper),
	}
}

// Schedule arranges for channelID to be deleted after delay. A channel that
// already has a pending deletion keeps its original timer. The timer is
// armed even when the marker cannot be persisted; the returned error then
// means the deletion will not survive a restart.
func (s *Scheduler) Schedule(ctx context.Context, guildID, channelID string, delay time.Duration) error {
	s.mu.Lock()
	if _, ok := s.pending[channelID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	marker := storage.PendingDeletion{ChannelID: channelID, GuildID: guildID, DueAt: s.now().Add(delay)}
	err := s.markers.AddPendingDeletion(ctx, marker)
	if err != nil {
		err = fmt.Errorf("persist pending deletion: %w", err)
	}

	s.arm(channelID, delay)
	return err
}

func (s *Scheduler) arm(channelID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.pending[channelID]; ok {
		return
	}
	s.wg.Add(1)
	s.pending[channelID] = s.afterFunc(delay, func() {
		defer s.wg.Done()
		s.fire(channelID)
	})
}

func (s *Scheduler) fire(channelID string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, channelID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if err := s.deleter.DeleteChannel(ctx, channelID, s.reason); err != nil {
		s.log.Warn("delete ticket channel", zap.String("channel_id", channelID), zap.Error(err))
	} else {
		s.log.Info("ticket channel deleted", zap.String("channel_id", channelID))
	}
	if err := s.markers.RemovePendingDeletion(ctx, channelID); err != nil {
		s.log.Warn("remove pending deletion", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// Resume re-arms every persisted marker; overdue ones fire immediately.
func (s *Scheduler) Resume(ctx context.Context) (int, error) {
	markers, err := s.markers.PendingDeletions(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	for _, m := range markers {
		delay := m.DueAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		s.arm(m.ChannelID, delay)
	}
	return len(markers), nil
}

// Pending reports how many deletions are armed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every armed timer and waits for deletions already running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.pending {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
