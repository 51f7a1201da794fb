package persist

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Devansh978/AI-Interview-Assistant/internal/cache"
	"github.com/Devansh978/AI-Interview-Assistant/internal/interview"
)

// StateKey is the single fixed key the whole interview state lives under.
// The snapshot is loaded once at startup and overwritten wholesale on every
// debounced flush.
const StateKey = "interview:state:v1"

// DefaultFlushDelay coalesces bursts of mutations into one write.
const DefaultFlushDelay = 150 * time.Millisecond

const flushTimeout = 5 * time.Second

// Bridge debounces repository changes into wholesale snapshot writes.
// Writes are fire-and-forget: a failed write is logged and never rolls back
// in-memory state.
type Bridge struct {
	cache cache.Cache
	repo  *interview.Repository
	log   *logrus.Logger
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewBridge(c cache.Cache, repo *interview.Repository, log *logrus.Logger) *Bridge {
	return NewBridgeWithDelay(c, repo, log, DefaultFlushDelay)
}

func NewBridgeWithDelay(c cache.Cache, repo *interview.Repository, log *logrus.Logger, delay time.Duration) *Bridge {
	if log == nil {
		log = logrus.New()
	}
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Bridge{cache: c, repo: repo, log: log, delay: delay}
}

// Load restores the persisted snapshot, if any. Corrupt or missing state is
// a clean start, not an error.
func (b *Bridge) Load(ctx context.Context) bool {
	var snap interview.Snapshot
	hit, err := b.cache.GetJSON(ctx, StateKey, &snap)
	if err != nil {
		b.log.WithError(err).Warn("failed to load persisted interview state; starting fresh")
		return false
	}
	if !hit {
		return false
	}
	b.repo.Restore(snap)
	b.log.WithField("candidates", len(snap.Candidates)).Info("restored interview state")
	return true
}

// NotifyChange arms the flush timer, cancelling and re-arming on every call
// so a burst of mutations produces a single write after the idle window.
func (b *Bridge) NotifyChange() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

func (b *Bridge) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := b.cache.SetJSON(ctx, StateKey, b.repo.Snapshot(), 0); err != nil {
		b.log.WithError(err).Warn("failed to persist interview state")
	}
}

// FlushNow writes synchronously, for shutdown.
func (b *Bridge) FlushNow(ctx context.Context) {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if err := b.cache.SetJSON(ctx, StateKey, b.repo.Snapshot(), 0); err != nil {
		b.log.WithError(err).Warn("failed to persist interview state on shutdown")
	}
}
