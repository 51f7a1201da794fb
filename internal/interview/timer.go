package interview

import (
	"context"
	"time"

	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
)

// NoAnswerSentinel is submitted when a countdown expires with nothing in the
// draft buffer.
const NoAnswerSentinel = "[No answer provided in time]"

// TickInterval is the countdown granularity.
const TickInterval = 500 * time.Millisecond

// RemainingSec computes whole seconds left on a question, rounded up, never
// negative. Questions whose countdown has not started have no remaining time.
func RemainingSec(q *models.Question, now time.Time) (int, bool) {
	if q == nil || q.EndAt == nil {
		return 0, false
	}
	ms := q.EndAt.Sub(now).Milliseconds()
	if ms <= 0 {
		return 0, true
	}
	return int((ms + 999) / 1000), true
}

// ShouldAutoSubmit decides whether the tick loop must synthesize a
// submission for the session's active question. Pure so it can be exercised
// with an injected clock; idempotence comes from the answered check, since
// RecordAnswer is write-once.
func ShouldAutoSubmit(s *models.Session, now time.Time) bool {
	if s == nil || s.Phase != models.PhaseInProgress {
		return false
	}
	q := s.ActiveQuestion()
	if q == nil || q.Answered() || q.Text == "" {
		return false
	}
	left, started := RemainingSec(q, now)
	return started && left == 0
}

// AutoSubmitText picks the buffered partial answer, or the sentinel when
// the candidate typed nothing.
func AutoSubmitText(s *models.Session) string {
	if s != nil && s.Draft != "" {
		return s.Draft
	}
	return NoAnswerSentinel
}

// Ticker periodically invokes a callback with the current time. It is a
// plain scheduling primitive; all expiry decisions live in the pure
// functions above. The callback must not block on I/O.
type Ticker struct {
	interval time.Duration
	now      func() time.Time
	onTick   func(now time.Time)
}

func NewTicker(interval time.Duration, now func() time.Time, onTick func(time.Time)) *Ticker {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Ticker{interval: interval, now: now, onTick: onTick}
}

// Run blocks until the context is done.
func (t *Ticker) Run(ctx context.Context) {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.onTick(t.now())
		}
	}
}
