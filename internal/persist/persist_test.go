package persist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Devansh978/AI-Interview-Assistant/internal/interview"
)

// memCache is an in-memory cache.Cache that records every write.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.sets++
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestLoadMissingStateStartsFresh(t *testing.T) {
	repo := interview.NewRepository()
	b := NewBridge(newMemCache(), repo, quietLogger())

	if b.Load(context.Background()) {
		t.Error("Load reported a hit for an empty cache")
	}
	if _, ok := repo.Current(); ok {
		t.Error("fresh repository should have no current candidate")
	}
}

func TestLoadErrorStartsFresh(t *testing.T) {
	mc := newMemCache()
	mc.getErr = errors.New("redis down")
	b := NewBridge(mc, interview.NewRepository(), quietLogger())

	if b.Load(context.Background()) {
		t.Error("Load must report a clean start on cache errors")
	}
}

func TestFlushNowThenLoadRoundTrip(t *testing.T) {
	mc := newMemCache()
	repo := interview.NewRepository()
	b := NewBridge(mc, repo, quietLogger())

	c := repo.CreateCandidate()
	if err := repo.MergeProfile(c.ID, "John Smith", "john@example.com", "+919876543210"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := repo.SetQuestionText(c.ID, 0, "Q1?"); err != nil {
		t.Fatalf("set text: %v", err)
	}
	if err := repo.StartQuestionTimer(c.ID, 0); err != nil {
		t.Fatalf("start timer: %v", err)
	}
	b.FlushNow(context.Background())

	repo2 := interview.NewRepository()
	b2 := NewBridge(mc, repo2, quietLogger())
	if !b2.Load(context.Background()) {
		t.Fatal("Load missed the flushed snapshot")
	}

	got, err := repo2.Get(c.ID)
	if err != nil {
		t.Fatalf("get restored: %v", err)
	}
	if got.Name != "John Smith" {
		t.Errorf("restored name = %q", got.Name)
	}
	q := got.Session.Questions[0]
	if q.EndAt == nil {
		t.Fatal("end_at lost across the round trip")
	}
	orig, _ := repo.Get(c.ID)
	if !q.EndAt.Equal(*orig.Session.Questions[0].EndAt) {
		t.Errorf("end_at drifted: %v vs %v", q.EndAt, orig.Session.Questions[0].EndAt)
	}
	cur, ok := repo2.Current()
	if !ok || cur.ID != c.ID {
		t.Error("current-candidate pointer lost across the round trip")
	}
}

func TestNotifyChangeDebouncesBursts(t *testing.T) {
	mc := newMemCache()
	repo := interview.NewRepository()
	b := NewBridgeWithDelay(mc, repo, quietLogger(), 30*time.Millisecond)
	repo.SetOnChange(b.NotifyChange)

	c := repo.CreateCandidate()
	if err := repo.MergeProfile(c.ID, "A B", "", ""); err != nil {
		t.Fatalf("merge: %v", err)
	}
	for i := 0; i < 20; i++ {
		if err := repo.SetDraft(c.ID, "typing more"); err != nil {
			t.Fatalf("draft: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for mc.setCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// allow any stray timer to fire before counting
	time.Sleep(100 * time.Millisecond)

	if n := mc.setCount(); n == 0 || n > 2 {
		t.Errorf("flush count = %d, want the burst coalesced into 1 or 2 writes", n)
	}
}

func TestFlushErrorDoesNotRollBackState(t *testing.T) {
	mc := newMemCache()
	mc.setErr = errors.New("redis down")
	repo := interview.NewRepository()
	b := NewBridge(mc, repo, quietLogger())

	c := repo.CreateCandidate()
	b.FlushNow(context.Background())

	if _, err := repo.Get(c.ID); err != nil {
		t.Errorf("in-memory state must survive a failed flush: %v", err)
	}
}
