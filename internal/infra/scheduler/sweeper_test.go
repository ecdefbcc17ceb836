package scheduler

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubStore struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *stubStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, idle)
	return 2
}

func (s *stubStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepOncePassesIdleTTL(t *testing.T) {
	store := &stubStore{}
	sweeper := NewSweeper(store, time.Hour, time.Minute, newTestLogger())

	require.Equal(t, 2, sweeper.SweepOnce())
	require.Equal(t, []time.Duration{time.Hour}, store.calls)
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	store := &stubStore{}
	sweeper := NewSweeper(store, time.Hour, 20*time.Millisecond, newTestLogger())
	require.NoError(t, sweeper.Start())
	defer sweeper.Stop()

	require.Eventually(t, func() bool { return store.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSweeperDisabledWithoutIdleTTL(t *testing.T) {
	store := &stubStore{}
	sweeper := NewSweeper(store, 0, time.Millisecond, newTestLogger())
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
	require.Zero(t, store.count())
}
