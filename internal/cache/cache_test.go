// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholar-engine/pkg/types"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Open(types.CacheConfig{Path: path, TTL: ttl})
	require.NoError(t, err)
	return s, path
}

func constantAnswer(answer string, calls *int32) ComputeFunc {
	return func(context.Context) (string, []types.Source, error) {
		atomic.AddInt32(calls, 1)
		return answer, []types.Source{{PaperID: "ridge", Title: "Ridge notes"}}, nil
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "what is ridge regression?", Normalize("  What   IS\tridge\nregression?  "))
	assert.Equal(t, Fingerprint("What is RIDGE regression?"), Fingerprint("what is ridge regression?"))
	assert.NotEqual(t, Fingerprint("ridge"), Fingerprint("lasso"))
}

func TestGetOrComputeCachesResult(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()
	var calls int32

	answer, sources, hit, err := s.GetOrCompute(ctx, "what is ridge?", constantAnswer("L2.", &calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "L2.", answer)
	require.Len(t, sources, 1)

	// Identical question (modulo case and whitespace) is a hit; the compute
	// function must not run again.
	answer, _, hit, err = s.GetOrCompute(ctx, "  WHAT is ridge?  ", constantAnswer("other", &calls))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "L2.", answer)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(context.Context) (string, []types.Source, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "shared", nil, nil
	}

	const waiters = 8
	answers := make([]string, waiters)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a, _, _, err := s.GetOrCompute(ctx, "q", slow)
		assert.NoError(t, err)
		answers[0] = a
	}()
	<-started

	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, _, _, err := s.GetOrCompute(ctx, "q", constantAnswer("never", &calls))
			assert.NoError(t, err)
			answers[i] = a
		}(i)
	}

	// Give the waiters time to attach to the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, a := range answers {
		assert.Equal(t, "shared", a)
	}
}

func TestGetOrComputeDistinctQuestionsIndependent(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()
	var calls int32

	_, _, _, err := s.GetOrCompute(ctx, "ridge", constantAnswer("a", &calls))
	require.NoError(t, err)
	_, _, _, err = s.GetOrCompute(ctx, "lasso", constantAnswer("b", &calls))
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, s.Len())
}

func TestGetOrComputeFailureNotCached(t *testing.T) {
	s, path := newTestStore(t, 0)
	ctx := context.Background()

	boom := errors.New("generation failed")
	_, _, _, err := s.GetOrCompute(ctx, "q", func(context.Context) (string, []types.Source, error) {
		return "", nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// The next caller retries and succeeds.
	var calls int32
	answer, _, hit, err := s.GetOrCompute(ctx, "q", constantAnswer("ok", &calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "ok", answer)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, path := newTestStore(t, 0)
	ctx := context.Background()
	var calls int32

	_, _, _, err := s.GetOrCompute(ctx, "what is ridge?", constantAnswer("L2.", &calls))
	require.NoError(t, err)

	reopened, err := Open(types.CacheConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	answer, sources, hit, err := reopened.GetOrCompute(ctx, "what is ridge?", constantAnswer("other", &calls))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "L2.", answer)
	assert.Equal(t, "ridge", sources[0].PaperID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(types.CacheConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMalformedEntriesDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	good := Fingerprint("good question")
	doc := `{
		"` + good + `": {"fingerprint": "` + good + `", "question": "good question", "answer": "fine", "created_at": "2026-01-02T00:00:00Z"},
		"deadbeef": {"fingerprint": "deadbeef", "question": "no answer", "answer": "", "created_at": "2026-01-02T00:00:00Z"},
		"cafef00d": {"fingerprint": "mismatched", "question": "bad key", "answer": "x", "created_at": "2026-01-02T00:00:00Z"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Open(types.CacheConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	_, _, hit, err := s.GetOrCompute(context.Background(), "good question", nil)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestExpiredEntryRecomputed(t *testing.T) {
	s, path := newTestStore(t, time.Hour)
	ctx := context.Background()
	var calls int32

	_, _, _, err := s.GetOrCompute(ctx, "q", constantAnswer("old", &calls))
	require.NoError(t, err)

	// Rewrite the persisted entry with an old timestamp, then reopen.
	reopened, err := Open(types.CacheConfig{Path: path, TTL: time.Hour})
	require.NoError(t, err)
	fp := Fingerprint("q")
	reopened.mu.Lock()
	e := reopened.entries[fp]
	e.CreatedAt = time.Now().Add(-2 * time.Hour)
	reopened.entries[fp] = e
	reopened.mu.Unlock()

	answer, _, hit, err := reopened.GetOrCompute(ctx, "q", constantAnswer("fresh", &calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", answer)
}

func TestInvalidate(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()
	var calls int32

	_, _, _, err := s.GetOrCompute(ctx, "q", constantAnswer("v1", &calls))
	require.NoError(t, err)

	require.NoError(t, s.Invalidate(Fingerprint("q")))
	assert.Equal(t, 0, s.Len())

	// Invalidating an absent fingerprint is a no-op.
	require.NoError(t, s.Invalidate("absent"))

	answer, _, hit, err := s.GetOrCompute(ctx, "q", constantAnswer("v2", &calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "v2", answer)
}

func TestClear(t *testing.T) {
	s, path := newTestStore(t, 0)
	ctx := context.Background()
	var calls int32

	_, _, _, err := s.GetOrCompute(ctx, "a", constantAnswer("x", &calls))
	require.NoError(t, err)
	_, _, _, err = s.GetOrCompute(ctx, "b", constantAnswer("y", &calls))
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())

	reopened, err := Open(types.CacheConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestEntries(t *testing.T) {
	s, _ := newTestStore(t, 0)
	var calls int32
	_, _, _, err := s.GetOrCompute(context.Background(), "q", constantAnswer("a", &calls))
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "q", entries[0].Question)
	assert.Equal(t, Fingerprint("q"), entries[0].Fingerprint)
}
