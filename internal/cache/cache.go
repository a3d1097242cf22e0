// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache memoizes question → answer computations, keyed by a
// fingerprint of the normalized question, with single-flight deduplication
// of concurrent identical requests and a persisted JSON document so a
// process restart does not repeat generation work.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/scholar-engine/pkg/types"
)

// ComputeFunc produces the answer and sources for a cache miss.
type ComputeFunc func(ctx context.Context) (string, []types.Source, error)

// flight tracks one in-progress computation. Waiters block on done and share
// the flight's result.
type flight struct {
	done    chan struct{}
	answer  string
	sources []types.Source
	err     error
}

// Store is the response cache. The in-memory map is authoritative during
// operation; every write flushes the full document atomically.
type Store struct {
	path string
	ttl  time.Duration

	mu      sync.Mutex
	entries map[string]types.CacheEntry
	flights map[string]*flight
}

// Open loads the persisted cache at cfg.Path, creating the directory if
// needed. An unreadable or malformed cache file is treated as empty (a
// corrupt cache costs regeneration, never a failure); individual malformed
// entries are dropped the same way.
func Open(cfg types.CacheConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = filepath.Join("cache", "scholar_cache.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	s := &Store{
		path:    path,
		ttl:     cfg.TTL,
		entries: make(map[string]types.CacheEntry),
		flights: make(map[string]*flight),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading cache file %s: %w", path, err)
	}

	var loaded map[string]types.CacheEntry
	if err := json.Unmarshal(data, &loaded); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cache file %s unreadable, starting empty: %v\n", path, err)
		return s, nil
	}
	for fp, e := range loaded {
		if e.Fingerprint == "" {
			e.Fingerprint = fp
		}
		if !e.Valid() || e.Fingerprint != fp {
			fmt.Fprintf(os.Stderr, "warning: dropping malformed cache entry %s\n", fp)
			continue
		}
		s.entries[fp] = e
	}
	return s, nil
}

// Normalize canonicalizes a question for fingerprinting: case-folded,
// whitespace-collapsed, trimmed.
func Normalize(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// Fingerprint returns the cache key for a question.
func Fingerprint(question string) string {
	sum := sha256.Sum256([]byte(Normalize(question)))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached answer for the question, or runs fn to
// compute it. Concurrent callers with the same fingerprint share a single
// computation; callers for different fingerprints proceed independently.
// On computation failure nothing is persisted and the next caller retries.
// hit reports whether a valid persisted entry was served.
func (s *Store) GetOrCompute(ctx context.Context, question string, fn ComputeFunc) (answer string, sources []types.Source, hit bool, err error) {
	fp := Fingerprint(question)

	s.mu.Lock()
	if e, ok := s.entries[fp]; ok {
		if e.Valid() && !e.Expired(s.ttl, time.Now()) {
			s.mu.Unlock()
			return e.Answer, e.Sources, true, nil
		}
		// Expired or malformed entries behave as misses.
		delete(s.entries, fp)
	}

	if f, ok := s.flights[fp]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.answer, f.sources, false, f.err
		case <-ctx.Done():
			return "", nil, false, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	s.flights[fp] = f
	s.mu.Unlock()

	answer, sources, err = fn(ctx)

	s.mu.Lock()
	delete(s.flights, fp)
	if err == nil {
		s.entries[fp] = types.CacheEntry{
			Fingerprint: fp,
			Question:    question,
			Answer:      answer,
			Sources:     sources,
			CreatedAt:   time.Now().UTC(),
		}
		if flushErr := s.flushLocked(); flushErr != nil {
			fmt.Fprintf(os.Stderr, "warning: cache flush failed: %v\n", flushErr)
		}
	}
	f.answer, f.sources, f.err = answer, sources, err
	s.mu.Unlock()
	close(f.done)

	return answer, sources, false, err
}

// Invalidate removes the entry for a fingerprint, forcing recomputation on
// the next request.
func (s *Store) Invalidate(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[fingerprint]; !ok {
		return nil
	}
	delete(s.entries, fingerprint)
	return s.flushLocked()
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]types.CacheEntry)
	return s.flushLocked()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of all cached entries, for inspection commands.
func (s *Store) Entries() []types.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// flushLocked writes the full cache document via a temp file and rename so
// readers never observe a partial file. Caller holds s.mu.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
