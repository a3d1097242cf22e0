// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CacheEntry is one memoized question → answer computation. Entries are never
// mutated in place; a cache update is a full replacement of the entry.
type CacheEntry struct {
	// Fingerprint is the sha256 hex of the normalized question.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Question is the original (un-normalized) question text, kept for
	// inspection of the persisted cache file.
	Question string `json:"question" yaml:"question"`

	// Answer is the generated answer text.
	Answer string `json:"answer" yaml:"answer"`

	// Sources lists the citation targets the answer is grounded on.
	Sources []Source `json:"sources" yaml:"sources"`

	// CreatedAt is when the entry was first computed, used for TTL checks.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Valid reports whether the entry is structurally usable. Entries failing this
// check are treated as cache misses rather than errors.
func (e CacheEntry) Valid() bool {
	return e.Fingerprint != "" && e.Answer != ""
}

// Expired reports whether the entry is older than ttl. A zero ttl disables
// expiry.
func (e CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > ttl
}
