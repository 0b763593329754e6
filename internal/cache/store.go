// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists AI artifacts (filter verdicts, summaries,
// translations, insights) between runs so unchanged papers are not
// re-sent to the provider.
//
// The backing file is one JSON object mapping "{arxiv_id}:{updated}" to
// an entry. Entries carry independent fingerprints for the filter
// verdict and for the enrichment artifacts; an artifact is served only
// when its stored fingerprint matches the current configuration.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

// renameFile is swapped in tests to simulate a crash between writing
// the temporary file and replacing the target.
var renameFile = os.Rename

// timeNow is swapped in tests to control cached_at stamps.
var timeNow = time.Now

// Key returns the identity key for one paper revision. A re-submitted
// but edited paper has a different Updated time and therefore a
// different key.
func Key(arxivID string, updated time.Time) string {
	return arxivID + ":" + updated.UTC().Format(time.RFC3339)
}

// Entry is one cached record. Fields that were never computed are
// omitted from the file entirely.
type Entry struct {
	// CachedAt is the last update time; eviction drops the oldest.
	CachedAt time.Time `json:"cached_at"`

	// AIKey fingerprints the configuration that produced the
	// enrichment artifacts below.
	AIKey       string               `json:"ai_cache_key,omitempty"`
	Summary     *types.Summary       `json:"ai_summary,omitempty"`
	Translation string               `json:"translation,omitempty"`
	Insights    []string             `json:"insights,omitempty"`

	// FilterKey fingerprints the configuration that produced the
	// filter verdict; independent of AIKey.
	FilterKey    string               `json:"filter_cache_key,omitempty"`
	FilterResult *types.FilterVerdict `json:"filter_result,omitempty"`
}

// Artifact carries one AI output in and out of the store. Exactly one
// field is set, matching the ArtifactKind of the call.
type Artifact struct {
	Summary     *types.Summary
	Translation string
	Insights    []string
	Filter      *types.FilterVerdict
}

// Stats counts cache outcomes over the lifetime of one Store.
type Stats struct {
	// Hits and Misses count Lookup results. FingerprintMisses is the
	// subset of Misses caused by a configuration change rather than an
	// absent entry; those are expected after editing prompts and are
	// not reported as errors.
	Hits              int
	Misses            int
	FingerprintMisses int

	// Evicted counts entries dropped by capacity eviction.
	Evicted int
}

// Store is a concurrency-safe artifact cache with a single JSON file
// backing it. The file is read once at Load and written once at
// Persist; workers only touch the in-memory map.
type Store struct {
	mu       sync.Mutex
	path     string
	maxItems int
	entries  map[string]*Entry
	dirty    bool
	stats    Stats
}

// Load opens the cache at path. Failures are soft: a missing file
// yields an empty store and no error; an unreadable or malformed file
// yields an empty store plus a warning error for the caller to log.
// The returned store is always usable.
func Load(path string, maxItems int) (*Store, error) {
	s := &Store{path: path, maxItems: maxItems, entries: make(map[string]*Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading cache %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.entries = make(map[string]*Entry)
		return s, fmt.Errorf("parsing cache %s: %w", path, err)
	}
	return s, nil
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the run counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Lookup returns the cached artifact for one paper revision and kind.
// It is a hit only when the entry exists, the kind's stored fingerprint
// equals fingerprint, and the artifact itself is present. A fingerprint
// mismatch is a silent miss: the artifact was computed under a
// different configuration and must be recomputed.
func (s *Store) Lookup(arxivID string, updated time.Time, kind types.ArtifactKind, fingerprint string) (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[Key(arxivID, updated)]
	if !ok {
		s.stats.Misses++
		return Artifact{}, false
	}

	storedKey := e.AIKey
	if kind == types.KindFilter {
		storedKey = e.FilterKey
	}
	if storedKey != fingerprint {
		s.stats.Misses++
		if storedKey != "" {
			s.stats.FingerprintMisses++
		}
		return Artifact{}, false
	}

	var a Artifact
	present := false
	switch kind {
	case types.KindFilter:
		a.Filter, present = e.FilterResult, e.FilterResult != nil
	case types.KindSummary:
		a.Summary, present = e.Summary, !e.Summary.IsZero()
	case types.KindTranslation:
		a.Translation, present = e.Translation, e.Translation != ""
	case types.KindInsights:
		a.Insights, present = e.Insights, len(e.Insights) > 0
	}
	if !present {
		s.stats.Misses++
		return Artifact{}, false
	}
	s.stats.Hits++
	return a, true
}

// Put upserts one artifact for a paper revision, stamping cached_at and
// the kind's fingerprint. When the fingerprint differs from the one
// already stored, sibling artifacts under the old fingerprint are
// dropped so they can never be served against the new configuration.
func (s *Store) Put(arxivID string, updated time.Time, kind types.ArtifactKind, fingerprint string, artifact Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(arxivID, updated)
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{}
		s.entries[key] = e
	}
	e.CachedAt = timeNow().UTC()

	switch kind {
	case types.KindFilter:
		e.FilterKey = fingerprint
		e.FilterResult = artifact.Filter
	default:
		if e.AIKey != "" && e.AIKey != fingerprint {
			e.Summary, e.Translation, e.Insights = nil, "", nil
		}
		e.AIKey = fingerprint
		switch kind {
		case types.KindSummary:
			e.Summary = artifact.Summary
		case types.KindTranslation:
			e.Translation = artifact.Translation
		case types.KindInsights:
			e.Insights = artifact.Insights
		}
	}
	s.dirty = true
}

// Evict drops the least recently updated entries until the store is at
// or below its capacity. A capacity of 0 disables eviction. Returns the
// number of entries removed.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxItems <= 0 || len(s.entries) <= s.maxItems {
		return 0
	}

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	// Oldest first; ties broken by key for determinism.
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.entries[keys[i]], s.entries[keys[j]]
		if !a.CachedAt.Equal(b.CachedAt) {
			return a.CachedAt.Before(b.CachedAt)
		}
		return keys[i] < keys[j]
	})

	evict := len(s.entries) - s.maxItems
	for _, k := range keys[:evict] {
		delete(s.entries, k)
	}
	s.stats.Evicted += evict
	s.dirty = true
	return evict
}

// Persist writes the store to its file atomically: the content goes to
// a temporary file in the target directory which is then renamed over
// the target, so a crash mid-write leaves the previous file intact.
// A clean store is not rewritten, making back-to-back calls yield
// byte-identical files; a clean store with no file yet still writes,
// so the file exists after the first run. Errors are returned for
// logging; callers treat them as non-fatal.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		if _, err := os.Stat(s.path); err == nil {
			return nil
		}
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := renameFile(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing cache file %s: %w", s.path, err)
	}

	s.dirty = false
	return nil
}
