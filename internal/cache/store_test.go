// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/arxiv-agent/pkg/types"
)

var testUpdated = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Load(filepath.Join(t.TempDir(), "cache.json"), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestKey(t *testing.T) {
	got := Key("2301.07041", testUpdated)
	want := "2301.07041:2026-01-02T15:04:05Z"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}

	// Non-UTC times normalize to UTC so the same revision maps to the
	// same key regardless of load location.
	est := testUpdated.In(time.FixedZone("EST", -5*3600))
	if k := Key("2301.07041", est); k != want {
		t.Errorf("Key (EST) = %q, want %q", k, want)
	}
}

func TestLookupMissAndHit(t *testing.T) {
	s := testStore(t)

	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindSummary, "fp1"); ok {
		t.Fatal("Lookup on empty store reported a hit")
	}

	sum := &types.Summary{KeyIdea: "sparse attention scales"}
	s.Put("2301.07041", testUpdated, types.KindSummary, "fp1", Artifact{Summary: sum})

	a, ok := s.Lookup("2301.07041", testUpdated, types.KindSummary, "fp1")
	if !ok {
		t.Fatal("Lookup after Put missed")
	}
	if a.Summary.KeyIdea != "sparse attention scales" {
		t.Errorf("Summary.KeyIdea = %q", a.Summary.KeyIdea)
	}

	// A different revision of the same paper is a different identity.
	if _, ok := s.Lookup("2301.07041", testUpdated.Add(time.Hour), types.KindSummary, "fp1"); ok {
		t.Error("Lookup hit for a different Updated time")
	}
}

func TestLookupFingerprintMismatch(t *testing.T) {
	s := testStore(t)
	s.Put("2301.07041", testUpdated, types.KindSummary, "fp1", Artifact{Summary: &types.Summary{Raw: "x"}})

	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindSummary, "fp2"); ok {
		t.Fatal("Lookup hit despite fingerprint mismatch")
	}

	st := s.Stats()
	if st.FingerprintMisses != 1 {
		t.Errorf("FingerprintMisses = %d, want 1", st.FingerprintMisses)
	}
	if st.Misses != 1 {
		t.Errorf("Misses = %d, want 1", st.Misses)
	}
}

func TestFilterAndEnrichmentKeysIndependent(t *testing.T) {
	s := testStore(t)
	s.Put("2301.07041", testUpdated, types.KindFilter, "filter-fp1",
		Artifact{Filter: &types.FilterVerdict{Relevant: true, Confidence: 0.9}})
	s.Put("2301.07041", testUpdated, types.KindSummary, "ai-fp1",
		Artifact{Summary: &types.Summary{Raw: "x"}})

	// A filter configuration change misses the verdict but still hits
	// the summary.
	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindFilter, "filter-fp2"); ok {
		t.Error("filter verdict hit under changed filter fingerprint")
	}
	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindSummary, "ai-fp1"); !ok {
		t.Error("summary missed after unrelated filter fingerprint change")
	}
}

func TestPutDropsStaleSiblings(t *testing.T) {
	s := testStore(t)
	s.Put("2301.07041", testUpdated, types.KindSummary, "fp1", Artifact{Summary: &types.Summary{Raw: "old"}})
	s.Put("2301.07041", testUpdated, types.KindInsights, "fp2", Artifact{Insights: []string{"a"}})

	// The summary was produced under fp1; after the entry moved to fp2
	// it must not be served under either fingerprint.
	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindSummary, "fp1"); ok {
		t.Error("stale summary served under old fingerprint")
	}
	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindSummary, "fp2"); ok {
		t.Error("stale summary served under new fingerprint")
	}
	if _, ok := s.Lookup("2301.07041", testUpdated, types.KindInsights, "fp2"); !ok {
		t.Error("fresh insights missed")
	}
}

func TestEvict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 5)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Insert 8 entries with strictly increasing cached_at.
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	oldNow := timeNow
	timeNow = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	}
	defer func() { timeNow = oldNow }()

	for n := 0; n < 8; n++ {
		s.Put(fmt.Sprintf("2301.%05d", n), testUpdated, types.KindTranslation, "fp", Artifact{Translation: "t"})
	}

	evicted := s.Evict()
	if evicted != 3 {
		t.Fatalf("Evict removed %d entries, want 3", evicted)
	}
	if s.Len() != 5 {
		t.Fatalf("Len = %d after eviction, want 5", s.Len())
	}

	// The three oldest are gone, the five newest remain.
	for n := 0; n < 3; n++ {
		if _, ok := s.Lookup(fmt.Sprintf("2301.%05d", n), testUpdated, types.KindTranslation, "fp"); ok {
			t.Errorf("entry %d survived eviction", n)
		}
	}
	for n := 3; n < 8; n++ {
		if _, ok := s.Lookup(fmt.Sprintf("2301.%05d", n), testUpdated, types.KindTranslation, "fp"); !ok {
			t.Errorf("entry %d evicted, want retained", n)
		}
	}
	if st := s.Stats(); st.Evicted != 3 {
		t.Errorf("Stats.Evicted = %d, want 3", st.Evicted)
	}
}

func TestEvictUnderCapacityNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 10)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Put("2301.00001", testUpdated, types.KindTranslation, "fp", Artifact{Translation: "t"})
	if n := s.Evict(); n != 0 {
		t.Errorf("Evict removed %d entries under capacity", n)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s.Put("2301.07041", testUpdated, types.KindSummary, "fp1", Artifact{Summary: &types.Summary{KeyIdea: "k"}})
	s.Put("2301.07041", testUpdated, types.KindFilter, "fpf", Artifact{Filter: &types.FilterVerdict{Relevant: true, Confidence: 0.8, Reason: "on topic"}})
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := Load(path, 0)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Lookup("2301.07041", testUpdated, types.KindSummary, "fp1"); !ok {
		t.Error("summary missed after reload")
	}
	a, ok := reloaded.Lookup("2301.07041", testUpdated, types.KindFilter, "fpf")
	if !ok {
		t.Fatal("filter verdict missed after reload")
	}
	if !a.Filter.Relevant || a.Filter.Confidence != 0.8 {
		t.Errorf("filter verdict = %+v", a.Filter)
	}
}

func TestPersistOmitsAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Put("2301.07041", testUpdated, types.KindSummary, "fp1", Artifact{Summary: &types.Summary{KeyIdea: "k"}})
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}
	for _, absent := range []string{"translation", "insights", "filter_cache_key", "filter_result", "null"} {
		if strings.Contains(string(data), absent) {
			t.Errorf("cache file contains %q for a never-computed field:\n%s", absent, data)
		}
	}
}

func TestPersistIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Put("2301.07041", testUpdated, types.KindTranslation, "fp", Artifact{Translation: "t"})

	if err := s.Persist(); err != nil {
		t.Fatalf("first Persist: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}

	if err := s.Persist(); err != nil {
		t.Fatalf("second Persist: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("back-to-back Persist calls produced different file content")
	}
}

func TestPersistCleanStoreCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Nothing was put, but the file should still materialize so later
	// inspection finds an empty cache rather than no cache.
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cache file not created: %v", err)
	}
	if strings.TrimSpace(string(data)) != "{}" {
		t.Errorf("empty store persisted as %q, want {}", data)
	}
}

func TestPersistAtomicOnRenameFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Put("2301.07041", testUpdated, types.KindTranslation, "fp", Artifact{Translation: "t"})
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}

	// Simulate a crash before the final replace.
	oldRename := renameFile
	renameFile = func(oldpath, newpath string) error {
		return errors.New("boom")
	}
	defer func() { renameFile = oldRename }()

	s.Put("2301.07041", testUpdated, types.KindTranslation, "fp", Artifact{Translation: "changed"})
	if err := s.Persist(); err == nil {
		t.Fatal("Persist succeeded despite rename failure")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("interrupted Persist corrupted the previous file")
	}

	// No temp litter left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".cache-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestLoadCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, 0)
	if err == nil {
		t.Fatal("Load of corrupt file returned no warning")
	}
	if s == nil {
		t.Fatal("Load of corrupt file returned nil store")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d for corrupt file, want 0", s.Len())
	}

	// The degraded store is fully usable.
	s.Put("2301.07041", testUpdated, types.KindTranslation, "fp", Artifact{Translation: "t"})
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist after degraded load: %v", err)
	}
	if _, err := Load(path, 0); err != nil {
		t.Errorf("reload after recovery: %v", err)
	}
}

func TestLoadMissingFileNoWarning(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"), 0)
	if err != nil {
		t.Fatalf("Load of missing file warned: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}
