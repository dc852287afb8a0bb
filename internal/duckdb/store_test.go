package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-surveillance/grc-plasmepsin/internal/caller"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sourceFile creates an on-disk file to stand in for a genotype table.
func sourceFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("ID\tChr\tLoc\tGen\n"), 0644))
	return path
}

// record stores the calls of a single source file.
func record(s *Store, path string, results []caller.SampleResult) error {
	return s.RecordCalls([]caller.FileCalls{{Path: path, Results: results}})
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	counts, err := s.VariantCounts()
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestOpen_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calls.duckdb")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, record(s, sourceFile(t, "batch.tsv"), []caller.SampleResult{
		{SampleID: "S1", Variant: "WT"},
	}))
	require.NoError(t, s.Close())

	// Reopen and check that the call persisted.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	calls, err := s.LookupSample("S1")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "WT", calls[0].Variant)
}

func TestRecordCallsAndCounts(t *testing.T) {
	s := openInMemory(t)

	batch1 := sourceFile(t, "batch1.tsv")
	batch2 := sourceFile(t, "batch2.tsv")

	require.NoError(t, record(s, batch1, []caller.SampleResult{
		{SampleID: "SPT00001", Variant: "Copy2"},
		{SampleID: "SPT00002", Variant: caller.Missing},
		{SampleID: "SPT00003", Variant: caller.WildType},
		{SampleID: "SPT00004", Variant: "Copy"},
	}))
	require.NoError(t, record(s, batch2, []caller.SampleResult{
		{SampleID: "SPT00005", Variant: "Copy"},
		{SampleID: "SPT00006", Variant: caller.WildType},
	}))

	counts, err := s.VariantCounts()
	require.NoError(t, err)
	assert.Equal(t, []VariantCount{
		{Variant: "Copy", Count: 2},
		{Variant: caller.WildType, Count: 2},
		{Variant: caller.Missing, Count: 1},
		{Variant: "Copy2", Count: 1},
	}, counts)

	sources, err := s.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, batch1, sources[0].Path)
	assert.Equal(t, int64(4), sources[0].Samples)
	assert.Equal(t, int64(len("ID\tChr\tLoc\tGen\n")), sources[0].Size)
	assert.WithinDuration(t, time.Now(), sources[0].RecordedAt, time.Minute)
	assert.Equal(t, batch2, sources[1].Path)
	assert.Equal(t, int64(2), sources[1].Samples)
}

func TestRecordCalls_ReplacesPreviousCalls(t *testing.T) {
	s := openInMemory(t)
	batch := sourceFile(t, "batch.tsv")

	require.NoError(t, record(s, batch, []caller.SampleResult{
		{SampleID: "S1", Variant: caller.Missing},
		{SampleID: "S2", Variant: caller.WildType},
	}))
	require.NoError(t, record(s, batch, []caller.SampleResult{
		{SampleID: "S1", Variant: "Copy"},
	}))

	calls, err := s.LookupSample("S1")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, StoredCall{SourceFile: batch, SampleID: "S1", Variant: "Copy"}, calls[0])

	calls, err = s.LookupSample("S2")
	require.NoError(t, err)
	assert.Empty(t, calls)

	sources, err := s.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, int64(1), sources[0].Samples)
}

func TestRecordCalls_MissingSource(t *testing.T) {
	s := openInMemory(t)

	err := record(s, filepath.Join(t.TempDir(), "absent.tsv"), nil)
	assert.Error(t, err)
}

func TestLookupSample_AcrossFiles(t *testing.T) {
	s := openInMemory(t)
	a := sourceFile(t, "a.tsv")
	b := sourceFile(t, "b.tsv")

	require.NoError(t, record(s, b, []caller.SampleResult{{SampleID: "S1", Variant: caller.WildType}}))
	require.NoError(t, record(s, a, []caller.SampleResult{{SampleID: "S1", Variant: "Copy"}}))

	calls, err := s.LookupSample("S1")
	require.NoError(t, err)
	require.Len(t, calls, 2)

	// Ordered by source path.
	if a < b {
		assert.Equal(t, "Copy", calls[0].Variant)
	} else {
		assert.Equal(t, caller.WildType, calls[0].Variant)
	}
}

func TestClearCalls(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, record(s, sourceFile(t, "batch.tsv"), []caller.SampleResult{
		{SampleID: "S1", Variant: caller.WildType},
	}))
	n, err := s.ClearCalls()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := s.VariantCounts()
	require.NoError(t, err)
	assert.Empty(t, counts)

	sources, err := s.Sources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestRecordCalls_AllOrNothing(t *testing.T) {
	s := openInMemory(t)
	batch := sourceFile(t, "batch.tsv")
	require.NoError(t, record(s, batch, []caller.SampleResult{{SampleID: "S1", Variant: caller.WildType}}))

	err := s.RecordCalls([]caller.FileCalls{
		{Path: batch, Results: []caller.SampleResult{{SampleID: "S1", Variant: "Copy"}}},
		{Path: sourceFile(t, "other.tsv"), Results: []caller.SampleResult{{SampleID: "S2", Variant: "Copy2"}}},
		{Path: filepath.Join(t.TempDir(), "absent.tsv")},
	})
	require.Error(t, err)

	// The earlier run's calls are untouched and nothing new was stored.
	calls, err := s.LookupSample("S1")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, caller.WildType, calls[0].Variant)

	calls, err = s.LookupSample("S2")
	require.NoError(t, err)
	assert.Empty(t, calls)

	sources, err := s.Sources()
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestRecordCalls_ManyFiles(t *testing.T) {
	s := openInMemory(t)
	a := sourceFile(t, "a.tsv")
	b := sourceFile(t, "b.tsv")

	require.NoError(t, s.RecordCalls([]caller.FileCalls{
		{Path: a, Results: []caller.SampleResult{{SampleID: "S1", Variant: "Copy"}}},
		{Path: b, Results: []caller.SampleResult{{SampleID: "S2", Variant: caller.WildType}, {SampleID: "S3", Variant: caller.Missing}}},
	}))

	// Recording again replaces rather than duplicates.
	require.NoError(t, s.RecordCalls([]caller.FileCalls{
		{Path: a, Results: []caller.SampleResult{{SampleID: "S1", Variant: "Copy"}}},
	}))

	counts, err := s.VariantCounts()
	require.NoError(t, err)
	assert.Equal(t, []VariantCount{
		{Variant: caller.Missing, Count: 1},
		{Variant: "Copy", Count: 1},
		{Variant: caller.WildType, Count: 1},
	}, counts)
}
