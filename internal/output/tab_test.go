package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-surveillance/grc-plasmepsin/internal/caller"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "P23:BP")

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	assert.Equal(t, "ID\tP23:BP\n", buf.String())
}

func TestTabWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "P23:BP")

	require.NoError(t, w.WriteHeader())
	for _, r := range []caller.SampleResult{
		{SampleID: "SPT00001", Variant: "Copy2"},
		{SampleID: "SPT00002", Variant: caller.Missing},
		{SampleID: "SPT00003", Variant: caller.WildType},
	} {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())

	expected := "ID\tP23:BP\n" +
		"SPT00001\tCopy2\n" +
		"SPT00002\t-\n" +
		"SPT00003\tWT\n"
	assert.Equal(t, expected, buf.String())
}

func TestTabWriter_CustomColumn(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "PM23:BP")

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	assert.Equal(t, "ID\tPM23:BP\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("read-only file system") }

func TestTabWriter_FlushError(t *testing.T) {
	w := NewTabWriter(failingWriter{}, "P23:BP")

	require.NoError(t, w.WriteHeader()) // buffered
	assert.Error(t, w.Flush())
}
