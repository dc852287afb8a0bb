package caller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-surveillance/grc-plasmepsin/internal/locus"
)

const (
	pos1 = "Pf3D7_14_v3:295605"
	pos2 = "Pf3D7_14_v3:295725"
)

// twoLoci is the configuration used by the scenarios below: the first locus
// accepts hom and het alternate calls, the second only hom.
var twoLoci = []locus.Locus{
	{Position: pos1, Genotypes: []string{"1/1", "0/1"}, Variant: "Copy"},
	{Position: pos2, Genotypes: []string{"1/1"}, Variant: "Copy2"},
}

// mapLookup holds the calls of one sample keyed by position.
type mapLookup map[string]string

func (m mapLookup) Lookup(_ string, position string) (string, bool) {
	call, ok := m[position]
	return call, ok
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		calls mapLookup
		want  string
	}{
		{"second locus matches", mapLookup{pos1: "0/0", pos2: "1/1"}, "Copy2"},
		{"all missing", mapLookup{pos1: "-", pos2: "-"}, Missing},
		{"partly missing is wild type", mapLookup{pos1: "-", pos2: "0/0"}, WildType},
		{"first match wins", mapLookup{pos1: "1/1", pos2: "1/1"}, "Copy"},
		{"het at first locus", mapLookup{pos1: "0/1", pos2: "0/0"}, "Copy"},
		{"het is not alternate at second locus", mapLookup{pos1: "0/0", pos2: "0/1"}, WildType},
		{"missing does not block later match", mapLookup{pos1: "-", pos2: "1/1"}, "Copy2"},
		{"reference everywhere", mapLookup{pos1: "0/0", pos2: "0/0"}, WildType},
		{"unexpected call is not missing", mapLookup{pos1: "./.", pos2: "-"}, WildType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify("SPT00001", tt.calls, twoLoci)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_LaterLociNotConsulted(t *testing.T) {
	// The second locus has no observation at all, which would be an error if
	// it were visited.
	got, err := Classify("SPT00001", mapLookup{pos1: "1/1"}, twoLoci)
	require.NoError(t, err)
	assert.Equal(t, "Copy", got)
}

func TestClassify_MissingObservation(t *testing.T) {
	_, err := Classify("SPT00001", mapLookup{pos1: "0/0"}, twoLoci)
	require.Error(t, err)

	var moe *MissingObservationError
	require.True(t, errors.As(err, &moe))
	assert.Equal(t, "SPT00001", moe.SampleID)
	assert.Equal(t, pos2, moe.Position)
	assert.Equal(t, "sample SPT00001 has no genotype at diagnostic locus "+pos2, err.Error())
}

func TestClassify_Idempotent(t *testing.T) {
	calls := mapLookup{pos1: "-", pos2: "0/0"}

	first, err := Classify("SPT00003", calls, twoLoci)
	require.NoError(t, err)
	second, err := Classify("SPT00003", calls, twoLoci)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassify_SingleLocus(t *testing.T) {
	loci := twoLoci[:1]

	got, err := Classify("S", mapLookup{pos1: "-"}, loci)
	require.NoError(t, err)
	assert.Equal(t, Missing, got)

	got, err = Classify("S", mapLookup{pos1: "0/0"}, loci)
	require.NoError(t, err)
	assert.Equal(t, WildType, got)
}

func TestClassify_PriorityFollowsListOrder(t *testing.T) {
	reversed := []locus.Locus{twoLoci[1], twoLoci[0]}

	got, err := Classify("S", mapLookup{pos1: "1/1", pos2: "1/1"}, reversed)
	require.NoError(t, err)
	assert.Equal(t, "Copy2", got)
}
