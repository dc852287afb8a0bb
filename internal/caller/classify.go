// Package caller calls the Plasmepsin 2/3 amplification breakpoint for each
// sample from its genotypes at the diagnostic loci.
//
// The amplification creates a hybrid gene made of portions of plasmepsin 1 and
// plasmepsin 3. Hybrid reads align to plasmepsin 1 but carry plasmepsin 3
// SNPs, so an alternate genotype at any diagnostic locus marks the
// amplification.
package caller

import (
	"fmt"

	"github.com/genome-surveillance/grc-plasmepsin/internal/genotype"
	"github.com/genome-surveillance/grc-plasmepsin/internal/locus"
)

// Call labels that do not come from the locus configuration.
const (
	WildType = "WT"
	Missing  = "-"
)

// CallLookup finds the genotype call of a sample at a position.
type CallLookup interface {
	Lookup(sampleID, position string) (string, bool)
}

// SampleResult is the call made for one sample.
type SampleResult struct {
	SampleID string
	Variant  string
}

// Classify returns the variant label for sampleID.
//
// Loci are visited in order and the first one whose alternate genotype was
// called decides the label. Without a match the sample is wild type, unless
// every locus is uncalled, in which case it is Missing.
func Classify(sampleID string, calls CallLookup, loci []locus.Locus) (string, error) {
	missing := 0

	for _, l := range loci {
		call, ok := calls.Lookup(sampleID, l.Position)
		if !ok {
			return "", &MissingObservationError{SampleID: sampleID, Position: l.Position}
		}

		switch {
		case l.IsAlternate(call):
			return l.Variant, nil
		case call == genotype.MissingCall:
			missing++
		}
	}

	if missing == len(loci) {
		return Missing, nil
	}
	return WildType, nil
}

// MissingObservationError reports a sample with no row at a configured locus.
type MissingObservationError struct {
	File     string
	SampleID string
	Position string
}

func (e *MissingObservationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: sample %s has no genotype at diagnostic locus %s", e.File, e.SampleID, e.Position)
	}
	return fmt.Sprintf("sample %s has no genotype at diagnostic locus %s", e.SampleID, e.Position)
}
