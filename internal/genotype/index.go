package genotype

import (
	"fmt"

	"go.uber.org/zap"
)

// Key identifies the genotype call of one sample at one position.
type Key struct {
	SampleID string
	Position string
}

// Index maps (sample, position) to the genotype call observed in one
// genotype table. Only rows at diagnostic positions are kept. An Index is not
// modified after it is built.
type Index struct {
	name    string
	calls   map[Key]string
	samples []string
}

// IndexOption configures BuildIndex.
type IndexOption func(*indexOptions)

type indexOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger used to report duplicate rows.
func WithLogger(l *zap.Logger) IndexOption {
	return func(o *indexOptions) { o.logger = l }
}

// BuildIndex consumes r and keeps the observations whose position is in
// positions. When a sample has more than one row at the same position the
// last one wins. The reader is not closed.
func BuildIndex(name string, r Reader, positions map[string]struct{}, opts ...IndexOption) (*Index, error) {
	o := indexOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{
		name:  name,
		calls: make(map[Key]string),
	}
	seen := make(map[string]struct{})

	for {
		obs, err := r.Next()
		if err != nil {
			return nil, err
		}
		if obs == nil {
			break
		}

		if _, ok := positions[obs.Position]; !ok {
			continue
		}

		k := Key{SampleID: obs.SampleID, Position: obs.Position}
		if prev, dup := idx.calls[k]; dup {
			o.logger.Debug("duplicate genotype row, keeping the later call",
				zap.String("file", name),
				zap.Int("line", r.LineNumber()),
				zap.String("sample", obs.SampleID),
				zap.String("position", obs.Position),
				zap.String("previous", prev),
				zap.String("call", obs.Call))
		}
		idx.calls[k] = obs.Call

		if _, ok := seen[obs.SampleID]; !ok {
			seen[obs.SampleID] = struct{}{}
			idx.samples = append(idx.samples, obs.SampleID)
		}
	}

	return idx, nil
}

// IndexFile opens the genotype table at path, indexes it and closes it.
func IndexFile(path string, positions map[string]struct{}, opts ...IndexOption) (*Index, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	idx, err := BuildIndex(path, p, positions, opts...)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	return idx, nil
}

// Lookup returns the call for sampleID at position and whether the table had
// a row for it.
func (idx *Index) Lookup(sampleID, position string) (string, bool) {
	call, ok := idx.calls[Key{SampleID: sampleID, Position: position}]
	return call, ok
}

// Samples returns the distinct sample IDs in the order they first appear.
func (idx *Index) Samples() []string {
	out := make([]string, len(idx.samples))
	copy(out, idx.samples)
	return out
}

// Name returns the name of the table the index was built from.
func (idx *Index) Name() string {
	return idx.name
}

// Len returns the number of indexed calls.
func (idx *Index) Len() int {
	return len(idx.calls)
}
