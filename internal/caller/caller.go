package caller

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/genome-surveillance/grc-plasmepsin/internal/genotype"
	"github.com/genome-surveillance/grc-plasmepsin/internal/locus"
)

// ResultWriter defines the interface for writing sample calls.
type ResultWriter interface {
	WriteHeader() error
	Write(r SampleResult) error
	Flush() error
}

// FileCalls holds the calls written for the samples of one genotype file.
type FileCalls struct {
	Path    string
	Results []SampleResult
}

// ResultRecorder receives the calls of every genotype file once the whole
// run has succeeded.
type ResultRecorder interface {
	RecordCalls(files []FileCalls) error
}

// Stats summarises a run.
type Stats struct {
	Files    int
	Samples  int
	Repeated int
	Variants map[string]int
}

// firstCall is where a sample was first called.
type firstCall struct {
	file    string
	variant string
}

// Caller calls variants for every sample of a list of genotype files.
type Caller struct {
	cfg       *locus.Config
	positions map[string]struct{}
	recorder  ResultRecorder
	logger    *zap.Logger
}

// New creates a caller for the given locus configuration.
func New(cfg *locus.Config) *Caller {
	return &Caller{
		cfg:       cfg,
		positions: cfg.Positions(),
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and debug messages.
func (c *Caller) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetRecorder sets an additional destination for each file's calls.
func (c *Caller) SetRecorder(r ResultRecorder) {
	c.recorder = r
}

// CallIndex calls every sample of idx in discovery order.
func (c *Caller) CallIndex(idx *genotype.Index) ([]SampleResult, error) {
	samples := idx.Samples()
	results := make([]SampleResult, 0, len(samples))

	for _, id := range samples {
		variant, err := Classify(id, idx, c.cfg.Loci)
		if err != nil {
			var moe *MissingObservationError
			if errors.As(err, &moe) {
				moe.File = idx.Name()
			}
			return nil, err
		}
		results = append(results, SampleResult{SampleID: id, Variant: variant})
	}

	return results, nil
}

// CallFile indexes the genotype table at path and calls its samples.
func (c *Caller) CallFile(path string) ([]SampleResult, error) {
	idx, err := genotype.IndexFile(path, c.positions, genotype.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	c.logger.Debug("indexed genotype file",
		zap.String("file", path),
		zap.Int("calls", idx.Len()),
		zap.Int("samples", len(idx.Samples())))

	return c.CallIndex(idx)
}

// CallAll calls every file in order and writes the header followed by one
// row per distinct sample to w. A sample found in more than one file keeps
// the call from the first file. Any error aborts the run, and the recorder
// only sees the calls once every file has been called and w flushed.
func (c *Caller) CallAll(paths []string, w ResultWriter) (*Stats, error) {
	stats := &Stats{Variants: make(map[string]int)}
	seen := make(map[string]firstCall)
	var batches []FileCalls
	batchIndex := make(map[string]int)

	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, path := range paths {
		results, err := c.CallFile(path)
		if err != nil {
			return nil, err
		}

		kept := make([]SampleResult, 0, len(results))
		for _, r := range results {
			if first, ok := seen[r.SampleID]; ok {
				c.warnRepeated(r, path, first)
				stats.Repeated++
				continue
			}
			seen[r.SampleID] = firstCall{file: path, variant: r.Variant}

			if err := w.Write(r); err != nil {
				return nil, fmt.Errorf("write call for %s: %w", r.SampleID, err)
			}
			stats.Variants[r.Variant]++
			kept = append(kept, r)
		}

		if i, ok := batchIndex[path]; ok {
			batches[i].Results = append(batches[i].Results, kept...)
		} else {
			batchIndex[path] = len(batches)
			batches = append(batches, FileCalls{Path: path, Results: kept})
		}

		stats.Files++
		stats.Samples += len(kept)
		c.logger.Info("called genotype file",
			zap.String("file", path),
			zap.Int("samples", len(kept)),
			zap.Int("repeated", len(results)-len(kept)))
	}

	if stats.Files == 0 {
		c.logger.Info("0 genotype files processed")
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush output: %w", err)
	}

	if c.recorder != nil && len(batches) > 0 {
		if err := c.recorder.RecordCalls(batches); err != nil {
			return nil, fmt.Errorf("record calls: %w", err)
		}
	}

	return stats, nil
}

func (c *Caller) warnRepeated(r SampleResult, path string, first firstCall) {
	fields := []zap.Field{
		zap.String("sample", r.SampleID),
		zap.String("first_file", first.file),
		zap.String("file", path),
	}
	if r.Variant != first.variant {
		c.logger.Warn("conflicting calls for sample, keeping the first",
			append(fields, zap.String("first_call", first.variant), zap.String("call", r.Variant))...)
		return
	}
	c.logger.Warn("sample called in more than one genotype file", fields...)
}
