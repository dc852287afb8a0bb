package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genome-surveillance/grc-plasmepsin/internal/duckdb"
)

func newSummaryCmd() *cobra.Command {
	var (
		sampleID    string
		showSources bool
		reset       bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarise calls recorded in a call database",
		Example: `  grc-plasmepsin summary --db calls.duckdb
  grc-plasmepsin summary --db calls.duckdb --sources
  grc-plasmepsin summary --db calls.duckdb --sample SPT00001
  grc-plasmepsin summary --db calls.duckdb --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("summary.db")
			if dbPath == "" {
				return &usageError{err: errors.New("--db is required")}
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open call database %s: %w", dbPath, err)
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			switch {
			case reset:
				n, err := store.ClearCalls()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Removed %d calls from %s\n", n, dbPath)
				return nil
			case sampleID != "":
				return printSample(w, store, sampleID)
			case showSources:
				return printSources(w, store)
			default:
				return printCounts(w, store)
			}
		},
	}

	cmd.Flags().String("db", "", "DuckDB call database written by 'call --db'")
	cmd.Flags().StringVar(&sampleID, "sample", "", "Show the recorded calls of one sample")
	cmd.Flags().BoolVar(&showSources, "sources", false, "List the recorded genotype files")
	cmd.Flags().BoolVar(&reset, "reset", false, "Remove every recorded call and source")
	cmd.MarkFlagsMutuallyExclusive("reset", "sample", "sources")

	viper.BindPFlag("summary.db", cmd.Flags().Lookup("db"))

	return cmd
}

func printCounts(w io.Writer, store *duckdb.Store) error {
	counts, err := store.VariantCounts()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "variant\tcount")
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Variant, c.Count)
	}
	return nil
}

func printSample(w io.Writer, store *duckdb.Store, sampleID string) error {
	calls, err := store.LookupSample(sampleID)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		return fmt.Errorf("no calls recorded for sample %s", sampleID)
	}
	fmt.Fprintln(w, "source_file\tID\tvariant")
	for _, c := range calls {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.SourceFile, c.SampleID, c.Variant)
	}
	return nil
}

func printSources(w io.Writer, store *duckdb.Store) error {
	sources, err := store.Sources()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "source_file\tsamples\tsize\tmod_time\trecorded_at")
	for _, s := range sources {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			s.Path, s.Samples, s.Size,
			s.ModTime.UTC().Format(time.RFC3339), s.RecordedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
