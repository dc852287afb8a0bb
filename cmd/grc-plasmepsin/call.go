package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/genome-surveillance/grc-plasmepsin/internal/caller"
	"github.com/genome-surveillance/grc-plasmepsin/internal/duckdb"
	"github.com/genome-surveillance/grc-plasmepsin/internal/locus"
	"github.com/genome-surveillance/grc-plasmepsin/internal/output"
)

// DefaultOutputFile is the output file name used when none is given.
const DefaultOutputFile = "plasmepsin_cnv_calls.txt"

func newCallCmd(a *app) *cobra.Command {
	var (
		genotypeFiles []string
		configPath    string
	)

	cmd := &cobra.Command{
		Use:   "call [flags] [genotype-file...]",
		Short: "Call the Plasmepsin 2/3 breakpoint for every sample",
		Long: `Call the Plasmepsin 2/3 amplification breakpoint for every sample of the
given genotype tables and write one ID / call row per sample.

A sample is called with the label of the first configured locus at which an
alternate genotype was called, WT when none was, and "-" when every locus is
missing.`,
		Example: `  grc-plasmepsin call -i batch1.tsv -i batch2.tsv -l grc_config.json
  grc-plasmepsin call -l grc_config.json -o calls.tsv batch*.tsv
  grc-plasmepsin call -l grc_config.json --db calls.duckdb batch1.tsv.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files := append(genotypeFiles, args...)
			if len(files) == 0 {
				return &usageError{err: errors.New("at least one genotype file is required")}
			}
			if configPath == "" {
				return &usageError{err: errors.New("--config is required")}
			}
			return runCall(a.logger, files, configPath, viper.GetString("call.output"), viper.GetString("call.db"))
		},
	}

	cmd.Flags().StringSliceVarP(&genotypeFiles, "genotype-files", "i", nil, "Per-sample genotype files to call")
	cmd.Flags().StringVarP(&configPath, "config", "l", "", "Config JSON file with the plasmepsin loci, genotypes and variants to call")
	cmd.Flags().StringP("output-file", "o", DefaultOutputFile, "Output calls file")
	cmd.Flags().String("db", "", "Also record calls in this DuckDB database")

	viper.BindPFlag("call.output", cmd.Flags().Lookup("output-file"))
	viper.BindPFlag("call.db", cmd.Flags().Lookup("db"))

	return cmd
}

func runCall(logger *zap.Logger, files []string, configPath, outputPath, dbPath string) error {
	cfg, err := locus.Load(configPath)
	if err != nil {
		return err
	}
	logger.Info("loaded plasmepsin loci",
		zap.String("config", configPath),
		zap.Int("loci", len(cfg.Loci)),
		zap.String("column", cfg.Column))

	c := caller.New(cfg)
	c.SetLogger(logger)

	if dbPath != "" {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open call database %s: %w", dbPath, err)
		}
		defer store.Close()
		c.SetRecorder(store)
	}

	out, err := output.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Abort()

	stats, err := c.CallAll(files, output.NewTabWriter(out, cfg.Column))
	if err != nil {
		return err
	}

	if err := out.Commit(); err != nil {
		return err
	}

	logger.Info("plasmepsin calls written",
		zap.String("output", out.Path()),
		zap.Int("files", stats.Files),
		zap.Int("samples", stats.Samples),
		zap.Int("repeated", stats.Repeated),
		zap.Any("calls", stats.Variants))

	return nil
}
