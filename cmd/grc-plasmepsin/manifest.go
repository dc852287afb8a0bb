package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genome-surveillance/grc-plasmepsin/internal/manifest"
)

func newValidateManifestCmd(a *app) *cobra.Command {
	var (
		manifestPath string
		panels       []string
	)

	cmd := &cobra.Command{
		Use:   "validate-manifest",
		Short: "Validate an amplicon sequencing manifest",
		Long: `Check that a tab-separated manifest has the sample_id, primer_panel,
barcode_number and barcode_sequence columns, that none of them is empty or NA,
that index (when present) is an integer, that every barcode is two nucleotide
sequences joined by a hyphen, and that the primer panels are exactly the ones
given with --panel-names.`,
		Example: `  grc-plasmepsin validate-manifest -m manifest.tsv -p PFA_GRC1_v1.0 -p PFA_GRC2_v1.0 -p PFA_Spec`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				return &usageError{err: errors.New("--manifest is required")}
			}
			if len(panels) == 0 {
				return &usageError{err: errors.New("at least one --panel-names value is required")}
			}

			if err := manifest.NewValidator(panels).ValidateFile(manifestPath); err != nil {
				return err
			}
			a.logger.Info("manifest is valid",
				zap.String("manifest", manifestPath),
				zap.Strings("panels", panels))
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the manifest to validate")
	cmd.Flags().StringSliceVarP(&panels, "panel-names", "p", nil, "Primer panel names the manifest must contain")

	return cmd
}
