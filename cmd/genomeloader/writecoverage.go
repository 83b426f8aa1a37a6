package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/genome-loader-go/pkg/loader"
)

var minBaseQuality int

var writeCoverageCmd = &cobra.Command{
	Use:   "writecoverage <input.bam>",
	Short: "Write per-base allele coverage from a BAM file",
	Long: `Write the allele coverage of every selected chromosome as a uint32 matrix
of shape [6, length] (dataset "coverage"). Rows count the aligned bases
A, C, G, T and N; the last row counts deletions and any other symbol.

Examples:
  genomeloader writecoverage sample.bam -d out/
  genomeloader writecoverage sample.bam -o gs://bucket/cov.gld -c chrX --min-base-quality 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWriteCoverage(cmd, args[0])
	},
}

func init() {
	addOutputFlags(writeCoverageCmd)
	addChromFlag(writeCoverageCmd)
	writeCoverageCmd.Flags().IntVar(&minMapQ, "min-mapq", 0,
		"Minimum mapping quality")
	writeCoverageCmd.Flags().IntVar(&minBaseQuality, "min-base-quality", 0,
		"Minimum base quality of counted bases")
	addResourceFlags(writeCoverageCmd)
}

func coverageOptions() (loader.CoverageOptions, error) {
	if err := loader.ValidateSelection(chroms, nil); err != nil {
		return loader.CoverageOptions{}, err
	}
	return loader.CoverageOptions{
		Chroms:         chroms,
		MinMapQ:        minMapQ,
		MinBaseQuality: minBaseQuality,
	}, nil
}

func runWriteCoverage(cmd *cobra.Command, input string) error {
	opts, err := coverageOptions()
	if err != nil {
		return err
	}
	return runWrite(cmd, input, func(ctx context.Context, config *loader.Config, sink loader.Sink) (*loader.Report, error) {
		return loader.WriteCoverage(ctx, config, input, opts, sink)
	})
}
