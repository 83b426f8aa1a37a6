package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/genome-loader-go/pkg/encode"
	"github.com/scttfrdmn/genome-loader-go/pkg/loader"
)

var (
	encodeSeq  bool
	encodeSpec string
	ignoreCase bool
)

var writeFastaCmd = &cobra.Command{
	Use:   "writefasta <input.fa>",
	Short: "Write reference sequences, raw or one-hot encoded",
	Long: `Write every selected FASTA sequence as one group of the dataset.

Without --encode each chromosome is stored as a byte array of its bases
(dataset "sequence"). With --encode it is stored as a one-hot matrix of
shape [length, len(spec)] (dataset "onehot"); the column order follows
--spec, and bases outside the spec encode as an all-zero row.

The FASTA index (.fai) is used when present and built in memory otherwise.

Examples:
  # Raw sequence of every chromosome
  genomeloader writefasta hg38.fa -d out/

  # One-hot encoding of chr1 and chr2, columns A C G T
  genomeloader writefasta hg38.fa -o out/hg38_onehot.gld --encode --spec ACGT -c chr1,chr2

  # Write straight to S3
  genomeloader writefasta hg38.fa -o s3://bucket/hg38.gld --encode`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWriteFasta(cmd, args[0])
	},
}

func init() {
	addOutputFlags(writeFastaCmd)
	addChromFlag(writeFastaCmd)
	writeFastaCmd.Flags().BoolVarP(&encodeSeq, "encode", "e", false,
		"Write one-hot encoded sequence")
	writeFastaCmd.Flags().StringVarP(&encodeSpec, "spec", "s", "",
		"Ordered string of non-repeating letters giving the encoded bases and column order (default: ACGTN)")
	writeFastaCmd.Flags().BoolVar(&ignoreCase, "ignore-case", true,
		"Encode lowercase (soft-masked) bases like uppercase")
	addResourceFlags(writeFastaCmd)
}

func sequenceOptions() (loader.SequenceOptions, error) {
	if encodeSpec != "" && !encodeSeq {
		return loader.SequenceOptions{}, fmt.Errorf("%w: encoding specification given without --encode", loader.ErrConfig)
	}
	spec, err := encode.ParseSpec(encodeSpec)
	if err != nil {
		return loader.SequenceOptions{}, err
	}
	if err := loader.ValidateSelection(chroms, nil); err != nil {
		return loader.SequenceOptions{}, err
	}
	return loader.SequenceOptions{
		Chroms:     chroms,
		Encode:     encodeSeq,
		Spec:       spec,
		IgnoreCase: ignoreCase,
	}, nil
}

func runWriteFasta(cmd *cobra.Command, input string) error {
	opts, err := sequenceOptions()
	if err != nil {
		return err
	}
	return runWrite(cmd, input, func(ctx context.Context, config *loader.Config, sink loader.Sink) (*loader.Report, error) {
		return loader.WriteSequence(ctx, config, input, opts, sink)
	})
}
