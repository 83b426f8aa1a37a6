package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logLevel string
	quiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "genomeloader",
	Short: "genome-loader - genomic data to per-chromosome arrays",
	Long: `genome-loader converts reference sequences (FASTA) and alignments (BAM)
into dense per-chromosome arrays stored as a dataset directory, on S3 or
on Google Cloud Storage.

This tool provides commands for writing sequence, one-hot, fragment depth
and allele coverage datasets, and for inspecting and querying them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Only log errors")

	rootCmd.AddCommand(writeFastaCmd)
	rootCmd.AddCommand(writeFragCmd)
	rootCmd.AddCommand(writeCoverageCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("genome-loader version 0.1.0")
		fmt.Println("Per-chromosome arrays from FASTA and BAM")
	},
}

func setupLogging() error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if quiet {
		level = log.ErrorLevel
	}
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
	return nil
}

// flagAliases maps the long option spellings of earlier releases to
// the current flag names
var flagAliases = map[string]string{
	"contigs":      "chroms",
	"onehot":       "encode",
	"order":        "spec",
	"lengths":      "lens",
	"chromlens":    "lens",
	"count-method": "method",
}

// normalizeFlag accepts underscores for dashes and the aliases above
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(name, "_", "-")
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}
