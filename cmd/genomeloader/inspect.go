package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/genome-loader-go/pkg/loader"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

var auditSums bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <dataset.gld>",
	Short: "Show the attributes and groups of a dataset",
	Long: `Display the container attributes and every chromosome group of a dataset.

For depth datasets --audit reads every array back, recomputes its sum and
compares it with the stored "sum" attribute and the dataset "total_sum".

Example:
  genomeloader inspect out/sample.gld
  genomeloader inspect s3://bucket/sample.gld --audit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectDataset(os.Stdout, args[0], auditSums)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&auditSums, "audit", true,
		"Recompute depth sums and compare them with the stored attributes")
}

func inspectDataset(w io.Writer, location string, audit bool) error {
	ds, err := store.Open(location)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer ds.Close()

	metadata := ds.Metadata()
	attrs := ds.Attrs()
	id, _ := attrs.String("id")

	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "Dataset Summary")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Format: %s v%s\n", metadata.Format, metadata.Version)
	fmt.Fprintf(w, "Created: %s\n", metadata.Created.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Created by: %s\n", metadata.CreatedBy)
	fmt.Fprintf(w, "Run ID: %s\n", metadata.RunID)
	fmt.Fprintf(w, "Compression: %s\n", metadata.Compression.Algorithm)
	storage := "local"
	if ds.IsRemote() {
		storage = "remote"
	}
	fmt.Fprintf(w, "Location: %s (%s)\n", ds.Location(), storage)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Attributes:")
	fmt.Fprintf(w, "  id: %s\n", id)
	if method, ok := attrs.String("count_method"); ok {
		fmt.Fprintf(w, "  count_method: %s\n", method)
	}
	if spec, ok := attrs.Strings("encode_spec"); ok {
		fmt.Fprintf(w, "  encode_spec: %s\n", strings.Join(spec, ""))
	}
	total, hasTotal := attrs.Int("total_sum")
	if hasTotal {
		fmt.Fprintf(w, "  total_sum: %d\n", total)
	}
	fmt.Fprintln(w)

	var size int64
	fmt.Fprintf(w, "Groups (%d):\n", len(ds.Groups()))
	for _, g := range ds.Groups() {
		length, _ := g.Attrs.Int("length")
		fmt.Fprintf(w, "  %s: %s %s %v, %d bp, %d bytes", g.Name, g.Dataset, g.DType, g.Shape, length, g.SizeBytes)
		if sum, ok := g.Attrs.Int("sum"); ok {
			fmt.Fprintf(w, ", sum %d", sum)
		}
		fmt.Fprintln(w)
		size += g.SizeBytes
	}
	fmt.Fprintf(w, "  Total size: %.1f MB\n", float64(size)/float64(loader.MB))

	orphans, err := ds.Orphans()
	if err != nil {
		return err
	}
	if len(orphans) > 0 {
		fmt.Fprintf(w, "  Unreferenced arrays: %s\n", strings.Join(orphans, ", "))
	}

	if !audit || id != loader.DatasetDepth {
		return nil
	}
	return auditDepth(w, ds, total, hasTotal)
}

// auditDepth recomputes every depth sum
func auditDepth(w io.Writer, ds *store.Dataset, total int64, hasTotal bool) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Audit:")

	var mismatched []string
	var recomputed int64
	for _, g := range ds.Groups() {
		arr, err := ds.ReadArray(g.Name)
		if err != nil {
			return err
		}
		attrs, err := ds.GroupAttrs(g.Name)
		if err != nil {
			return err
		}
		sum := arr.Sum()
		recomputed += sum

		stored, ok := attrs.Int("sum")
		status := "ok"
		if !ok || stored != sum {
			status = "MISMATCH"
			mismatched = append(mismatched, g.Name)
		}
		fmt.Fprintf(w, "  %s: sum %d, stored %d [%s]\n", g.Name, sum, stored, status)
	}

	status := "ok"
	if !hasTotal || total != recomputed {
		status = "MISMATCH"
		mismatched = append(mismatched, "total_sum")
	}
	fmt.Fprintf(w, "  total: %d, stored %d [%s]\n", recomputed, total, status)

	if len(mismatched) > 0 {
		return fmt.Errorf("sum audit failed for %s", strings.Join(mismatched, ", "))
	}
	return nil
}
