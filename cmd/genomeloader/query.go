package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/genome-loader-go/pkg/loader"
	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

var queryCmd = &cobra.Command{
	Use:   "query <dataset.gld> <region>",
	Short: "Print stored values for a region",
	Long: `Print the values of a dataset in a genomic region.

The region format is chr:start-end, 0-based half-open (e.g. chr1:1000-2000),
or a bare chromosome name for the whole chromosome.

Output by dataset:
  depth    - one line per base: position and depth
  coverage - one line per base: position and the A C G T N other counts
  onehot   - one line per base: position and the encoded row
  sequence - the bases of the region

Examples:
  genomeloader query out/sample.gld chr1:10000-10100
  genomeloader query s3://bucket/hg38.gld chrM`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryDataset(os.Stdout, args[0], args[1])
	},
}

func queryDataset(w io.Writer, location, regionStr string) error {
	region, err := store.ParseRegion(regionStr)
	if err != nil {
		return fmt.Errorf("invalid region: %w", err)
	}

	ds, err := store.Open(location)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer ds.Close()

	g, ok := ds.Group(region.Reference)
	if !ok {
		return fmt.Errorf("%w: %s not in dataset", loader.ErrUnknownChromosome, region.Reference)
	}
	arr, err := ds.ReadArray(g.Name)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	length := arr.Shape[0]
	if g.Dataset == loader.DatasetCoverage {
		length = arr.Shape[1]
	}
	if region.End < 0 || region.End > length {
		region.End = length
	}
	if region.Start >= region.End {
		return fmt.Errorf("region %s is outside %s (%d bp)", regionStr, g.Name, length)
	}

	fmt.Fprintf(w, "Query: %s:%d-%d (%s)\n", region.Reference, region.Start, region.End, g.Dataset)

	switch g.Dataset {
	case loader.DatasetDepth:
		for p := region.Start; p < region.End; p++ {
			fmt.Fprintf(w, "%d\t%d\n", p, arr.U32[p])
		}

	case loader.DatasetCoverage:
		fmt.Fprintf(w, "pos\t%s\tother\n", strings.Join(strings.Split(raster.Alleles, ""), "\t"))
		for p := region.Start; p < region.End; p++ {
			fmt.Fprintf(w, "%d", p)
			for row := 0; row < raster.NumAlleleRows; row++ {
				fmt.Fprintf(w, "\t%d", arr.U32[row*length+p])
			}
			fmt.Fprintln(w)
		}

	case loader.DatasetOneHot:
		cols := arr.Shape[1]
		if spec, ok := ds.Attrs().Strings("encode_spec"); ok {
			fmt.Fprintf(w, "pos\t%s\n", strings.Join(spec, "\t"))
		}
		for p := region.Start; p < region.End; p++ {
			fmt.Fprintf(w, "%d", p)
			for _, v := range arr.U8[p*cols : (p+1)*cols] {
				fmt.Fprintf(w, "\t%d", v)
			}
			fmt.Fprintln(w)
		}

	case loader.DatasetSequence:
		fmt.Fprintf(w, "%s\n", arr.U8[region.Start:region.End])

	default:
		return fmt.Errorf("unknown dataset %q in group %s", g.Dataset, g.Name)
	}
	return nil
}
