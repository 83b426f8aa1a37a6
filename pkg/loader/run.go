package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/exascience/pargo/parallel"
	log "github.com/sirupsen/logrus"

	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// Sink receives finished arrays. *store.Writer implements it.
type Sink interface {
	SetAttr(key string, value any)
	WriteGroup(chrom, name string, arr store.Array, attrs store.Attrs) error
}

// ChromResult is the outcome of one chromosome
type ChromResult struct {
	Chrom    string
	Length   int
	Stats    raster.Stats
	Rejected int // reads without a fragment on this chromosome
	Elapsed  time.Duration
	Err      error
}

// Report summarizes a run
type Report struct {
	Dataset  string
	Results  []ChromResult
	TotalSum int64
	Elapsed  time.Duration
}

// Written returns the chromosomes that were written, in processing order
func (r *Report) Written() []string {
	var names []string
	for _, res := range r.Results {
		if res.Err == nil {
			names = append(names, res.Chrom)
		}
	}
	return names
}

// Failed returns the chromosomes that failed
func (r *Report) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Err != nil {
			names = append(names, res.Chrom)
		}
	}
	return names
}

// Err joins the per-chromosome errors, or returns nil when all succeeded
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Chrom, res.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("failed chromosomes %s: %w", strings.Join(r.Failed(), ", "), errors.Join(errs...))
}

// Print writes the end-of-run summary
func (r *Report) Print(w io.Writer) {
	var stats raster.Stats
	rejected := 0
	for _, res := range r.Results {
		stats.Used += res.Stats.Used
		stats.Skipped += res.Stats.Skipped
		stats.Clipped += res.Stats.Clipped
		stats.Other += res.Stats.Other
		rejected += res.Rejected
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Conversion complete!\n")
	if r.Dataset != "" {
		fmt.Fprintf(w, "  Dataset: %s\n", r.Dataset)
	}
	fmt.Fprintf(w, "  Chromosomes written: %d\n", len(r.Written()))
	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "  Chromosomes failed: %d (%s)\n", len(failed), strings.Join(failed, ", "))
	}
	if stats.Used > 0 {
		fmt.Fprintf(w, "  Records used: %d\n", stats.Used)
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "  Records skipped: %d\n", stats.Skipped)
	}
	if stats.Clipped > 0 {
		fmt.Fprintf(w, "  Cuts clipped: %d\n", stats.Clipped)
	}
	if stats.Other > 0 {
		fmt.Fprintf(w, "  Other alleles: %d\n", stats.Other)
	}
	if rejected > 0 {
		fmt.Fprintf(w, "  Reads rejected: %d\n", rejected)
	}
	if r.TotalSum > 0 {
		fmt.Fprintf(w, "  Total sum: %d\n", r.TotalSum)
	}
	fmt.Fprintf(w, "  Elapsed time: %s\n", FormatDuration(r.Elapsed))
}

// chromFunc processes one chromosome and returns its result. It must only
// hand complete arrays to the sink.
type chromFunc func(ctx context.Context, chrom Chrom) ChromResult

// runChroms processes chroms on at most workers goroutines. Results keep
// the order of chroms.
func runChroms(ctx context.Context, chroms []Chrom, workers int, fn chromFunc) []ChromResult {
	results := make([]ChromResult, len(chroms))
	if len(chroms) == 0 {
		return results
	}

	parallel.Range(0, len(chroms), workers, func(low, high int) {
		for i := low; i < high; i++ {
			chrom := chroms[i]
			if err := ctx.Err(); err != nil {
				results[i] = ChromResult{Chrom: chrom.Name, Length: chrom.Length, Err: err}
				continue
			}

			start := time.Now()
			res := fn(ctx, chrom)
			res.Chrom = chrom.Name
			res.Length = chrom.Length
			res.Elapsed = time.Since(start)
			results[i] = res

			logChrom(res)
		}
	})
	return results
}

func logChrom(res ChromResult) {
	entry := log.WithFields(log.Fields{
		"chrom":   res.Chrom,
		"elapsed": res.Elapsed.Round(time.Millisecond),
	})
	if res.Err != nil {
		entry.WithError(res.Err).Errorf("Failed to create %s data", res.Chrom)
		return
	}
	if res.Stats.Skipped > 0 || res.Stats.Clipped > 0 {
		entry.WithFields(log.Fields{
			"skipped": res.Stats.Skipped,
			"clipped": res.Stats.Clipped,
		}).Warnf("Out of bounds records on %s", res.Chrom)
	}
	if res.Rejected > 0 {
		entry.WithField("rejected", res.Rejected).Warnf("Reads without a fragment on %s", res.Chrom)
	}
	entry.Infof("Created %s data in %.2f seconds", res.Chrom, res.Elapsed.Seconds())
}

// FormatDuration formats d as "1h 2m 3s"
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
