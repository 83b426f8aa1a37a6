package loader

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/scttfrdmn/genome-loader-go/pkg/bam"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// ErrUnknownChromosome is returned when a chromosome has no explicit length
// and does not appear in the input's header or index
var ErrUnknownChromosome = errors.New("unknown chromosome")

// Index lists the chromosomes an input knows about, in input order
type Index interface {
	Names() []string
	Length(name string) (int, error)
}

// Chrom is a chromosome scheduled for processing
type Chrom struct {
	Name   string
	Length int
}

// Resolver maps chromosome names to lengths. Explicit lengths take
// precedence over the index. A Resolver is read-only once built.
type Resolver struct {
	chroms   []string
	explicit map[string]int
	index    Index
}

// NewResolver pairs chroms with lens (same order) and falls back to index
// for chromosomes without an explicit length. With no chroms every
// chromosome of the index is selected, and lens is ignored with a warning.
func NewResolver(chroms []string, lens []int, index Index) (*Resolver, error) {
	r := &Resolver{explicit: make(map[string]int), index: index}

	if len(chroms) == 0 {
		if len(lens) > 0 {
			log.Warn("Lengths given without chromosomes, ignoring lengths")
		}
		if index == nil {
			return nil, configError("no chromosomes given and no index to list them")
		}
		r.chroms = index.Names()
		return r, nil
	}

	if err := ValidateSelection(chroms, lens); err != nil {
		return nil, err
	}
	for i, name := range chroms {
		if len(lens) > 0 {
			r.explicit[name] = lens[i]
		}
	}
	r.chroms = append([]string(nil), chroms...)
	return r, nil
}

// ValidateSelection checks a chromosome selection and its optional
// lengths without touching any input or output. Lengths without
// chromosomes are accepted here; NewResolver ignores them.
func ValidateSelection(chroms []string, lens []int) error {
	if len(chroms) == 0 {
		return nil
	}
	if len(lens) > 0 && len(lens) != len(chroms) {
		return configError("got %d lengths for %d chromosomes", len(lens), len(chroms))
	}

	seen := make(map[string]bool, len(chroms))
	for i, name := range chroms {
		if err := store.CheckGroupName(name); err != nil {
			return configError("%v", err)
		}
		if seen[name] {
			return configError("chromosome %s given more than once", name)
		}
		seen[name] = true
		if len(lens) > 0 && lens[i] <= 0 {
			return configError("length of %s must be positive, got %d", name, lens[i])
		}
	}
	return nil
}

// Chroms returns the selected chromosome names in processing order
func (r *Resolver) Chroms() []string {
	return append([]string(nil), r.chroms...)
}

// Length resolves the length of a chromosome
func (r *Resolver) Length(name string) (int, error) {
	if n, ok := r.explicit[name]; ok {
		return n, nil
	}
	if r.index == nil {
		return 0, fmt.Errorf("%w: %s: no length given", ErrUnknownChromosome, name)
	}
	n, err := r.index.Length(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnknownChromosome, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s: length %d", ErrUnknownChromosome, name, n)
	}
	return n, nil
}

// Resolve splits the selection into chromosomes with a known length and
// failed results for the rest
func (r *Resolver) Resolve() ([]Chrom, []ChromResult) {
	var chroms []Chrom
	var failed []ChromResult
	for _, name := range r.chroms {
		n, err := r.Length(name)
		if err != nil {
			failed = append(failed, ChromResult{Chrom: name, Err: err})
			continue
		}
		chroms = append(chroms, Chrom{Name: name, Length: n})
	}
	return chroms, failed
}

// headerIndex is an Index over BAM header references
type headerIndex struct {
	names   []string
	lengths map[string]int
}

func newHeaderIndex(refs []bam.Reference) *headerIndex {
	h := &headerIndex{lengths: make(map[string]int, len(refs))}
	for _, ref := range refs {
		h.names = append(h.names, ref.Name)
		h.lengths[ref.Name] = ref.Length
	}
	return h
}

func (h *headerIndex) Names() []string {
	return append([]string(nil), h.names...)
}

func (h *headerIndex) Length(name string) (int, error) {
	n, ok := h.lengths[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, bam.ErrUnknownReference)
	}
	return n, nil
}
