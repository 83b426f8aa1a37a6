package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dataset reads a dataset written by Writer
type Dataset struct {
	location   string
	storage    Storage
	metadata   Metadata
	compressor *Compressor
}

// Open opens a dataset and loads its metadata
func Open(location string) (*Dataset, error) {
	storage, err := NewStorage(location)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	d := &Dataset{
		location: location,
		storage:  storage,
	}

	data, err := storage.ReadFile(metadataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	if err := decodeJSON(data, &d.metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if d.metadata.Format != Format {
		return nil, fmt.Errorf("%s is not a %s dataset (format %q)", location, Format, d.metadata.Format)
	}

	if d.metadata.Compression.Algorithm == CompressionZstd {
		d.compressor, err = NewCompressor(d.metadata.Compression.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create decompressor: %w", err)
		}
	}

	return d, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// Metadata returns the container metadata
func (d *Dataset) Metadata() Metadata {
	return d.metadata
}

// Attrs returns the container attributes
func (d *Dataset) Attrs() Attrs {
	return d.metadata.Attrs
}

// Groups returns the chromosome groups in written order
func (d *Dataset) Groups() []GroupInfo {
	return d.metadata.Groups
}

// Group looks up one chromosome group
func (d *Dataset) Group(chrom string) (GroupInfo, bool) {
	for _, g := range d.metadata.Groups {
		if g.Name == chrom {
			return g, true
		}
	}
	return GroupInfo{}, false
}

// GroupAttrs reads a group's attribute file
func (d *Dataset) GroupAttrs(chrom string) (Attrs, error) {
	data, err := d.storage.ReadFile(chrom + "/" + metadataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes of %s: %w", chrom, err)
	}
	attrs := Attrs{}
	if err := decodeJSON(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse attributes of %s: %w", chrom, err)
	}
	return attrs, nil
}

// ReadArray loads the primary dataset of a group and verifies its checksum
func (d *Dataset) ReadArray(chrom string) (Array, error) {
	g, ok := d.Group(chrom)
	if !ok {
		return Array{}, fmt.Errorf("group %s not found in %s", chrom, d.location)
	}

	data, err := d.storage.ReadFile(g.Path)
	if err != nil {
		return Array{}, fmt.Errorf("failed to read %s: %w", g.Path, err)
	}
	if sum := fmt.Sprintf("%x", sha256.Sum256(data)); g.Checksum != "" && sum != g.Checksum {
		return Array{}, fmt.Errorf("checksum mismatch for %s", g.Path)
	}

	arr, err := DecodeArray(data, d.compressor)
	if err != nil {
		return Array{}, fmt.Errorf("failed to decode %s: %w", g.Path, err)
	}
	return arr, nil
}

// Location returns the dataset base path or URI
func (d *Dataset) Location() string {
	return d.storage.GetBasePath()
}

// IsRemote reports whether the dataset lives in object storage
func (d *Dataset) IsRemote() bool {
	return d.storage.IsRemote()
}

// Orphans lists array files present in storage but not referenced by the
// metadata, typically left behind by an earlier run into the same location
func (d *Dataset) Orphans() ([]string, error) {
	files, err := d.storage.List("")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.location, err)
	}

	known := make(map[string]bool, len(d.metadata.Groups))
	for _, g := range d.metadata.Groups {
		known[g.Path] = true
	}

	var orphans []string
	for _, f := range files {
		if strings.HasSuffix(f, arraySuffix) && !known[f] {
			orphans = append(orphans, f)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

// Close releases the decompressor
func (d *Dataset) Close() error {
	if d.compressor != nil {
		return d.compressor.Close()
	}
	return nil
}

// ParseRegion parses "chr1:1000-2000" or a bare "chr1". A bare name has
// End set to -1, meaning the whole chromosome.
func ParseRegion(regionStr string) (Region, error) {
	region := Region{End: -1}

	name, span, found := strings.Cut(regionStr, ":")
	if name == "" {
		return region, fmt.Errorf("invalid region format: %s (expected chr:start-end)", regionStr)
	}
	region.Reference = name
	if !found {
		return region, nil
	}

	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return region, fmt.Errorf("invalid region format: %s (expected chr:start-end)", regionStr)
	}

	var err error
	region.Start, err = strconv.Atoi(strings.ReplaceAll(startStr, ",", ""))
	if err != nil {
		return region, fmt.Errorf("invalid start position: %w", err)
	}
	region.End, err = strconv.Atoi(strings.ReplaceAll(endStr, ",", ""))
	if err != nil {
		return region, fmt.Errorf("invalid end position: %w", err)
	}
	if region.Start < 0 || region.End < region.Start {
		return region, fmt.Errorf("invalid region bounds: %s", regionStr)
	}

	return region, nil
}
