package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// WriterOptions configures a dataset writer
type WriterOptions struct {
	Compression      string // "zstd" (default) or "none"
	CompressionLevel int    // 1 fastest, 2 default, 3 better
	CreatedBy        string
}

// Writer writes a dataset: one group per chromosome holding a single
// array plus attributes, and container attributes written on Close.
// WriteGroup may be called from several goroutines.
type Writer struct {
	location   string
	storage    Storage
	compressor *Compressor

	mu       sync.Mutex
	metadata Metadata
	groups   map[string]GroupInfo
	closed   bool
}

// Create opens a dataset for writing at a local path, s3:// or gs:// URI
func Create(location string, opts WriterOptions) (*Writer, error) {
	if opts.Compression == "" {
		opts.Compression = CompressionZstd
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = "genome-loader"
	}

	storage, err := NewStorage(location)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	w := &Writer{
		location: location,
		storage:  storage,
		groups:   make(map[string]GroupInfo),
		metadata: Metadata{
			Format:    Format,
			Version:   FormatVersion,
			Created:   time.Now(),
			CreatedBy: opts.CreatedBy,
			RunID:     uuid.New().String(),
			Compression: CompressionConfig{
				Algorithm: opts.Compression,
				Level:     opts.CompressionLevel,
			},
			Attrs: make(Attrs),
		},
	}

	switch opts.Compression {
	case CompressionZstd:
		compressor, err := NewCompressor(opts.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create compressor: %w", err)
		}
		w.compressor = compressor
	case CompressionNone:
	default:
		return nil, fmt.Errorf("unknown compression %q (none, zstd)", opts.Compression)
	}

	if exists, err := storage.Exists(metadataFile); err == nil && exists {
		log.WithField("dataset", storage.GetBasePath()).Warn("Overwriting existing dataset")
	}
	if err := storage.MkdirAll(""); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	return w, nil
}

// Location returns where the dataset is written
func (w *Writer) Location() string {
	return w.location
}

// SetAttr sets a container attribute
func (w *Writer) SetAttr(key string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metadata.Attrs[key] = value
}

// WriteGroup stores arr as dataset name of group chrom. The array is
// written before the group is recorded, so a failed write never shows
// up in the metadata.
func (w *Writer) WriteGroup(chrom, name string, arr Array, attrs Attrs) error {
	if err := CheckGroupName(chrom); err != nil {
		return err
	}
	if err := CheckGroupName(name); err != nil {
		return err
	}

	data, err := EncodeArray(arr, w.compressor)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", chrom, name, err)
	}

	arrayPath := path.Join(chrom, name+arraySuffix)
	if err := w.storage.WriteFile(arrayPath, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", arrayPath, err)
	}

	if attrs == nil {
		attrs = Attrs{}
	}
	attrData, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode attributes of %s: %w", chrom, err)
	}
	if err := w.storage.WriteFile(path.Join(chrom, metadataFile), attrData); err != nil {
		return fmt.Errorf("failed to write attributes of %s: %w", chrom, err)
	}

	hash := sha256.Sum256(data)
	info := GroupInfo{
		Name:      chrom,
		Dataset:   name,
		Path:      arrayPath,
		DType:     arr.DType.String(),
		Shape:     append([]int(nil), arr.Shape...),
		SizeBytes: int64(len(data)),
		Checksum:  fmt.Sprintf("%x", hash),
		Attrs:     attrs,
		Created:   time.Now(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("dataset %s already closed", w.location)
	}
	w.groups[chrom] = info
	return nil
}

// CheckGroupName rejects names that are empty or would leave the
// dataset location when used as a path element
func CheckGroupName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty group name")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return fmt.Errorf("invalid group name %q", name)
	case name == metadataFile:
		return fmt.Errorf("group name %q is reserved", name)
	}
	return nil
}

// Close writes the container metadata. Groups are listed in the order
// given by order; groups not named there follow sorted by name.
func (w *Writer) Close(order ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	seen := make(map[string]bool)
	groups := make([]GroupInfo, 0, len(w.groups))
	for _, name := range order {
		if info, ok := w.groups[name]; ok && !seen[name] {
			groups = append(groups, info)
			seen[name] = true
		}
	}
	var rest []string
	for name := range w.groups {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		groups = append(groups, w.groups[name])
	}
	w.metadata.Groups = groups

	data, err := json.MarshalIndent(w.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := w.storage.WriteFile(metadataFile, data); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if w.compressor != nil {
		w.compressor.Close()
	}
	return nil
}
