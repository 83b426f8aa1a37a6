package store

import (
	"encoding/json"
	"time"
)

// Format identifies datasets written by this package
const Format = "genome-loader"

// FormatVersion is written into every dataset's metadata
const FormatVersion = "1.0.0"

// Suffix is the conventional extension of a dataset location
const Suffix = ".gld"

// File names inside a dataset
const (
	metadataFile = "_attrs.json"
	arraySuffix  = ".arr"
)

// Metadata is the container-level record stored in _attrs.json
type Metadata struct {
	Format      string            `json:"format"`
	Version     string            `json:"version"`
	Created     time.Time         `json:"created"`
	CreatedBy   string            `json:"created_by"`
	RunID       string            `json:"run_id"`
	Compression CompressionConfig `json:"compression"`
	Attrs       Attrs             `json:"attrs"`
	Groups      []GroupInfo       `json:"groups"`
}

// CompressionConfig describes compression settings
type CompressionConfig struct {
	Algorithm string `json:"algorithm"`
	Level     int    `json:"level,omitempty"`
}

// GroupInfo describes one chromosome group and its primary dataset
type GroupInfo struct {
	Name      string    `json:"name"`
	Dataset   string    `json:"dataset"`
	Path      string    `json:"path"`
	DType     string    `json:"dtype"`
	Shape     []int     `json:"shape"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
	Attrs     Attrs     `json:"attrs"`
	Created   time.Time `json:"created"`
}

// Attrs is a string-keyed attribute map. Values must be JSON encodable;
// after a round trip numbers come back as json.Number.
type Attrs map[string]any

// Int returns an integer attribute
func (a Attrs) Int(key string) (int64, bool) {
	switch v := a[key].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// String returns a string attribute
func (a Attrs) String(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// Strings returns a string list attribute
func (a Attrs) Strings(key string) ([]string, bool) {
	switch v := a[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Region is a half-open interval on one chromosome, used by queries
type Region struct {
	Reference string
	Start     int
	End       int
}
