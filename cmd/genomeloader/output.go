package main

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// resolveOutput returns the dataset location for input. Exactly one of
// output and directory must be set. With output the location is taken
// as given (suffix normalised); with directory the name defaults to the
// input stem. An output naming only a bucket is treated as a directory.
func resolveOutput(input, output, directory, name string) (string, error) {
	switch {
	case output != "" && directory != "":
		return "", fmt.Errorf("--output and --directory are mutually exclusive")
	case output == "" && directory == "":
		return "", fmt.Errorf("one of --output or --directory is required")
	}

	if output != "" {
		directory, name = splitLocation(output)
	}
	if name == "" {
		name = stem(baseName(input))
	}
	if name == "" {
		return "", fmt.Errorf("cannot derive a dataset name, use --name")
	}

	return joinLocation(directory, datasetName(name)), nil
}

// datasetName forces the dataset suffix: "x.gld" is kept, anything else
// becomes "<stem>.gld"
func datasetName(name string) string {
	if i := strings.Index(name, "."); i > 0 && strings.EqualFold(name[i:], store.Suffix) {
		return name
	}
	return stem(name) + store.Suffix
}

// stem returns the name up to its first dot
func stem(name string) string {
	s, _, _ := strings.Cut(name, ".")
	return s
}

func baseName(location string) string {
	if store.IsRemoteURI(location) {
		return path.Base(location)
	}
	return filepath.Base(location)
}

// splitLocation splits a location into its parent and last element. A
// remote URI is never split inside scheme://bucket; with no key the name
// is empty.
func splitLocation(location string) (dir, name string) {
	if store.IsRemoteURI(location) {
		scheme, rest, _ := strings.Cut(location, "://")
		bucket, key, _ := strings.Cut(strings.TrimSuffix(rest, "/"), "/")
		root := scheme + "://" + bucket
		if key == "" {
			return root, ""
		}
		if i := strings.LastIndex(key, "/"); i >= 0 {
			return root + "/" + key[:i], key[i+1:]
		}
		return root, key
	}
	return filepath.Dir(location), filepath.Base(location)
}

func joinLocation(dir, name string) string {
	if store.IsRemoteURI(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}
