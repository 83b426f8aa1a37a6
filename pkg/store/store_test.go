package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayRoundTrip(t *testing.T) {
	c, err := NewCompressor(2)
	require.NoError(t, err)
	defer c.Close()

	depth := NewUint32Array([]uint32{0, 0, 1, 1, 1, 0, 0, 1, 1, 1, 1 << 30})
	onehot := NewUint8Array([]uint8{1, 0, 0, 0, 0, 1}, 3, 2)

	for _, comp := range []*Compressor{nil, c} {
		for _, arr := range []Array{depth, onehot} {
			data, err := EncodeArray(arr, comp)
			require.NoError(t, err)

			got, err := DecodeArray(data, comp)
			require.NoError(t, err)
			assert.Equal(t, arr.DType, got.DType)
			assert.Equal(t, arr.Shape, got.Shape)
			assert.Equal(t, arr.U8, got.U8)
			assert.Equal(t, arr.U32, got.U32)
		}
	}
}

func TestEncodeArrayShapeMismatch(t *testing.T) {
	_, err := EncodeArray(NewUint8Array([]uint8{1, 2, 3}, 2, 2), nil)
	assert.Error(t, err)
}

func TestDecodeArrayCorrupt(t *testing.T) {
	_, err := DecodeArray([]byte("not an array at all"), nil)
	assert.Error(t, err)

	data, err := EncodeArray(NewUint32Array([]uint32{1, 2, 3}), nil)
	require.NoError(t, err)
	_, err = DecodeArray(data[:len(data)-2], nil)
	assert.Error(t, err)
}

func TestDatasetRoundTrip(t *testing.T) {
	location := filepath.Join(t.TempDir(), "frags.gld")

	w, err := Create(location, WriterOptions{})
	require.NoError(t, err)

	chr1 := []uint32{0, 0, 1, 1, 1, 0, 0, 1, 1, 1}
	chr2 := []uint32{2, 0, 3}
	var total int64
	for _, g := range []struct {
		name string
		data []uint32
	}{{"chr2", chr2}, {"chr1", chr1}} {
		arr := NewUint32Array(g.data)
		require.NoError(t, w.WriteGroup(g.name, "depth", arr, Attrs{"length": len(g.data), "sum": arr.Sum()}))
		total += arr.Sum()
	}
	w.SetAttr("id", "depth")
	w.SetAttr("total_sum", total)
	w.SetAttr("count_method", "fragment")
	require.NoError(t, w.Close("chr1", "chr2"))

	d, err := Open(location)
	require.NoError(t, err)
	defer d.Close()

	id, _ := d.Attrs().String("id")
	assert.Equal(t, "depth", id)
	method, _ := d.Attrs().String("count_method")
	assert.Equal(t, "fragment", method)
	totalSum, ok := d.Attrs().Int("total_sum")
	require.True(t, ok)
	assert.Equal(t, int64(11), totalSum)

	groups := d.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "chr1", groups[0].Name)
	assert.Equal(t, "depth", groups[0].Dataset)
	assert.Equal(t, []int{10}, groups[0].Shape)

	var recomputed int64
	for _, g := range groups {
		arr, err := d.ReadArray(g.Name)
		require.NoError(t, err)
		attrs, err := d.GroupAttrs(g.Name)
		require.NoError(t, err)

		sum, ok := attrs.Int("sum")
		require.True(t, ok)
		length, ok := attrs.Int("length")
		require.True(t, ok)
		assert.Equal(t, arr.Sum(), sum)
		assert.Equal(t, int64(arr.Len()), length)
		recomputed += sum
	}
	assert.Equal(t, totalSum, recomputed)

	arr, err := d.ReadArray("chr1")
	require.NoError(t, err)
	assert.Equal(t, chr1, arr.U32)
}

func TestDatasetChecksumMismatch(t *testing.T) {
	location := t.TempDir()
	w, err := Create(location, WriterOptions{Compression: CompressionNone})
	require.NoError(t, err)
	require.NoError(t, w.WriteGroup("chrM", "sequence", NewUint8Array([]uint8("ACGT")), nil))
	require.NoError(t, w.Close())

	path := filepath.Join(location, "chrM", "sequence.arr")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] = 'N'
	require.NoError(t, os.WriteFile(path, data, 0644))

	d, err := Open(location)
	require.NoError(t, err)
	_, err = d.ReadArray("chrM")
	assert.ErrorContains(t, err, "checksum")
	_, err = d.ReadArray("chrX")
	assert.Error(t, err)
}

func TestWriterConcurrentGroups(t *testing.T) {
	location := t.TempDir()
	w, err := Create(location, WriterOptions{CompressionLevel: 1})
	require.NoError(t, err)

	names := []string{"chr1", "chr2", "chr3", "chr4", "chr5", "chr6"}
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			data := make([]uint32, 100*(i+1))
			data[i] = uint32(i)
			assert.NoError(t, w.WriteGroup(name, "depth", NewUint32Array(data), Attrs{"length": len(data)}))
		}(i, name)
	}
	wg.Wait()
	require.NoError(t, w.Close(names...))

	d, err := Open(location)
	require.NoError(t, err)
	require.Len(t, d.Groups(), len(names))
	for i, g := range d.Groups() {
		assert.Equal(t, names[i], g.Name)
	}
}

func TestOpenMissingDataset(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.gld"))
	assert.Error(t, err)
}

func TestUnknownCompression(t *testing.T) {
	_, err := Create(t.TempDir(), WriterOptions{Compression: "lz4"})
	assert.Error(t, err)
}

func TestAttrsAccessors(t *testing.T) {
	a := Attrs{"n": 3, "s": "x", "l": []any{"A", "C"}, "bad": []any{"A", 1}}
	n, ok := a.Int("n")
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	_, ok = a.Int("s")
	assert.False(t, ok)
	l, ok := a.Strings("l")
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "C"}, l)
	_, ok = a.Strings("bad")
	assert.False(t, ok)
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("chr1:1,000-2000")
	require.NoError(t, err)
	assert.Equal(t, Region{Reference: "chr1", Start: 1000, End: 2000}, r)

	r, err = ParseRegion("chrX")
	require.NoError(t, err)
	assert.Equal(t, Region{Reference: "chrX", End: -1}, r)

	for _, bad := range []string{"", ":1-2", "chr1:5", "chr1:a-3", "chr1:9-3"} {
		_, err := ParseRegion(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitBucketURI(t *testing.T) {
	bucket, prefix, err := splitBucketURI("s3://bucket/runs/a.gld/", "s3://")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "runs/a.gld", prefix)

	_, _, err = splitBucketURI("s3:///x", "s3://")
	assert.Error(t, err)
	assert.True(t, IsRemoteURI("gs://b/x"))
	assert.False(t, IsRemoteURI("/tmp/x"))
}

func TestDatasetOrphans(t *testing.T) {
	location := filepath.Join(t.TempDir(), "reuse.gld")

	w, err := Create(location, WriterOptions{Compression: CompressionNone})
	require.NoError(t, err)
	for _, chrom := range []string{"chr1", "chr2"} {
		require.NoError(t, w.WriteGroup(chrom, "depth", NewUint32Array([]uint32{1, 2}), nil))
	}
	require.NoError(t, w.Close())

	w, err = Create(location, WriterOptions{Compression: CompressionNone})
	require.NoError(t, err)
	require.NoError(t, w.WriteGroup("chr1", "depth", NewUint32Array([]uint32{3}), nil))
	require.NoError(t, w.Close())

	ds, err := Open(location)
	require.NoError(t, err)
	defer ds.Close()

	assert.False(t, ds.IsRemote())
	assert.Equal(t, location, ds.Location())
	assert.Len(t, ds.Groups(), 1)

	orphans, err := ds.Orphans()
	require.NoError(t, err)
	assert.Equal(t, []string{"chr2/depth.arr"}, orphans)
}

func TestWriteGroupRejectsUnsafeNames(t *testing.T) {
	root := t.TempDir()
	location := filepath.Join(root, "names.gld")

	w, err := Create(location, WriterOptions{Compression: CompressionNone})
	require.NoError(t, err)

	arr := NewUint32Array([]uint32{1})
	for _, chrom := range []string{"", ".", "..", "../outside", "chr1/../../outside", `chr\1`, metadataFile} {
		assert.Error(t, w.WriteGroup(chrom, "depth", arr, nil), chrom)
	}
	assert.Error(t, w.WriteGroup("chr1", "../depth", arr, nil))
	assert.Error(t, w.WriteGroup("chr1", "", arr, nil))

	require.NoError(t, w.WriteGroup("chrUn_KI270302v1", "depth", arr, nil))
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "names.gld", entries[0].Name())

	ds, err := Open(location)
	require.NoError(t, err)
	defer ds.Close()
	require.Len(t, ds.Groups(), 1)
	assert.Equal(t, "chrUn_KI270302v1", ds.Groups()[0].Name)
}
