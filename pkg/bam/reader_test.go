package bam

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRead struct {
	name    string
	ref     int
	pos     int
	mateRef int
	matePos int
	tlen    int
	flags   sam.Flags
	cigar   []sam.CigarOp
	seq     string
	mapq    byte
}

func match(n int) []sam.CigarOp {
	return []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, n)}
}

const pairFwd = sam.Paired | sam.ProperPair | sam.Read1 | sam.MateReverse
const pairRev = sam.Paired | sam.ProperPair | sam.Read2 | sam.Reverse

func testReads() []testRead {
	return []testRead{
		{"a", 0, 10, 0, 30, 30, pairFwd, match(10), "ACGTACGTAC", 60},
		{"a", 0, 30, 0, 10, -30, pairRev, match(10), "GGGGCCCCAA", 60},
		{"x", 0, 50, 1, 5, 0, sam.Paired | sam.Read1, match(4), "ACGT", 60},
		{"d", 0, 60, 0, 70, 20, pairFwd | sam.Duplicate, match(4), "ACGT", 60},
		{"q", 0, 62, 0, 72, 20, pairFwd, match(4), "ACGT", 5},
		{"s", 0, 70, -1, -1, 0, 0, []sam.CigarOp{
			sam.NewCigarOp(sam.CigarSoftClipped, 1),
			sam.NewCigarOp(sam.CigarMatch, 2),
			sam.NewCigarOp(sam.CigarDeletion, 1),
			sam.NewCigarOp(sam.CigarInsertion, 1),
			sam.NewCigarOp(sam.CigarMatch, 2),
		}, "NACGTA", 60},
		{"b", 1, 5, 1, 15, 20, pairFwd, match(10), "TTTTTTTTTT", 60},
		{"b", 1, 15, 1, 5, -20, pairRev, match(10), "AAAAAAAAAA", 60},
		{"u", -1, -1, -1, -1, 0, sam.Unmapped, nil, "ACGT", 0},
	}
}

func encodeBAM(t *testing.T, lens []int, reads []testRead) []byte {
	t.Helper()

	var refs []*sam.Reference
	for i, n := range lens {
		ref, err := sam.NewReference(fmt.Sprintf("chr%d", i+1), "", "", n, nil, nil)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	header, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	refs = header.Refs()

	refAt := func(i int) *sam.Reference {
		if i < 0 {
			return nil
		}
		return refs[i]
	}

	var buf bytes.Buffer
	w, err := bam.NewWriter(&buf, header, 1)
	require.NoError(t, err)
	for _, r := range reads {
		qual := bytes.Repeat([]byte{30}, len(r.seq))
		rec, err := sam.NewRecord(r.name, refAt(r.ref), refAt(r.mateRef), r.pos, r.matePos, r.tlen, r.mapq, r.cigar, []byte(r.seq), qual, nil)
		require.NoError(t, err)
		rec.Flags = r.flags
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeBAM(t *testing.T, reads []testRead) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reads.bam")
	require.NoError(t, os.WriteFile(path, encodeBAM(t, []int{100, 50}, reads), 0644))
	return path
}

// writeIndexedBAM writes reads, sorted by reference and position, with a
// .bai index next to them
func writeIndexedBAM(t *testing.T, lens []int, reads []testRead) string {
	t.Helper()
	data := encodeBAM(t, lens, reads)

	br, err := bam.NewReader(bytes.NewReader(data), 1)
	require.NoError(t, err)
	var idx bam.Index
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, idx.Add(rec, br.LastChunk()))
	}
	require.NoError(t, br.Close())

	var index bytes.Buffer
	require.NoError(t, bam.WriteIndex(&index, &idx))

	path := filepath.Join(t.TempDir(), "sorted.bam")
	require.NoError(t, os.WriteFile(path, data, 0644))
	require.NoError(t, os.WriteFile(path+".bai", index.Bytes(), 0644))
	return path
}

func drainFragments(t *testing.T, it *FragmentIterator) []raster.Fragment {
	t.Helper()
	var out []raster.Fragment
	for it.Next() {
		out = append(out, it.Fragment())
	}
	require.NoError(t, it.Err())
	return out
}

func TestReferences(t *testing.T) {
	r, err := Open(writeBAM(t, testReads()), Options{})
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.Indexed())
	assert.Equal(t, []Reference{{"chr1", 100}, {"chr2", 50}}, r.References())

	n, err := r.Length("chr2")
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	_, err = r.Length("chrY")
	assert.True(t, errors.Is(err, ErrUnknownReference))
}

func TestPairedFragments(t *testing.T) {
	path := writeBAM(t, testReads())

	r, err := Open(path, Options{})
	require.NoError(t, err)
	it, err := r.Fragments("chr1", Paired)
	require.NoError(t, err)
	frags := drainFragments(t, it)
	r.Close()

	assert.Equal(t, []raster.Fragment{
		{Start: 10, End: 40, Strand: raster.Forward},
		{Start: 62, End: 82, Strand: raster.Forward},
	}, frags)
	// the inter-chromosome mate and the unpaired read
	assert.Equal(t, 2, it.Rejected)

	r, err = Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()
	it, err = r.Fragments("chr2", "")
	require.NoError(t, err)
	assert.Equal(t, []raster.Fragment{{Start: 5, End: 25, Strand: raster.Forward}}, drainFragments(t, it))
}

func TestMinMapQ(t *testing.T) {
	r, err := Open(writeBAM(t, testReads()), Options{MinMapQ: 20})
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Fragments("chr1", Paired)
	require.NoError(t, err)
	assert.Equal(t, []raster.Fragment{{Start: 10, End: 40, Strand: raster.Forward}}, drainFragments(t, it))
}

func TestSingleFragments(t *testing.T) {
	r, err := Open(writeBAM(t, testReads()), Options{})
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Fragments("chr2", Single)
	require.NoError(t, err)
	assert.Equal(t, []raster.Fragment{
		{Start: 5, End: 15, Strand: raster.Forward},
		{Start: 15, End: 25, Strand: raster.Reverse},
	}, drainFragments(t, it))
}

func TestUnindexedSingleUse(t *testing.T) {
	r, err := Open(writeBAM(t, testReads()), Options{})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Fragments("chr1", Paired)
	require.NoError(t, err)
	_, err = r.Fragments("chr2", Paired)
	assert.Error(t, err)
}

func TestBaseCalls(t *testing.T) {
	r, err := Open(writeBAM(t, testReads()), Options{})
	require.NoError(t, err)
	defer r.Close()

	it, err := r.BaseCalls("chr1", CallFilter{})
	require.NoError(t, err)

	var calls []raster.BaseCall
	for it.Next() {
		calls = append(calls, it.BaseCall())
	}
	require.NoError(t, it.Err())

	// a: 10 + 10, x: 4, q: 4, s: 2 + deletion + 2; d is a duplicate
	require.Len(t, calls, 33)
	assert.Equal(t, raster.BaseCall{Pos: 10, Allele: 'A'}, calls[0])
	assert.Equal(t, raster.BaseCall{Pos: 39, Allele: 'A'}, calls[19])

	tail := calls[len(calls)-5:]
	assert.Equal(t, []raster.BaseCall{
		{Pos: 70, Allele: 'A'},
		{Pos: 71, Allele: 'C'},
		{Pos: 72, Allele: raster.DeletionMarker},
		{Pos: 73, Allele: 'T'},
		{Pos: 74, Allele: 'A'},
	}, tail)
}

func TestBaseCallsMinQuality(t *testing.T) {
	r, err := Open(writeBAM(t, testReads()), Options{})
	require.NoError(t, err)
	defer r.Close()

	it, err := r.BaseCalls("chr1", CallFilter{MinBaseQuality: 40})
	require.NoError(t, err)

	n := 0
	for it.Next() {
		assert.Equal(t, byte(raster.DeletionMarker), it.BaseCall().Allele)
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 1, n)
}

func TestParseFragmentMode(t *testing.T) {
	m, err := ParseFragmentMode("Single")
	require.NoError(t, err)
	assert.Equal(t, Single, m)
	_, err = ParseFragmentMode("triple")
	assert.Error(t, err)
}

func TestIndexedFragments(t *testing.T) {
	// chr2 has no reads between populated references, chr4 none at the end
	path := writeIndexedBAM(t, []int{100, 50, 80, 40}, []testRead{
		{"a", 0, 10, 0, 30, 30, pairFwd, match(10), "ACGTACGTAC", 60},
		{"a", 0, 30, 0, 10, -30, pairRev, match(10), "GGGGCCCCAA", 60},
		{"q", 0, 62, 0, 72, 20, pairFwd, match(4), "ACGT", 5},
		{"b", 2, 5, 2, 15, 20, pairFwd, match(10), "TTTTTTTTTT", 60},
		{"b", 2, 15, 2, 5, -20, pairRev, match(10), "AAAAAAAAAA", 60},
	})

	r, err := Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.Indexed())

	count := func(chrom string) []raster.Fragment {
		it, err := r.Fragments(chrom, Paired)
		require.NoError(t, err, chrom)
		return drainFragments(t, it)
	}

	chr1 := []raster.Fragment{
		{Start: 10, End: 40, Strand: raster.Forward},
		{Start: 62, End: 82, Strand: raster.Forward},
	}
	assert.Equal(t, chr1, count("chr1"))
	assert.Empty(t, count("chr2"))
	assert.Equal(t, []raster.Fragment{{Start: 5, End: 25, Strand: raster.Forward}}, count("chr3"))
	assert.Empty(t, count("chr4"))
	assert.Equal(t, chr1, count("chr1"), "indexed readers serve chromosomes repeatedly")

	_, err = r.Fragments("chrY", Paired)
	assert.ErrorIs(t, err, ErrUnknownReference)
}
