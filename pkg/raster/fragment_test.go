package raster

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario() FragmentSource {
	return Fragments(
		Fragment{Start: 2, End: 5, Strand: Forward},
		Fragment{Start: 7, End: 10, Strand: Reverse},
	)
}

func TestRasterizeFragment(t *testing.T) {
	d, err := Rasterize(scenario(), 10, DepthOptions{Method: FullFragment})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0, 1, 1, 1, 0, 0, 1, 1, 1}, d.Counts)
	assert.Equal(t, int64(6), d.Stats.Sum)
	assert.Equal(t, int64(6), d.Sum())
	assert.Equal(t, 2, d.Stats.Used)
}

func TestRasterizeMidpoint(t *testing.T) {
	d, err := Rasterize(scenario(), 10, DepthOptions{Method: Midpoint})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0, 0, 1, 0, 0, 0, 0, 1, 0}, d.Counts)
	assert.Equal(t, int64(2), d.Sum())
}

func TestRasterizeCutsiteRaw(t *testing.T) {
	d, err := Rasterize(scenario(), 10, DepthOptions{Method: Cutsite})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0, 1, 0, 1, 0, 0, 1, 0, 1}, d.Counts)
	assert.Equal(t, int64(4), d.Sum())
	assert.Zero(t, d.Stats.Clipped)
}

func TestRasterizeCutsiteTn5(t *testing.T) {
	src := Fragments(Fragment{Start: 10, End: 40, Strand: Forward})
	d, err := Rasterize(src, 50, DefaultDepthOptions())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), d.Counts[14])
	assert.Equal(t, uint32(1), d.Counts[34])
	assert.Equal(t, int64(2), d.Sum())
}

func TestRasterizeCutsiteCustomOffset(t *testing.T) {
	opts := DepthOptions{Method: Cutsite, OffsetTn5: true, Offset: Tn5Offset{Forward: 5, Reverse: -4}}
	d, err := Rasterize(Fragments(Fragment{Start: 10, End: 40}), 50, opts)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), d.Counts[15])
	assert.Equal(t, uint32(1), d.Counts[35])
}

func TestRasterizeZeroOffsetUsesDefault(t *testing.T) {
	src := Fragments(Fragment{Start: 10, End: 40})
	d, err := Rasterize(src, 50, DepthOptions{Method: Cutsite, OffsetTn5: true})
	require.NoError(t, err)

	want, err := Rasterize(Fragments(Fragment{Start: 10, End: 40}), 50, DefaultDepthOptions())
	require.NoError(t, err)
	assert.Equal(t, want.Counts, d.Counts)
	assert.Equal(t, uint32(1), d.Counts[14])
	assert.Equal(t, uint32(1), d.Counts[34])
	assert.Zero(t, d.Counts[10])
	assert.Zero(t, d.Counts[39])
}

func TestRasterizeCutsiteLastCoveredBase(t *testing.T) {
	// the reverse cut of [3, 8) is base 7, not the exclusive end 8
	d, err := Rasterize(Fragments(Fragment{Start: 3, End: 8}), 10, DepthOptions{Method: Cutsite})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), d.Counts[3])
	assert.Equal(t, uint32(1), d.Counts[7])
	assert.Zero(t, d.Counts[8])
}

func TestRasterizeOffsetClipsAtEdges(t *testing.T) {
	// end boundary 2-1-5 = -4 and start boundary 7+4 = 11 both fall off
	src := Fragments(Fragment{Start: 0, End: 2}, Fragment{Start: 7, End: 10})
	d, err := Rasterize(src, 10, DefaultDepthOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Stats.Used)
	assert.Equal(t, 2, d.Stats.Clipped)
	assert.Equal(t, int64(2), d.Sum())
	assert.Equal(t, uint32(2), d.Counts[4])
}

func TestRasterizeSkipsOutOfBounds(t *testing.T) {
	src := Fragments(
		Fragment{Start: -1, End: 3},
		Fragment{Start: 8, End: 11},
		Fragment{Start: 5, End: 5},
		Fragment{Start: 1, End: 4},
	)
	d, err := Rasterize(src, 10, DepthOptions{Method: FullFragment})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Stats.Skipped)
	assert.Equal(t, 1, d.Stats.Used)
	assert.Equal(t, int64(3), d.Sum())
}

func TestRasterizeInvalidLength(t *testing.T) {
	_, err := Rasterize(scenario(), 0, DefaultDepthOptions())
	assert.Error(t, err)
}

type failingSource struct{ n int }

func (s *failingSource) Next() bool         { s.n++; return s.n < 3 }
func (s *failingSource) Fragment() Fragment { return Fragment{Start: 0, End: 1} }
func (s *failingSource) Err() error         { return errors.New("truncated file") }

func TestRasterizeSourceError(t *testing.T) {
	_, err := Rasterize(&failingSource{}, 10, DepthOptions{Method: Midpoint})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated file")
}

func randomFragments(rng *rand.Rand, n, length int) []Fragment {
	frags := make([]Fragment, n)
	for i := range frags {
		start := rng.Intn(length+20) - 10
		frags[i] = Fragment{Start: start, End: start + 1 + rng.Intn(60), Strand: Strand(1 - 2*rng.Intn(2))}
	}
	return frags
}

func TestRasterizeSumProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const length = 500
	frags := randomFragments(rng, 1000, length)

	valid, bases := 0, 0
	for _, f := range frags {
		if f.Start >= 0 && f.End <= length {
			valid++
			bases += f.Len()
		}
	}

	d, err := Rasterize(Fragments(frags...), length, DepthOptions{Method: FullFragment})
	require.NoError(t, err)
	assert.Equal(t, int64(bases), d.Sum())
	assert.Equal(t, int64(bases), d.Stats.Sum)

	d, err = Rasterize(Fragments(frags...), length, DepthOptions{Method: Midpoint})
	require.NoError(t, err)
	assert.Equal(t, int64(valid), d.Sum())

	d, err = Rasterize(Fragments(frags...), length, DepthOptions{Method: Cutsite})
	require.NoError(t, err)
	assert.Equal(t, int64(2*valid), d.Sum())
	assert.Equal(t, valid, d.Stats.Used)
	assert.Equal(t, len(frags)-valid, d.Stats.Skipped)

	d, err = Rasterize(Fragments(frags...), length, DefaultDepthOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(2*valid-d.Stats.Clipped), d.Sum())
}

func TestParseCountMethod(t *testing.T) {
	for _, s := range []string{"cutsite", "midpoint", "fragment", "Midpoint"} {
		_, err := ParseCountMethod(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseCountMethod("coverage")
	assert.Error(t, err)
}
