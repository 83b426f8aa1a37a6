package fasta

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/fai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFasta = ">chr2 second\nACGTACGTAC\nGTacgtNN\n>chr1\nGGGG\nCC\n>chrM\nTTTTTTTTTT\n"

func writeFasta(t *testing.T, withIndex bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.fa")
	require.NoError(t, os.WriteFile(path, []byte(testFasta), 0644))

	if withIndex {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		idx, err := fai.NewIndex(f)
		require.NoError(t, err)

		out, err := os.Create(path + ".fai")
		require.NoError(t, err)
		defer out.Close()
		require.NoError(t, fai.WriteTo(out, idx))
	}
	return path
}

func TestReader(t *testing.T) {
	for _, withIndex := range []bool{false, true} {
		r, err := Open(writeFasta(t, withIndex))
		require.NoError(t, err)

		assert.Equal(t, []string{"chr2", "chr1", "chrM"}, r.Names())

		n, err := r.Length("chr2")
		require.NoError(t, err)
		assert.Equal(t, 18, n)

		seq, err := r.Sequence("chr2")
		require.NoError(t, err)
		assert.Equal(t, "ACGTACGTACGTacgtNN", string(seq))

		seq, err = r.Sequence("chr1")
		require.NoError(t, err)
		assert.Equal(t, "GGGGCC", string(seq))

		seq, err = r.Sequence("chrM")
		require.NoError(t, err)
		assert.Len(t, seq, 10)

		require.NoError(t, r.Close())
	}
}

func TestReaderUnknownSequence(t *testing.T) {
	r, err := Open(writeFasta(t, false))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Length("chr9")
	assert.True(t, errors.Is(err, ErrUnknownSequence))
	_, err = r.Sequence("chr9")
	assert.True(t, errors.Is(err, ErrUnknownSequence))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "none.fa"))
	assert.Error(t, err)
}
