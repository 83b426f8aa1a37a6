package raster

import "fmt"

// Alleles is the row order of an AlleleMatrix. Row OtherRow collects
// deletions and every symbol not listed here.
const Alleles = "ACGTN"

// DeletionMarker is the allele reported for a deleted reference base
const DeletionMarker = '-'

// NumAlleleRows is the number of rows in an AlleleMatrix
const NumAlleleRows = 6

// OtherRow is the index of the bucket row
const OtherRow = 5

var alleleRow [256]int8

func init() {
	for i := range alleleRow {
		alleleRow[i] = OtherRow
	}
	for i := 0; i < len(Alleles); i++ {
		alleleRow[Alleles[i]] = int8(i)
		alleleRow[Alleles[i]+('a'-'A')] = int8(i)
	}
}

// AlleleRow returns the matrix row that counts allele
func AlleleRow(allele byte) int {
	return int(alleleRow[allele])
}

// BaseCall is one observed allele at a 0-based reference position
type BaseCall struct {
	Pos    int
	Allele byte
}

// AlleleMatrix holds per-position allele counts, shape [NumAlleleRows, Length],
// stored row-major.
type AlleleMatrix struct {
	Length int
	Counts []uint32
	Stats  Stats
}

// Shape returns the matrix dimensions
func (m *AlleleMatrix) Shape() []int {
	return []int{NumAlleleRows, m.Length}
}

// Row returns the counts of one allele row. The slice aliases Counts.
func (m *AlleleMatrix) Row(row int) []uint32 {
	return m.Counts[row*m.Length : (row+1)*m.Length]
}

// At returns the count of row at pos
func (m *AlleleMatrix) At(row, pos int) uint32 {
	return m.Counts[row*m.Length+pos]
}

// ColumnSum returns the number of base calls recorded at pos
func (m *AlleleMatrix) ColumnSum(pos int) int {
	sum := 0
	for row := 0; row < NumAlleleRows; row++ {
		sum += int(m.At(row, pos))
	}
	return sum
}

// RasterizeAlleles drains src into an allele count matrix. Calls at
// positions outside [0, length) are skipped and counted; unknown alleles
// are counted in the other row.
func RasterizeAlleles(src BaseCallSource, length int) (*AlleleMatrix, error) {
	if length <= 0 {
		return nil, fmt.Errorf("invalid chromosome length %d", length)
	}

	m := &AlleleMatrix{
		Length: length,
		Counts: make([]uint32, NumAlleleRows*length),
	}

	for src.Next() {
		call := src.BaseCall()
		if call.Pos < 0 || call.Pos >= length {
			m.Stats.Skipped++
			continue
		}
		row := AlleleRow(call.Allele)
		if row == OtherRow {
			m.Stats.Other++
		}
		m.Counts[row*length+call.Pos]++
		m.Stats.Used++
		m.Stats.Sum++
	}

	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("failed to read base calls: %w", err)
	}

	return m, nil
}
