package encode

// OneHot is a dense [Rows, Cols] matrix stored row-major
type OneHot struct {
	Rows int
	Cols int
	Data []uint8
}

// Row returns the encoding of position i. The slice aliases Data.
func (m *OneHot) Row(i int) []uint8 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Shape returns the matrix dimensions
func (m *OneHot) Shape() []int {
	return []int{m.Rows, m.Cols}
}

// Encode one-hot encodes seq under spec, one row per input symbol.
func Encode(seq []byte, spec Spec, ignoreCase bool) *OneHot {
	cols := spec.Len()

	// column lookup for every byte value, -1 for no match
	var table [256]int
	for b := 0; b < 256; b++ {
		table[b] = spec.Column(byte(b), ignoreCase)
	}

	m := &OneHot{
		Rows: len(seq),
		Cols: cols,
		Data: make([]uint8, len(seq)*cols),
	}
	for i, sym := range seq {
		if col := table[sym]; col >= 0 {
			m.Data[i*cols+col] = 1
		}
	}
	return m
}
