package encode

import (
	"errors"
	"fmt"
)

// DefaultSpec is the alphabet used when no encoding spec is given
const DefaultSpec = "ACGTN"

var (
	// ErrNonAlphabetic is wrapped by InvalidSpecError when the spec
	// contains a character that is not an ASCII letter
	ErrNonAlphabetic = errors.New("contains non-characters")

	// ErrDuplicateSymbol is wrapped by InvalidSpecError when the spec
	// repeats a character
	ErrDuplicateSymbol = errors.New("can't contain duplicate characters")
)

// InvalidSpecError reports why an encoding spec was rejected
type InvalidSpecError struct {
	Spec string
	Err  error
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("spec: '%s' %v", e.Spec, e.Err)
}

func (e *InvalidSpecError) Unwrap() error {
	return e.Err
}

// Spec is an ordered set of distinct symbols. The position of a symbol
// is its column in the one-hot encoding.
type Spec struct {
	symbols []byte
}

// ParseSpec validates an encoding spec. An empty string selects DefaultSpec.
func ParseSpec(s string) (Spec, error) {
	if s == "" {
		s = DefaultSpec
	}

	for _, r := range s {
		if !isLetter(r) {
			return Spec{}, &InvalidSpecError{Spec: s, Err: ErrNonAlphabetic}
		}
	}

	var seen [256]bool
	for i := 0; i < len(s); i++ {
		if seen[s[i]] {
			return Spec{}, &InvalidSpecError{Spec: s, Err: ErrDuplicateSymbol}
		}
		seen[s[i]] = true
	}

	return Spec{symbols: []byte(s)}, nil
}

// MustParseSpec is like ParseSpec but panics on an invalid spec
func MustParseSpec(s string) Spec {
	spec, err := ParseSpec(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// Len returns the number of symbols (one-hot columns)
func (s Spec) Len() int {
	if s.symbols == nil {
		return len(DefaultSpec)
	}
	return len(s.symbols)
}

// Symbols returns the symbols in column order
func (s Spec) Symbols() []string {
	syms := s.bytes()
	out := make([]string, len(syms))
	for i, b := range syms {
		out[i] = string(b)
	}
	return out
}

func (s Spec) String() string {
	return string(s.bytes())
}

// zero value behaves as DefaultSpec
func (s Spec) bytes() []byte {
	if s.symbols == nil {
		return []byte(DefaultSpec)
	}
	return s.symbols
}

// Column returns the one-hot column of sym, or -1 when sym is outside
// the alphabet. With ignoreCase both sides are folded to upper case and
// the first matching column wins.
func (s Spec) Column(sym byte, ignoreCase bool) int {
	if ignoreCase {
		sym = upper(sym)
	}
	for i, b := range s.bytes() {
		if ignoreCase {
			b = upper(b)
		}
		if b == sym {
			return i
		}
	}
	return -1
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// EncodeSymbol returns the one-hot row for sym. Symbols outside the
// alphabet, IUPAC ambiguity codes for example, give an all-zero row.
func EncodeSymbol(sym byte, spec Spec, ignoreCase bool) []uint8 {
	row := make([]uint8, spec.Len())
	if col := spec.Column(sym, ignoreCase); col >= 0 {
		row[col] = 1
	}
	return row
}
