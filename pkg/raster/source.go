// Package raster turns streams of aligned fragments and base calls into
// dense per-base arrays for a single chromosome.
package raster

// FragmentSource is a pull iterator over the fragments of one chromosome.
// It is consumed once: Next advances, Fragment returns the current
// record, Err reports the error that stopped iteration, if any.
type FragmentSource interface {
	Next() bool
	Fragment() Fragment
	Err() error
}

// BaseCallSource is a pull iterator over the base calls of one chromosome
type BaseCallSource interface {
	Next() bool
	BaseCall() BaseCall
	Err() error
}

type fragmentSlice struct {
	frags []Fragment
	i     int
}

// Fragments returns a FragmentSource over an in-memory list
func Fragments(frags ...Fragment) FragmentSource {
	return &fragmentSlice{frags: frags, i: -1}
}

func (s *fragmentSlice) Next() bool {
	s.i++
	return s.i < len(s.frags)
}

func (s *fragmentSlice) Fragment() Fragment { return s.frags[s.i] }
func (s *fragmentSlice) Err() error         { return nil }

type callSlice struct {
	calls []BaseCall
	i     int
}

// BaseCalls returns a BaseCallSource over an in-memory list
func BaseCalls(calls ...BaseCall) BaseCallSource {
	return &callSlice{calls: calls, i: -1}
}

func (s *callSlice) Next() bool {
	s.i++
	return s.i < len(s.calls)
}

func (s *callSlice) BaseCall() BaseCall { return s.calls[s.i] }
func (s *callSlice) Err() error         { return nil }
