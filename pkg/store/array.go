package store

import (
	"encoding/binary"
	"fmt"
)

// Binary array format constants
const (
	ArrayMagic   uint32 = 0x474C4131 // "GLA1"
	ArrayVersion uint16 = 0x0100
)

// Payload compression flags
const (
	flagNone uint8 = 0x0
	flagZstd uint8 = 0x1
)

// DType is the element type of an Array
type DType uint8

const (
	Uint8  DType = 1
	Uint32 DType = 2
)

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint32:
		return "uint32"
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// Size returns the element size in bytes
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint32:
		return 4
	}
	return 0
}

// Array is a dense n-dimensional array stored row-major. Exactly one of
// U8 and U32 is set, matching DType.
type Array struct {
	DType DType
	Shape []int
	U8    []uint8
	U32   []uint32
}

// NewUint8Array wraps data without copying
func NewUint8Array(data []uint8, shape ...int) Array {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Array{DType: Uint8, Shape: shape, U8: data}
}

// NewUint32Array wraps data without copying
func NewUint32Array(data []uint32, shape ...int) Array {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Array{DType: Uint32, Shape: shape, U32: data}
}

// Len returns the number of elements
func (a Array) Len() int {
	if a.DType == Uint32 {
		return len(a.U32)
	}
	return len(a.U8)
}

// Sum returns the sum of all elements
func (a Array) Sum() int64 {
	var sum int64
	for _, v := range a.U8 {
		sum += int64(v)
	}
	for _, v := range a.U32 {
		sum += int64(v)
	}
	return sum
}

func (a Array) validate() error {
	if a.DType.Size() == 0 {
		return fmt.Errorf("unsupported dtype %v", a.DType)
	}
	n := 1
	for _, d := range a.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", a.Shape)
		}
		n *= d
	}
	if n != a.Len() {
		return fmt.Errorf("shape %v does not match %d elements", a.Shape, a.Len())
	}
	return nil
}

// EncodeArray serialises a into the binary array format, compressing the
// payload when c is not nil.
//
// Layout: magic u32, version u16, dtype u8, flags u8, ndim u32,
// dims u64 x ndim, raw payload length u64, payload.
func EncodeArray(a Array, c *Compressor) ([]byte, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	payload := make([]byte, a.Len()*a.DType.Size())
	switch a.DType {
	case Uint8:
		copy(payload, a.U8)
	case Uint32:
		for i, v := range a.U32 {
			binary.LittleEndian.PutUint32(payload[i*4:], v)
		}
	}
	rawLen := len(payload)

	flags := flagNone
	if c != nil {
		payload = c.Compress(payload)
		flags = flagZstd
	}

	buf := make([]byte, 0, 20+8*len(a.Shape)+len(payload))
	buf = binary.LittleEndian.AppendUint32(buf, ArrayMagic)
	buf = binary.LittleEndian.AppendUint16(buf, ArrayVersion)
	buf = append(buf, uint8(a.DType), flags)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(a.Shape)))
	for _, d := range a.Shape {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(d))
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(rawLen))
	buf = append(buf, payload...)

	return buf, nil
}

// DecodeArray parses data written by EncodeArray. c may be nil when the
// payload is known to be uncompressed.
func DecodeArray(data []byte, c *Compressor) (Array, error) {
	var a Array
	if len(data) < 12 {
		return a, fmt.Errorf("array too short: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != ArrayMagic {
		return a, fmt.Errorf("invalid array magic: 0x%08x", magic)
	}
	if version := binary.LittleEndian.Uint16(data[4:]); version != ArrayVersion {
		return a, fmt.Errorf("unsupported array version: 0x%04x", version)
	}
	a.DType = DType(data[6])
	flags := data[7]
	ndim := int(binary.LittleEndian.Uint32(data[8:]))
	offset := 12

	if len(data) < offset+8*ndim+8 {
		return a, fmt.Errorf("truncated array header")
	}
	a.Shape = make([]int, ndim)
	for i := range a.Shape {
		a.Shape[i] = int(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
	}
	rawLen := int(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	payload := data[offset:]
	switch flags {
	case flagNone:
	case flagZstd:
		if c == nil {
			return a, fmt.Errorf("array is zstd compressed but no decompressor given")
		}
		var err error
		payload, err = c.Decompress(payload, rawLen)
		if err != nil {
			return a, fmt.Errorf("failed to decompress array: %w", err)
		}
	default:
		return a, fmt.Errorf("unknown compression flag 0x%x", flags)
	}
	if len(payload) != rawLen {
		return a, fmt.Errorf("payload length %d, expected %d", len(payload), rawLen)
	}

	switch a.DType {
	case Uint8:
		a.U8 = make([]uint8, rawLen)
		copy(a.U8, payload)
	case Uint32:
		a.U32 = make([]uint32, rawLen/4)
		for i := range a.U32 {
			a.U32[i] = binary.LittleEndian.Uint32(payload[i*4:])
		}
	default:
		return a, fmt.Errorf("unsupported dtype %v", a.DType)
	}

	return a, a.validate()
}
