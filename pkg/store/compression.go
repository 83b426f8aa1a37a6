package store

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression names accepted by WriterOptions
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Compressor handles payload compression. EncodeAll and DecodeAll are
// safe for concurrent use, so one Compressor serves every worker.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a zstd compressor at the given level (1 fastest,
// 2 default, 3 better compression)
func NewCompressor(level int) (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func encoderLevel(level int) zstd.EncoderLevel {
	switch level {
	case 1:
		return zstd.SpeedFastest
	case 3:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedDefault
	}
}

// Compress compresses data using zstd
func (c *Compressor) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
}

// Decompress decompresses data using zstd
func (c *Compressor) Decompress(data []byte, sizeHint int) ([]byte, error) {
	return c.decoder.DecodeAll(data, make([]byte, 0, sizeHint))
}

// Close closes the compressor
func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
