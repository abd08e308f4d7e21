// Package compress implements the byte codecs behind the compression
// provider.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a codec. The value is part of the provider
// identifier, so changing it orphans previously stashed objects.
type Algorithm string

const (
	Zstd Algorithm = "zstd"
	LZ4  Algorithm = "lz4"
)

// ParseAlgorithm maps a config value to an Algorithm. Empty means zstd.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", Zstd:
		return Zstd, nil
	case LZ4:
		return LZ4, nil
	default:
		return "", fmt.Errorf("unknown compression algorithm %q", name)
	}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress encodes data with the given algorithm. The output is always
// a valid frame, even when it is larger than the input. Empty input
// encodes to empty output.
func Compress(data []byte, alg Algorithm) ([]byte, error) {
	if len(data) == 0 {
		if _, err := ParseAlgorithm(string(alg)); err != nil {
			return nil, err
		}
		return []byte{}, nil
	}
	switch alg {
	case Zstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case LZ4:
		return compressLZ4(data)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", alg)
	}
}

// Decompress reverses Compress.
func Decompress(data []byte, alg Algorithm) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	switch alg {
	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case LZ4:
		return decompressLZ4(data)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", alg)
	}
}

// Savings returns 1 - out/in, or -1 when there was no input.
func Savings(in, out int) float64 {
	if in == 0 {
		return -1
	}
	return 1 - float64(out)/float64(in)
}

// LZ4 uses the frame format so the decoder does not need the original
// size.

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}
