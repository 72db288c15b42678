package persistence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Blob payload compression. The codec is chosen per column via its `format`
// attribute and recorded per blob record so decompression never depends on
// column metadata.

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// BlobCodecFromFormat maps a column format attribute to a blob codec.
func BlobCodecFromFormat(format string) (uint8, error) {
	switch format {
	case "":
		return BlobCodecNone, nil
	case "zstd":
		return BlobCodecZstd, nil
	case "lz4":
		return BlobCodecLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBlobCodec, format)
	}
}

// CompressBlob compresses a blob payload with the given codec.
func CompressBlob(blobCodec uint8, data []byte) ([]byte, error) {
	switch blobCodec {
	case BlobCodecNone:
		return data, nil
	case BlobCodecZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case BlobCodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlobCodec, blobCodec)
	}
}

// DecompressBlob reverses CompressBlob.
func DecompressBlob(blobCodec uint8, data []byte) ([]byte, error) {
	switch blobCodec {
	case BlobCodecNone:
		return data, nil
	case BlobCodecZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case BlobCodecLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlobCodec, blobCodec)
	}
}
