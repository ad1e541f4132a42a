package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// ContentEncodingGzip is the HTTP Content-Encoding token for gzip bodies
const ContentEncodingGzip = "gzip"

// Compressor gzips message bodies
type Compressor struct {
	compressionLevel int
}

// NewCompressor creates a new compressor with default compression level
func NewCompressor() *Compressor {
	return &Compressor{
		compressionLevel: gzip.DefaultCompression,
	}
}

// NewCompressorWithLevel creates a new compressor with specified compression level
func NewCompressorWithLevel(level int) *Compressor {
	return &Compressor{
		compressionLevel: level,
	}
}

// NewWriter returns a gzip writer on w. Close it to flush the trailer.
func (c *Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	gz, err := gzip.NewWriterLevel(w, c.compressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return gz, nil
}

// NewReader returns a reader that inflates r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return gz, nil
}

// Compress compresses data using GZIP
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := c.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses GZIP data
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	reader, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}

	return buf.Bytes(), nil
}

// IsGzip reports whether a Content-Encoding or Accept-Encoding header
// names gzip.
func IsGzip(header string) bool {
	for _, token := range strings.Split(header, ",") {
		token, _, _ = strings.Cut(token, ";")
		if strings.EqualFold(strings.TrimSpace(token), ContentEncodingGzip) {
			return true
		}
	}
	return false
}

// ShouldCompress reports whether a body of the given content type benefits
// from compression. Parameters are ignored.
func ShouldCompress(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.ToLower(strings.TrimSpace(base))

	// Don't compress already compressed formats
	compressedTypes := map[string]bool{
		"application/gzip":   true,
		"application/zip":    true,
		"application/x-gzip": true,
		"image/jpeg":         true,
		"image/png":          true,
		"video/mp4":          true,
		"audio/mp3":          true,
	}

	return !compressedTypes[base]
}
