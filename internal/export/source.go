package export

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the read size used when callers do not override it.
// Exports run to hundreds of megabytes, so chunks are kept small enough that
// progress stays responsive.
const DefaultChunkSize = 256 * 1024

// ChunkSource yields sequential chunks of a large document. Next returns
// io.EOF after the final chunk. Size returns the total input size in bytes,
// or 0 when unknown; it only feeds progress reporting.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
	Size() int64
}

// ReaderSource adapts an io.Reader into a ChunkSource.
type ReaderSource struct {
	r         io.Reader
	chunkSize int
	size      int64
}

var _ ChunkSource = (*ReaderSource)(nil)

// NewReaderSource wraps r. size may be 0 when the total length is unknown.
func NewReaderSource(r io.Reader, chunkSize int, size int64) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{r: r, chunkSize: chunkSize, size: size}
}

func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, s.chunkSize)
	n, err := s.r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

func (s *ReaderSource) Size() int64 { return s.size }

// FileSource is a ChunkSource over a file on disk.
type FileSource struct {
	*ReaderSource
	f *os.File
}

// OpenFile opens path for chunked reading.
func OpenFile(path string, chunkSize int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat export: %w", err)
	}
	return &FileSource{
		ReaderSource: NewReaderSource(f, chunkSize, info.Size()),
		f:            f,
	}, nil
}

func (s *FileSource) Close() error {
	return s.f.Close()
}
