package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// FileReader gives callers a read-only view of a source file for the
// duration of a callback.
//
// Files are memory-mapped so large bundles are paged in on demand; empty
// files and files that cannot be mapped fall back to os.ReadFile. The byte
// slice passed to the callback is only valid until the callback returns:
// anything kept must be copied (tree-sitter's Utf8Text already copies).
type FileReader struct {
	logger *slog.Logger

	filesRead    atomic.Int64
	bytesRead    atomic.Int64
	mmapFailures atomic.Int64
}

// FileReaderStats tracks reader activity.
type FileReaderStats struct {
	FilesRead    int64
	BytesRead    int64
	MmapFailures int64
}

// NewFileReader creates a FileReader. A nil logger falls back to slog.Default().
func NewFileReader(logger *slog.Logger) *FileReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileReader{logger: logger}
}

// Read maps path and calls fn with its contents.
func (r *FileReader) Read(path string, fn func(data []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	r.filesRead.Add(1)
	r.bytesRead.Add(info.Size())

	if info.Size() == 0 {
		return fn(nil)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		r.mmapFailures.Add(1)
		r.logger.Debug("mmap failed, falling back to ReadFile", "path", path, "error", err)

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		return fn(data)
	}
	defer func() {
		if err := m.Unmap(); err != nil {
			r.logger.Warn("failed to unmap file", "path", path, "error", err)
		}
	}()

	return fn(m)
}

// ReadAll returns a private copy of the file contents.
func (r *FileReader) ReadAll(path string) ([]byte, error) {
	var out []byte
	err := r.Read(path, func(data []byte) error {
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

// Stats returns cumulative reader metrics.
func (r *FileReader) Stats() FileReaderStats {
	return FileReaderStats{
		FilesRead:    r.filesRead.Load(),
		BytesRead:    r.bytesRead.Load(),
		MmapFailures: r.mmapFailures.Load(),
	}
}
