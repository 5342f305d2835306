package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Output is an opened result destination.
type Output struct {
	io.Writer
	// Path is the file written, or "" when writing to the fallback.
	Path string
	file *os.File
}

// Close closes the underlying file, if any.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}

// IsFallback reports whether the output is the fallback writer.
func (o *Output) IsFallback() bool {
	return o.file == nil
}

// Open creates path, including its parent directories, for writing. When
// the file cannot be created the fallback writer is returned together with
// the creation error, so callers can report it and still emit the result.
// An empty path selects the fallback without error.
func Open(path string, fallback io.Writer) (*Output, error) {
	if path == "" {
		return &Output{Writer: fallback}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &Output{Writer: fallback}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return &Output{Writer: fallback}, fmt.Errorf("failed to create output file: %w", err)
	}
	return &Output{Writer: f, Path: path, file: f}, nil
}
