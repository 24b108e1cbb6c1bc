package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
)

// Common errors for AudioSource implementations
var (
	ErrSourceClosed = errors.New("audio source is closed")
	ErrEmptyPath    = errors.New("file path is empty")
)

// AudioSource is something an effect can be decoded from.
type AudioSource interface {
	// Name identifies the source in logs and is used for extension-based
	// format detection.
	Name() string

	// Open returns a reader over the encoded data. The caller closes it.
	Open() (io.ReadCloser, error)
}

// FileSource reads an audio file through an afero filesystem
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a FileSource for path on fs. A nil fs means the OS
// filesystem.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, path: path}
}

// Name returns the file path
func (s *FileSource) Name() string {
	return s.path
}

// Open opens the file
func (s *FileSource) Open() (io.ReadCloser, error) {
	if s.path == "" {
		return nil, ErrEmptyPath
	}

	file, err := s.fs.Open(s.path)
	if err != nil {
		slog.Debug("failed to open audio file", "path", s.path, "error", err)
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// ReaderSource wraps an already-open reader. It can be opened once.
type ReaderSource struct {
	name   string
	reader io.ReadCloser
}

// NewReaderSource creates a ReaderSource. name should carry an extension so
// the registry can fall back to it when magic bytes are inconclusive.
func NewReaderSource(name string, reader io.ReadCloser) *ReaderSource {
	return &ReaderSource{name: name, reader: reader}
}

// Name returns the name given at construction
func (s *ReaderSource) Name() string {
	return s.name
}

// Open hands out the wrapped reader the first time and ErrSourceClosed after.
func (s *ReaderSource) Open() (io.ReadCloser, error) {
	if s.reader == nil {
		return nil, ErrSourceClosed
	}
	r := s.reader
	s.reader = nil
	return r, nil
}
