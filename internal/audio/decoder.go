package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/malgo"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// decodeChunkSize is how many bytes of PCM a decoder accumulates between
// cancellation checks.
const decodeChunkSize = 4096

// AudioData is decoded PCM in the source's native layout, before conversion
// to the output format.
type AudioData struct {
	Samples    []byte           // Raw interleaved PCM data, little endian
	Channels   uint32           // Number of audio channels
	SampleRate uint32           // Sample rate in Hz
	Format     malgo.FormatType // Sample format (e.g., malgo.FormatS16)
}

// Frames returns the number of whole frames in Samples.
func (d *AudioData) Frames() int {
	if d == nil || d.Channels == 0 {
		return 0
	}
	bps := getBytesPerSample(d.Format)
	return len(d.Samples) / (bps * int(d.Channels))
}

// Decoder turns one encoded audio container into PCM. Decoders append
// decoded chunks to an accumulating buffer and give up early when ctx is
// cancelled.
type Decoder interface {
	// Decode reads audio data from reader and returns decoded PCM data
	Decode(ctx context.Context, reader io.Reader) (*AudioData, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}

// getBytesPerSample returns the number of bytes per sample for a given format
func getBytesPerSample(format malgo.FormatType) int {
	switch format {
	case malgo.FormatU8:
		return 1
	case malgo.FormatS16:
		return 2
	case malgo.FormatS24:
		return 3
	case malgo.FormatS32, malgo.FormatF32:
		return 4
	default:
		return 2
	}
}

// hasSuffixFold reports whether filename ends with any of the extensions,
// ignoring case.
func hasSuffixFold(filename string, exts ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// readPCM drains a PCM stream in decodeChunkSize steps, checking ctx between
// chunks. sizeHint preallocates when the stream knows its length.
func readPCM(ctx context.Context, r io.Reader, sizeHint int64) ([]byte, error) {
	var out []byte
	if sizeHint > 0 {
		out = make([]byte, 0, sizeHint)
	}
	buf := make([]byte, decodeChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		switch {
		case errors.Is(err, io.EOF):
			return out, nil
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		case n == 0:
			return out, nil
		}
	}
}
