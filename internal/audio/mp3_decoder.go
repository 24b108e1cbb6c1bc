package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/hajimehoshi/go-mp3"
)

// mp3Channels is fixed: go-mp3 always emits interleaved 16-bit stereo,
// upmixing mono streams.
const mp3Channels = 2

// Mp3Decoder decodes MPEG-1/2 Layer III
type Mp3Decoder struct{}

// NewMp3Decoder creates a new MP3 decoder instance
func NewMp3Decoder() *Mp3Decoder {
	return &Mp3Decoder{}
}

// Decode implements Decoder
func (d *Mp3Decoder) Decode(ctx context.Context, reader io.Reader) (*AudioData, error) {
	stream, err := mp3.NewDecoder(reader)
	if err != nil {
		slog.Warn("not a decodable MP3 stream", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	rate := stream.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidData, rate)
	}

	samples, err := readPCM(ctx, stream, stream.Length())
	if err != nil {
		slog.Debug("MP3 decode stopped", "error", err)
		return nil, err
	}
	// a truncated final frame can leave half a stereo frame behind
	samples = samples[:len(samples)-len(samples)%(2*mp3Channels)]
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: MP3 stream holds no frames", ErrInvalidData)
	}

	slog.Debug("MP3 decoded",
		"bytes", len(samples),
		"sample_rate", rate,
		"duration_ms", len(samples)*1000/(2*mp3Channels*rate))

	return &AudioData{
		Samples:    samples,
		Channels:   mp3Channels,
		SampleRate: uint32(rate),
		Format:     malgo.FormatS16,
	}, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *Mp3Decoder) CanDecode(filename string) bool {
	return hasSuffixFold(filename, ".mp3", ".mpeg")
}

// FormatName returns "MP3"
func (d *Mp3Decoder) FormatName() string {
	return "MP3"
}
