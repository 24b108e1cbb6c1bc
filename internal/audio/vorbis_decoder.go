package audio

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/vorbis"
)

// VorbisDecoder handles Ogg Vorbis decoding through beep. Frames come out of
// beep as float pairs, so the result is F32 at the stream's channel count.
type VorbisDecoder struct{}

// NewVorbisDecoder creates a new Ogg Vorbis decoder instance
func NewVorbisDecoder() *VorbisDecoder {
	return &VorbisDecoder{}
}

// Decode drains the beep streamer into interleaved float32 PCM.
func (d *VorbisDecoder) Decode(ctx context.Context, reader io.Reader) (*AudioData, error) {
	slog.Debug("starting Vorbis decode operation")

	streamer, format, err := vorbis.Decode(io.NopCloser(reader))
	if err != nil {
		slog.Warn("failed to open Vorbis stream", "error", err)
		return nil, ErrInvalidData
	}
	defer streamer.Close()

	channels := format.NumChannels
	if channels < 1 || channels > 2 || format.SampleRate <= 0 {
		slog.Warn("invalid Vorbis format",
			"channels", channels,
			"sample_rate", format.SampleRate)
		return nil, ErrInvalidData
	}

	frames := make([][2]float64, decodeChunkSize/8)
	var rawBytes []byte
	if n := streamer.Len(); n > 0 {
		rawBytes = make([]byte, 0, n*channels*4)
	}

	for {
		if err := ctx.Err(); err != nil {
			slog.Debug("Vorbis decode cancelled", "bytes_read", len(rawBytes))
			return nil, err
		}

		n, ok := streamer.Stream(frames)
		for _, frame := range frames[:n] {
			for ch := 0; ch < channels; ch++ {
				bits := math.Float32bits(float32(frame[ch]))
				rawBytes = append(rawBytes, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
			}
		}
		if !ok {
			break
		}
	}

	if err := streamer.Err(); err != nil {
		slog.Warn("Vorbis stream error", "error", err)
		return nil, ErrReadFailure
	}
	if len(rawBytes) == 0 {
		slog.Warn("no audio data found in Vorbis file")
		return nil, ErrInvalidData
	}

	slog.Debug("Vorbis decode completed",
		"total_bytes", len(rawBytes),
		"channels", channels,
		"sample_rate", int(format.SampleRate))

	return &AudioData{
		Samples:    rawBytes,
		Channels:   uint32(channels),
		SampleRate: uint32(format.SampleRate),
		Format:     malgo.FormatF32,
	}, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *VorbisDecoder) CanDecode(filename string) bool {
	return hasSuffixFold(filename, ".ogg", ".oga")
}

// FormatName returns the name of the format this decoder handles
func (d *VorbisDecoder) FormatName() string {
	return "VORBIS"
}
