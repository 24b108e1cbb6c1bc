package audio

import (
	"context"
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/mewkiz/flac"
)

// FlacDecoder handles FLAC audio format decoding. Output is always S16;
// wider sources are truncated to their top 16 bits.
type FlacDecoder struct{}

// NewFlacDecoder creates a new FLAC decoder instance
func NewFlacDecoder() *FlacDecoder {
	return &FlacDecoder{}
}

// Decode parses FLAC frames one at a time and appends them as interleaved
// 16-bit PCM.
func (d *FlacDecoder) Decode(ctx context.Context, reader io.Reader) (*AudioData, error) {
	slog.Debug("starting FLAC decode operation")

	stream, err := flac.New(reader)
	if err != nil {
		slog.Warn("failed to open FLAC stream", "error", err)
		return nil, ErrInvalidData
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels == 0 || info.SampleRate == 0 || bitDepth == 0 {
		slog.Warn("invalid FLAC stream info",
			"channels", channels,
			"sample_rate", info.SampleRate,
			"bits_per_sample", bitDepth)
		return nil, ErrInvalidData
	}

	slog.Debug("FLAC format detected",
		"sample_rate", info.SampleRate,
		"channels", channels,
		"bits_per_sample", bitDepth)

	var rawBytes []byte
	if info.NSamples > 0 {
		rawBytes = make([]byte, 0, int(info.NSamples)*channels*2)
	}

	for {
		if err := ctx.Err(); err != nil {
			slog.Debug("FLAC decode cancelled", "bytes_read", len(rawBytes))
			return nil, err
		}

		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("failed to parse FLAC frame", "error", err)
			return nil, ErrReadFailure
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				s := frame.Subframes[ch].Samples[i]
				switch {
				case bitDepth > 16:
					s >>= uint(bitDepth - 16)
				case bitDepth < 16:
					s <<= uint(16 - bitDepth)
				}
				rawBytes = append(rawBytes, byte(s), byte(s>>8))
			}
		}
	}

	if len(rawBytes) == 0 {
		slog.Warn("no audio data found in FLAC file")
		return nil, ErrInvalidData
	}

	slog.Debug("FLAC decode completed", "total_bytes", len(rawBytes))

	return &AudioData{
		Samples:    rawBytes,
		Channels:   uint32(channels),
		SampleRate: info.SampleRate,
		Format:     malgo.FormatS16,
	}, nil
}

// CanDecode checks if this decoder can handle the given filename
func (d *FlacDecoder) CanDecode(filename string) bool {
	return hasSuffixFold(filename, ".flac")
}

// FormatName returns the name of the format this decoder handles
func (d *FlacDecoder) FormatName() string {
	return "FLAC"
}
