package audio

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// AiffDecoder handles AIFF audio format decoding
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	return &AiffDecoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// CanDecode checks if this decoder can handle the given filename
func (d *AiffDecoder) CanDecode(filename string) bool {
	return hasSuffixFold(filename, ".aiff", ".aif")
}

// Decode reads AIFF audio data from reader and returns decoded PCM data
func (d *AiffDecoder) Decode(ctx context.Context, reader io.Reader) (*AudioData, error) {
	slog.Debug("starting AIFF decode operation")

	// go-audio/aiff needs a ReadSeeker
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read AIFF data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		slog.Warn("empty AIFF data")
		return nil, ErrInvalidData
	}

	decoder := aiff.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Warn("invalid AIFF file format")
		return nil, ErrInvalidData
	}

	format := decoder.Format()
	if format == nil {
		slog.Warn("failed to get AIFF format")
		return nil, ErrInvalidData
	}

	sampleRate := uint32(decoder.SampleRate)
	channels := uint32(decoder.NumChans)
	bitDepth := int(decoder.SampleBitDepth())

	slog.Debug("AIFF format detected",
		"sample_rate", sampleRate,
		"channels", channels,
		"bits_per_sample", bitDepth)

	if channels == 0 || sampleRate == 0 || bitDepth == 0 {
		slog.Warn("invalid AIFF format parameters",
			"channels", channels,
			"sample_rate", sampleRate,
			"bit_depth", bitDepth)
		return nil, ErrInvalidData
	}

	var malgoFormat malgo.FormatType
	switch bitDepth {
	case 8:
		// AIFF 8-bit is signed; widen to S16 so the layout stays signed
		malgoFormat = malgo.FormatS16
	case 16:
		malgoFormat = malgo.FormatS16
	case 24:
		malgoFormat = malgo.FormatS24
	case 32:
		malgoFormat = malgo.FormatS32
	default:
		slog.Warn("unsupported AIFF bit depth", "bits", bitDepth)
		return nil, ErrUnsupportedFormat
	}
	width := getBytesPerSample(malgoFormat)

	chunk := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, decodeChunkSize),
		SourceBitDepth: bitDepth,
	}
	rawBytes := make([]byte, 0, len(data))
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			slog.Debug("AIFF decode cancelled", "samples_read", total)
			return nil, err
		}

		n, err := decoder.PCMBuffer(chunk)
		if err != nil && err != io.EOF {
			slog.Warn("failed to read AIFF samples", "error", err)
			return nil, ErrReadFailure
		}
		if n == 0 {
			break
		}

		for _, v := range chunk.Data[:n] {
			if bitDepth == 8 {
				v <<= 8
			}
			rawBytes = appendSample(rawBytes, v, width)
		}
		total += n
	}

	if total == 0 {
		slog.Warn("no audio data found in AIFF file")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    rawBytes,
		Channels:   channels,
		SampleRate: sampleRate,
		Format:     malgoFormat,
	}

	slog.Debug("AIFF decode completed",
		"total_bytes", len(rawBytes),
		"total_samples", total,
		"channels", channels,
		"sample_rate", sampleRate)

	return audioData, nil
}
