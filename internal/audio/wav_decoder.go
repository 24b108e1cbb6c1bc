package audio

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/gen2brain/malgo"
	"github.com/youpy/go-wav"
)

// WavDecoder handles WAV audio format decoding
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance
func NewWavDecoder() *WavDecoder {
	return &WavDecoder{}
}

// Decode reads WAV audio data from reader and returns decoded PCM data
func (d *WavDecoder) Decode(ctx context.Context, reader io.Reader) (*AudioData, error) {
	slog.Debug("starting WAV decode operation")

	// go-wav needs random access for chunk lookup
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read WAV data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		slog.Warn("empty WAV data")
		return nil, ErrInvalidData
	}

	wavReader := wav.NewReader(bytes.NewReader(data))

	format, err := wavReader.Format()
	if err != nil {
		slog.Warn("failed to read WAV format", "error", err)
		return nil, ErrInvalidData
	}

	slog.Debug("WAV format detected",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits_per_sample", format.BitsPerSample)

	if format.NumChannels == 0 || format.SampleRate == 0 {
		slog.Warn("invalid WAV format parameters",
			"channels", format.NumChannels,
			"sample_rate", format.SampleRate)
		return nil, ErrInvalidData
	}

	var malgoFormat malgo.FormatType
	switch format.BitsPerSample {
	case 8:
		malgoFormat = malgo.FormatU8
	case 16:
		malgoFormat = malgo.FormatS16
	case 24:
		malgoFormat = malgo.FormatS24
	case 32:
		malgoFormat = malgo.FormatS32
	default:
		slog.Warn("unsupported WAV bit depth", "bits", format.BitsPerSample)
		return nil, ErrUnsupportedFormat
	}

	channels := int(format.NumChannels)
	bytesPerSample := getBytesPerSample(malgoFormat)
	rawBytes := make([]byte, 0, len(data))
	frames := 0

	for {
		if err := ctx.Err(); err != nil {
			slog.Debug("WAV decode cancelled", "frames_read", frames)
			return nil, err
		}

		samples, err := wavReader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("failed to read WAV samples", "error", err)
			return nil, ErrReadFailure
		}
		if len(samples) == 0 {
			break
		}

		for _, sample := range samples {
			for ch := 0; ch < channels; ch++ {
				val := 0
				if ch < len(sample.Values) {
					val = sample.Values[ch]
				}
				rawBytes = appendSample(rawBytes, val, bytesPerSample)
			}
		}
		frames += len(samples)
	}

	if frames == 0 {
		slog.Warn("no audio data found in WAV file")
		return nil, ErrInvalidData
	}

	audioData := &AudioData{
		Samples:    rawBytes,
		Channels:   uint32(format.NumChannels),
		SampleRate: format.SampleRate,
		Format:     malgoFormat,
	}

	slog.Debug("WAV decode completed",
		"total_bytes", len(rawBytes),
		"frames", frames,
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"duration_ms", (frames*1000)/int(audioData.SampleRate))

	return audioData, nil
}

// appendSample writes val as a little-endian sample of the given width.
func appendSample(dst []byte, val int, width int) []byte {
	switch width {
	case 1:
		return append(dst, byte(val))
	case 2:
		return append(dst, byte(val), byte(val>>8))
	case 3:
		return append(dst, byte(val), byte(val>>8), byte(val>>16))
	default:
		return append(dst, byte(val), byte(val>>8), byte(val>>16), byte(val>>24))
	}
}

// CanDecode checks if this decoder can handle the given filename
func (d *WavDecoder) CanDecode(filename string) bool {
	return hasSuffixFold(filename, ".wav", ".wave")
}

// FormatName returns the name of the format this decoder handles
func (d *WavDecoder) FormatName() string {
	return "WAV"
}
