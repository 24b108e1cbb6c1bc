package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected for magic numbers.
const sniffLen = 3072

// DecoderRegistry manages audio format decoders and provides format detection
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{
		decoders: make([]Decoder, 0),
	}
}

// NewDefaultRegistry creates a registry with every built-in decoder.
// Registration order is the extension-match priority.
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()

	registry.Register(NewWavDecoder())
	registry.Register(NewVorbisDecoder())
	registry.Register(NewFlacDecoder())
	registry.Register(NewMp3Decoder())
	registry.Register(NewAiffDecoder())

	slog.Debug("default decoder registry initialized",
		"supported_formats", registry.GetSupportedFormats())

	return registry
}

// Register adds a decoder to the registry
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}

	r.decoders = append(r.decoders, decoder)

	slog.Debug("decoder registered",
		"format", decoder.FormatName(),
		"total_decoders", len(r.decoders))
}

// GetDecoders returns all registered decoders
func (r *DecoderRegistry) GetDecoders() []Decoder {
	return r.decoders
}

// GetSupportedFormats returns a list of all supported format names
func (r *DecoderRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// DetectFormat detects the appropriate decoder based on filename extension only
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		return nil
	}

	// First registered decoder wins
	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			slog.Debug("format detected by extension",
				"filename", filename,
				"format", decoder.FormatName())
			return decoder
		}
	}

	slog.Debug("no decoder found for filename", "filename", filename)
	return nil
}

// DetectFormatWithContent detects format using magic bytes first, falling
// back to the extension. header should hold the leading bytes of the file.
func (r *DecoderRegistry) DetectFormatWithContent(filename string, header []byte) Decoder {
	if len(header) == 0 {
		slog.Debug("empty content, using extension fallback", "filename", filename)
		return r.DetectFormat(filename)
	}
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}

	detectedMime := strings.ToLower(mimetype.Detect(header).String())

	var formatDecoder Decoder
	switch {
	case strings.Contains(detectedMime, "wav") || detectedMime == "audio/vnd.wave":
		formatDecoder = r.findDecoderByFormat("WAV")
	case strings.Contains(detectedMime, "flac"):
		formatDecoder = r.findDecoderByFormat("FLAC")
	case strings.Contains(detectedMime, "ogg"):
		formatDecoder = r.findDecoderByFormat("VORBIS")
	case strings.Contains(detectedMime, "mpeg") || strings.Contains(detectedMime, "mp3"):
		formatDecoder = r.findDecoderByFormat("MP3")
	case strings.Contains(detectedMime, "aiff"):
		formatDecoder = r.findDecoderByFormat("AIFF")
	}

	if formatDecoder != nil {
		slog.Debug("format detected by magic bytes",
			"filename", filename,
			"detected_format", formatDecoder.FormatName(),
			"mime_type", detectedMime)
		return formatDecoder
	}

	slog.Debug("magic detection failed, falling back to extension",
		"filename", filename,
		"mime_type", detectedMime)
	return r.DetectFormat(filename)
}

// findDecoderByFormat finds a decoder by its format name
func (r *DecoderRegistry) findDecoderByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// DecodeFile decodes an audio file using the appropriate decoder. It returns
// the decoded data and the name of the decoder that produced it.
func (r *DecoderRegistry) DecodeFile(ctx context.Context, filename string, reader io.Reader) (*AudioData, string, error) {
	slog.Debug("starting file decode operation", "filename", filename)

	// Buffer the entire content so detection does not consume the decoder's input
	fullContent, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file content: %w", err)
	}

	decoder := r.DetectFormatWithContent(filename, fullContent)
	if decoder == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	audioData, err := decoder.Decode(ctx, bytes.NewReader(fullContent))
	if err != nil {
		return nil, decoder.FormatName(), fmt.Errorf("%s decode failed: %w", decoder.FormatName(), err)
	}

	slog.Debug("file decode completed",
		"filename", filename,
		"decoder_format", decoder.FormatName(),
		"channels", audioData.Channels,
		"sample_rate", audioData.SampleRate,
		"data_size", len(audioData.Samples))

	return audioData, decoder.FormatName(), nil
}
