package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep"
)

// resampleQuality is the beep interpolation quality used when a source's
// sample rate differs from the output rate.
const resampleQuality = 4

// ConvertToOutput converts decoded audio of any supported layout into the
// fixed output format: mono, signed 16-bit little endian at out.SampleRate.
// Channels are averaged and the result always holds whole samples.
func ConvertToOutput(data *AudioData, out OutputFormat) ([]byte, error) {
	if data == nil || len(data.Samples) == 0 {
		return nil, ErrInvalidData
	}
	if data.Channels == 0 || data.SampleRate == 0 {
		return nil, fmt.Errorf("%w: channels=%d sample_rate=%d", ErrInvalidData, data.Channels, data.SampleRate)
	}
	switch data.Format {
	case malgo.FormatU8, malgo.FormatS16, malgo.FormatS24, malgo.FormatS32, malgo.FormatF32:
	default:
		return nil, fmt.Errorf("%w: sample format %v", ErrUnsupportedFormat, data.Format)
	}

	if data.Format == malgo.FormatS16 && data.Channels == 1 && data.SampleRate == out.SampleRate {
		n := len(data.Samples) &^ 1
		if n == 0 {
			return nil, ErrInvalidData
		}
		result := make([]byte, n)
		copy(result, data.Samples[:n])
		return result, nil
	}

	src := newPCMStreamer(data)
	if src.frames == 0 {
		return nil, ErrInvalidData
	}

	var streamer beep.Streamer = src
	expected := src.frames
	if data.SampleRate != out.SampleRate {
		streamer = beep.Resample(resampleQuality, beep.SampleRate(data.SampleRate), beep.SampleRate(out.SampleRate), src)
		expected = int(int64(src.frames) * int64(out.SampleRate) / int64(data.SampleRate))
	}

	result := make([]byte, 0, (expected+1)*BytesPerSample)
	buf := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(buf)
		for _, frame := range buf[:n] {
			s := floatToS16(frame[0])
			result = append(result, byte(s), byte(uint16(s)>>8))
		}
		if !ok {
			break
		}
	}

	if len(result) == 0 {
		return nil, ErrInvalidData
	}

	slog.Debug("converted audio to output format",
		"source_rate", data.SampleRate,
		"source_channels", data.Channels,
		"source_format", data.Format,
		"output_rate", out.SampleRate,
		"output_bytes", len(result))

	return result, nil
}

// pcmStreamer exposes interleaved PCM as a mono beep.Streamer; both halves
// of each frame carry the channel average.
type pcmStreamer struct {
	data     []byte
	format   malgo.FormatType
	channels int
	width    int
	frames   int
	pos      int
}

func newPCMStreamer(data *AudioData) *pcmStreamer {
	width := getBytesPerSample(data.Format)
	channels := int(data.Channels)
	return &pcmStreamer{
		data:     data.Samples,
		format:   data.Format,
		channels: channels,
		width:    width,
		frames:   len(data.Samples) / (width * channels),
	}
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if p.pos >= p.frames {
		return 0, false
	}
	n := 0
	frameBytes := p.width * p.channels
	for n < len(samples) && p.pos < p.frames {
		off := p.pos * frameBytes
		var sum float64
		for ch := 0; ch < p.channels; ch++ {
			sum += p.sampleAt(off + ch*p.width)
		}
		v := sum / float64(p.channels)
		samples[n] = [2]float64{v, v}
		n++
		p.pos++
	}
	return n, true
}

func (p *pcmStreamer) Err() error {
	return nil
}

// sampleAt decodes one sample at byte offset off into [-1, 1].
func (p *pcmStreamer) sampleAt(off int) float64 {
	b := p.data[off : off+p.width]
	switch p.format {
	case malgo.FormatU8:
		return (float64(b[0]) - 128) / 128
	case malgo.FormatS16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case malgo.FormatS24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608
	case malgo.FormatS32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	case malgo.FormatF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

func floatToS16(v float64) int16 {
	s := math.Round(v * 32767)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}
