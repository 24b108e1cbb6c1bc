package audio

import (
	"context"
	"encoding/binary"
	"io"
	"strings"

	"github.com/gen2brain/malgo"
)

// MockDecoder for testing
type MockDecoder struct {
	formatName string
	extensions []string
	shouldFail bool
	returnData *AudioData
}

func (m *MockDecoder) Decode(ctx context.Context, reader io.Reader) (*AudioData, error) {
	if m.shouldFail {
		return nil, ErrInvalidData
	}
	if m.returnData != nil {
		return m.returnData, nil
	}
	return &AudioData{
		Samples:    []byte{0x00, 0x01, 0x02, 0x03},
		Channels:   1,
		SampleRate: DefaultSampleRate,
		Format:     malgo.FormatS16,
	}, nil
}

func (m *MockDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range m.extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func (m *MockDecoder) FormatName() string {
	return m.formatName
}

// buildWAV returns a canonical PCM WAV file holding the given 16-bit samples.
func buildWAV(sampleRate uint32, channels uint16, samples []int16) []byte {
	dataSize := uint32(len(samples) * 2)
	blockAlign := channels * 2

	wav := make([]byte, 0, 44+dataSize)
	wav = append(wav, "RIFF"...)
	wav = binary.LittleEndian.AppendUint32(wav, 36+dataSize)
	wav = append(wav, "WAVE"...)

	wav = append(wav, "fmt "...)
	wav = binary.LittleEndian.AppendUint32(wav, 16)
	wav = binary.LittleEndian.AppendUint16(wav, 1) // PCM
	wav = binary.LittleEndian.AppendUint16(wav, channels)
	wav = binary.LittleEndian.AppendUint32(wav, sampleRate)
	wav = binary.LittleEndian.AppendUint32(wav, sampleRate*uint32(blockAlign))
	wav = binary.LittleEndian.AppendUint16(wav, blockAlign)
	wav = binary.LittleEndian.AppendUint16(wav, 16)

	wav = append(wav, "data"...)
	wav = binary.LittleEndian.AppendUint32(wav, dataSize)
	for _, s := range samples {
		wav = binary.LittleEndian.AppendUint16(wav, uint16(s))
	}
	return wav
}

// s16 encodes samples as little-endian bytes.
func s16(samples ...int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

// readS16 decodes little-endian bytes into samples.
func readS16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
