package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gen2brain/malgo"
)

func TestConvertToOutputRejectsBadInput(t *testing.T) {
	out := DefaultOutputFormat()

	tests := []struct {
		name string
		data *AudioData
		want error
	}{
		{"nil data", nil, ErrInvalidData},
		{"no samples", &AudioData{Channels: 1, SampleRate: 22050, Format: malgo.FormatS16}, ErrInvalidData},
		{"zero channels", &AudioData{Samples: s16(1), SampleRate: 22050, Format: malgo.FormatS16}, ErrInvalidData},
		{"unknown format", &AudioData{Samples: s16(1), Channels: 1, SampleRate: 22050, Format: malgo.FormatUnknown}, ErrUnsupportedFormat},
		{"single odd byte", &AudioData{Samples: []byte{1}, Channels: 1, SampleRate: 22050, Format: malgo.FormatS16}, ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ConvertToOutput(tt.data, out); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConvertToOutputPassThrough(t *testing.T) {
	samples := s16(10, -20, 30)
	data := &AudioData{Samples: append(samples, 0x7f), Channels: 1, SampleRate: 22050, Format: malgo.FormatS16}

	got, err := ConvertToOutput(data, DefaultOutputFormat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected trailing odd byte dropped, got %d bytes", len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("byte %d = %d, expected %d", i, got[i], samples[i])
		}
	}

	got[0] = 0xff
	if data.Samples[0] == 0xff {
		t.Error("expected conversion to copy, not alias, the source buffer")
	}
}

func TestConvertToOutputDownmixesStereo(t *testing.T) {
	data := &AudioData{
		Samples:    s16(1000, 3000, -2000, -4000),
		Channels:   2,
		SampleRate: 22050,
		Format:     malgo.FormatS16,
	}

	got, err := ConvertToOutput(data, DefaultOutputFormat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	samples := readS16(got)
	if len(samples) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(samples))
	}
	// The float round trip may be off by one.
	expect := []int16{2000, -3000}
	for i := range expect {
		if d := int(samples[i]) - int(expect[i]); d < -1 || d > 1 {
			t.Errorf("sample %d = %d, expected about %d", i, samples[i], expect[i])
		}
	}
}

func TestConvertToOutputWidensFormats(t *testing.T) {
	f32 := make([]byte, 0, 8)
	f32 = binary.LittleEndian.AppendUint32(f32, math.Float32bits(0.5))
	f32 = binary.LittleEndian.AppendUint32(f32, math.Float32bits(-2))

	tests := []struct {
		name   string
		data   *AudioData
		expect []int16
	}{
		{"u8 midpoint and extremes", &AudioData{Samples: []byte{128, 0, 255}, Channels: 1, SampleRate: 22050, Format: malgo.FormatU8}, []int16{0, -32767, 32511}},
		{"s24", &AudioData{Samples: []byte{0, 0, 0x40, 0, 0, 0xc0}, Channels: 1, SampleRate: 22050, Format: malgo.FormatS24}, []int16{16384, -16384}},
		{"f32 clamps", &AudioData{Samples: f32, Channels: 1, SampleRate: 22050, Format: malgo.FormatF32}, []int16{16384, math.MinInt16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToOutput(tt.data, DefaultOutputFormat())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			samples := readS16(got)
			if len(samples) != len(tt.expect) {
				t.Fatalf("expected %d samples, got %d", len(tt.expect), len(samples))
			}
			for i := range tt.expect {
				if d := int(samples[i]) - int(tt.expect[i]); d < -1 || d > 1 {
					t.Errorf("sample %d = %d, expected about %d", i, samples[i], tt.expect[i])
				}
			}
		})
	}
}

func TestConvertToOutputResamples(t *testing.T) {
	frames := 4410
	pcm := make([]int16, frames)
	for i := range pcm {
		pcm[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	data := &AudioData{Samples: s16(pcm...), Channels: 1, SampleRate: 44100, Format: malgo.FormatS16}

	got, err := ConvertToOutput(data, DefaultOutputFormat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got)%2 != 0 {
		t.Fatalf("expected whole samples, got %d bytes", len(got))
	}

	samples := len(got) / 2
	if samples < 2190 || samples > 2215 {
		t.Errorf("expected about 2205 samples after halving the rate, got %d", samples)
	}
}

func TestFloatToS16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{1.5, math.MaxInt16},
		{-1.5, math.MinInt16},
	}
	for _, tt := range tests {
		if got := floatToS16(tt.in); got != tt.want {
			t.Errorf("floatToS16(%v) = %d, expected %d", tt.in, got, tt.want)
		}
	}
}
