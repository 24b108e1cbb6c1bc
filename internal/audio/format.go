package audio

import (
	"time"

	"github.com/gen2brain/malgo"
)

// Fixed output format shared by every effect and every output device.
const (
	DefaultSampleRate     = 22050
	DefaultChannels       = 1
	DefaultTicksPerSecond = 20
	BytesPerSample        = 2
)

// OutputFormat describes the single PCM layout the mixer produces.
// Only the sample rate and tick cadence are configurable; the stream is
// always mono signed 16-bit little endian.
type OutputFormat struct {
	SampleRate     uint32
	TicksPerSecond uint32
}

// DefaultOutputFormat returns 22050 Hz mono S16 at 20 ticks per second.
func DefaultOutputFormat() OutputFormat {
	return OutputFormat{
		SampleRate:     DefaultSampleRate,
		TicksPerSecond: DefaultTicksPerSecond,
	}
}

// Channels is always 1.
func (f OutputFormat) Channels() uint32 {
	return DefaultChannels
}

// SampleFormat is always malgo.FormatS16.
func (f OutputFormat) SampleFormat() malgo.FormatType {
	return malgo.FormatS16
}

// SamplesPerTick is the number of output samples one game tick covers.
func (f OutputFormat) SamplesPerTick() int {
	if f.TicksPerSecond == 0 {
		return int(f.SampleRate)
	}
	return int(f.SampleRate / f.TicksPerSecond)
}

// BytesPerTick is SamplesPerTick expressed in bytes.
func (f OutputFormat) BytesPerTick() int {
	return f.SamplesPerTick() * BytesPerSample
}

// BytesPerSecond of the output stream.
func (f OutputFormat) BytesPerSecond() int {
	return int(f.SampleRate) * BytesPerSample
}

// TickDuration is the wall-clock length of one tick.
func (f OutputFormat) TickDuration() time.Duration {
	return time.Second / time.Duration(max(f.TicksPerSecond, 1))
}
