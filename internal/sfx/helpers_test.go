package sfx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"

	"github.com/tileworld/sfxmix/internal/audio"
)

// readyEffect returns an effect that has already been decoded into pcm
func readyEffect(t *testing.T, slot int, repeating bool, pcm []byte) *Effect {
	t.Helper()
	e := newEffect(slot, "test", repeating)
	require.True(t, e.publish(pcm))
	return e
}

// newTestMixer returns a mixer with 8 one-shot slots, 16 slots in total and
// a 4-byte tick.
func newTestMixer(t *testing.T) *Mixer {
	t.Helper()
	m, err := NewMixer(Partition{OneShotCount: 8, SlotCount: 16}, 4)
	require.NoError(t, err)
	return m
}

func pull(t *testing.T, m *Mixer, n int) []byte {
	t.Helper()
	p := make([]byte, n)
	got, err := m.Read(p)
	require.NoError(t, err)
	return p[:got]
}

func pcm16(samples ...int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

func samples16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

// wavFile encodes raw little-endian mono PCM as a 22050 Hz 16-bit WAV file
func wavFile(t *testing.T, pcm []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	values := samples16(pcm)
	w := wav.NewWriter(&out, uint32(len(values)), 1, audio.DefaultSampleRate, 16)
	samples := make([]wav.Sample, len(values))
	for i, v := range values {
		samples[i].Values[0] = int(v)
	}
	require.NoError(t, w.WriteSamples(samples))
	return out.Bytes()
}

// stubBackend records lifecycle calls
type stubBackend struct {
	mu       sync.Mutex
	source   io.Reader
	startErr error
	starts   int
	stops    int
	closed   bool
	running  bool
}

func (b *stubBackend) Attach(source io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.source = source
	return nil
}

func (b *stubBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.startErr != nil {
		return b.startErr
	}
	b.running = true
	return nil
}

func (b *stubBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.running = false
	return nil
}

func (b *stubBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.running = false
	return nil
}

func (b *stubBackend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *stubBackend) Name() string {
	return "stub"
}

var errNoDevice = errors.New("no device")

// recordingObserver collects decode events
type recordingObserver struct {
	mu     sync.Mutex
	events []DecodeEvent
}

func (o *recordingObserver) DecodeFinished(event DecodeEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Events() []DecodeEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]DecodeEvent(nil), o.events...)
}
