package sfx

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
)

// voice is the playback cursor of one slot. gen advances whenever a
// control command changes the voice, so a pull that raced with the command
// can tell its snapshot is stale.
type voice struct {
	effect   *Effect
	playing  bool
	position int
	gen      uint64
}

// VoiceStatus is a point-in-time view of one slot.
type VoiceStatus struct {
	Slot     int
	Loaded   bool
	Source   string
	State    State
	Looping  bool
	Playing  bool
	Position int
	Length   int
}

// Mixer sums every playing effect into the fixed output stream. It is an
// io.Reader pulled by the output device.
//
// Control commands lock mu only long enough to edit a voice. A pull copies
// the voices under mu, mixes without holding it, then writes the advanced
// cursors back for voices nobody touched in between.
type Mixer struct {
	partition Partition
	maxPull   int

	mu     sync.Mutex
	voices []voice

	// pullMu serializes pulls so the snapshot buffer can be reused; commands
	// never take it.
	pullMu   sync.Mutex
	snapshot []voice

	paused atomic.Bool
	volume atomic.Uint32
}

// NewMixer creates a Mixer with one voice per slot of partition. maxPull is
// the largest number of bytes a single Read produces, normally one tick of
// output.
func NewMixer(partition Partition, maxPull int) (*Mixer, error) {
	if err := partition.Validate(); err != nil {
		return nil, err
	}
	maxPull &^= 1
	if maxPull < 2 {
		maxPull = 2
	}

	m := &Mixer{
		partition: partition,
		maxPull:   maxPull,
		voices:    make([]voice, partition.SlotCount),
		snapshot:  make([]voice, partition.SlotCount),
	}
	m.volume.Store(math.Float32bits(1))

	slog.Debug("mixer created",
		"slots", partition.SlotCount,
		"one_shot_count", partition.OneShotCount,
		"max_pull", maxPull)
	return m, nil
}

// Partition returns the slot partition
func (m *Mixer) Partition() Partition {
	return m.partition
}

// MaxPull returns the per-Read byte cap
func (m *Mixer) MaxPull() int {
	return m.maxPull
}

// Read mixes the next block into p. At most MaxPull bytes are produced and
// only whole samples, except that a one-byte p gets a single zero byte.
// Read never fails and never blocks on anything but a concurrent Read.
func (m *Mixer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := min(len(p), m.maxPull) &^ 1
	if n == 0 {
		p[0] = 0
		return 1, nil
	}
	out := p[:n]
	clear(out)

	if m.paused.Load() {
		return n, nil
	}

	m.pullMu.Lock()
	defer m.pullMu.Unlock()

	m.mu.Lock()
	snap := m.snapshot
	copy(snap, m.voices)
	m.mu.Unlock()

	mixed := false
	finished := -1
	for i := range snap {
		v := &snap[i]
		if v.effect == nil || !v.playing {
			continue
		}
		samples := v.effect.Samples()
		if len(samples) == 0 {
			continue
		}
		if !mixVoice(out, v, samples, v.effect.Repeating()) {
			finished = i
		}
		mixed = true
	}

	if mixed {
		if vol := math.Float32frombits(m.volume.Load()); vol != 1 {
			scaleVolume(out, vol)
		}
	}

	m.mu.Lock()
	for i := range snap {
		cur := &m.voices[i]
		if cur.gen == snap[i].gen && cur.effect == snap[i].effect {
			cur.playing = snap[i].playing
			cur.position = snap[i].position
		}
	}
	m.mu.Unlock()

	if finished >= 0 {
		slog.Debug("one-shot effect finished", "slot", finished)
	}
	return n, nil
}

// Fill reads until p is full. Device callbacks that must hand back a
// complete buffer use it.
func (m *Mixer) Fill(p []byte) {
	for filled := 0; filled < len(p); {
		n, _ := m.Read(p[filled:])
		filled += n
	}
}

// mixVoice adds the voice's next len(out) bytes into out and advances its
// cursor. It returns false when a one-shot ran out and stopped.
func mixVoice(out []byte, v *voice, samples []byte, repeating bool) bool {
	length := len(samples)
	pos := v.position
	if pos < 0 || pos >= length {
		pos = 0
	}
	req := len(out)

	avail := length - pos
	if avail > req {
		mixInto(out, samples[pos:pos+req])
		v.position = pos + req
		return true
	}

	mixInto(out, samples[pos:])
	if !repeating {
		v.playing = false
		v.position = 0
		return false
	}

	off := avail
	for req-off >= length {
		mixInto(out[off:], samples)
		off += length
	}
	rest := req - off
	mixInto(out[off:], samples[:rest])
	v.position = rest
	return true
}

// mixInto adds src into dst sample by sample with saturation. An overflow
// clamps toward the sign of the source sample.
func mixInto(dst, src []byte) {
	n := min(len(dst), len(src)) &^ 1
	for i := 0; i < n; i += 2 {
		s := int16(binary.LittleEndian.Uint16(src[i:]))
		d := int16(binary.LittleEndian.Uint16(dst[i:]))
		sum := d + s
		switch {
		case s > 0 && sum < d:
			sum = math.MaxInt16
		case s < 0 && sum > d:
			sum = math.MinInt16
		}
		binary.LittleEndian.PutUint16(dst[i:], uint16(sum))
	}
}

func scaleVolume(buf []byte, vol float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		s := float32(int16(binary.LittleEndian.Uint16(buf[i:]))) * vol
		switch {
		case s > math.MaxInt16:
			s = math.MaxInt16
		case s < math.MinInt16:
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(buf[i:], uint16(int16(s)))
	}
}

// SetPaused freezes or resumes every voice from the next pull on
func (m *Mixer) SetPaused(paused bool) {
	m.paused.Store(paused)
}

// Paused reports whether the mixer is paused
func (m *Mixer) Paused() bool {
	return m.paused.Load()
}

// SetVolume sets the master gain applied after mixing. Callers validate the
// range.
func (m *Mixer) SetVolume(v float32) {
	m.volume.Store(math.Float32bits(v))
}

// Volume returns the master gain
func (m *Mixer) Volume() float32 {
	return math.Float32frombits(m.volume.Load())
}

// setEffect installs e in slot with a fresh cursor. A nil e empties the slot.
func (m *Mixer) setEffect(slot int, e *Effect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &m.voices[slot]
	v.effect = e
	v.playing = false
	v.position = 0
	v.gen++
}

// holds reports whether slot still holds e
func (m *Mixer) holds(slot int, e *Effect) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voices[slot].effect == e
}

// startLocked must be called with mu held. A one-shot restarts from the top; a
// loop already playing is left alone.
func (m *Mixer) startLocked(slot int) bool {
	v := &m.voices[slot]
	if v.effect == nil || !v.effect.Ready() {
		return false
	}
	if v.effect.Repeating() {
		if v.playing {
			return true
		}
		v.playing = true
	} else {
		v.playing = true
		v.position = 0
	}
	v.gen++
	return true
}

// stopLocked must be called with mu held. A loop also rewinds; a one-shot
// keeps its cursor until the next start.
func (m *Mixer) stopLocked(slot int) {
	v := &m.voices[slot]
	if v.effect == nil {
		return
	}
	rewind := v.effect.Repeating() && v.position != 0
	if !v.playing && !rewind {
		return
	}
	v.playing = false
	if v.effect.Repeating() {
		v.position = 0
	}
	v.gen++
}

// Start starts one slot. It reports false if the slot has nothing ready.
func (m *Mixer) Start(slot int) bool {
	if !m.partition.Contains(slot) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(slot)
}

// Stop stops one slot
func (m *Mixer) Stop(slot int) {
	if !m.partition.Contains(slot) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(slot)
}

// ApplyMask starts every slot whose bit is set and stops every looping slot
// whose bit is clear. One-shots are never stopped by a clear bit. Bits at or
// above the slot count are ignored. The whole mask is applied between two
// pulls.
func (m *Mixer) ApplyMask(mask uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for slot := 0; slot < m.partition.SlotCount; slot++ {
		if mask&(1<<uint(slot)) != 0 {
			m.startLocked(slot)
		} else if m.partition.IsLooping(slot) {
			m.stopLocked(slot)
		}
	}
}

// StopAll stops every slot and rewinds it to the start
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.voices {
		v := &m.voices[i]
		if !v.playing && v.position == 0 {
			continue
		}
		v.playing = false
		v.position = 0
		v.gen++
	}
}

// Status returns a snapshot of one slot
func (m *Mixer) Status(slot int) VoiceStatus {
	m.mu.Lock()
	v := m.voices[slot]
	m.mu.Unlock()

	st := VoiceStatus{
		Slot:     slot,
		Looping:  m.partition.IsLooping(slot),
		Playing:  v.playing,
		Position: v.position,
	}
	if v.effect != nil {
		st.Loaded = true
		st.Source = v.effect.Source()
		st.State = v.effect.State()
		st.Length = v.effect.Len()
	}
	return st
}
