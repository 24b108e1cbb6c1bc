package sfx

import (
	"sync/atomic"
)

// State is the decode state of an Effect.
type State int32

const (
	StateDecoding State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDecoding:
		return "decoding"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Effect is one decoded sound effect. Its buffer is published exactly once
// and never written again; the state word is stored after the buffer so a
// reader that observes StateReady also observes the samples.
type Effect struct {
	slot      int
	source    string
	repeating bool

	samples atomic.Pointer[[]byte]
	state   atomic.Int32
}

func newEffect(slot int, source string, repeating bool) *Effect {
	return &Effect{slot: slot, source: source, repeating: repeating}
}

// Slot returns the slot index the effect was loaded into
func (e *Effect) Slot() int {
	return e.slot
}

// Source returns the source the effect was decoded from
func (e *Effect) Source() string {
	return e.source
}

// Repeating reports whether the effect loops
func (e *Effect) Repeating() bool {
	return e.repeating
}

// State returns the current decode state
func (e *Effect) State() State {
	return State(e.state.Load())
}

// Ready reports whether decoding completed successfully
func (e *Effect) Ready() bool {
	return e.State() == StateReady
}

// Samples returns the decoded buffer, or nil before the effect is ready.
// The returned slice must not be modified.
func (e *Effect) Samples() []byte {
	if !e.Ready() {
		return nil
	}
	return *e.samples.Load()
}

// Len returns the byte length of the decoded buffer
func (e *Effect) Len() int {
	return len(e.Samples())
}

// publish stores the buffer and marks the effect ready. Only whole samples
// are kept; an empty buffer fails the effect. It returns false if the effect
// already left StateDecoding or the buffer was empty.
func (e *Effect) publish(pcm []byte) bool {
	pcm = pcm[:len(pcm)&^1]
	if len(pcm) == 0 {
		e.fail()
		return false
	}
	if e.State() != StateDecoding {
		return false
	}
	e.samples.Store(&pcm)
	return e.state.CompareAndSwap(int32(StateDecoding), int32(StateReady))
}

// fail marks the effect permanently silent
func (e *Effect) fail() bool {
	return e.state.CompareAndSwap(int32(StateDecoding), int32(StateFailed))
}
