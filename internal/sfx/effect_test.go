package sfx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectLifecycle(t *testing.T) {
	e := newEffect(3, "door.wav", false)

	assert.Equal(t, StateDecoding, e.State())
	assert.Nil(t, e.Samples())
	assert.Equal(t, 0, e.Len())

	assert.True(t, e.publish([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, []byte{1, 2, 3, 4}, e.Samples(), "trailing half sample is dropped")

	assert.False(t, e.publish([]byte{9, 9}), "buffer is write-once")
	assert.False(t, e.fail(), "ready is terminal")
	assert.Equal(t, []byte{1, 2, 3, 4}, e.Samples())
}

func TestEffectFailure(t *testing.T) {
	e := newEffect(0, "broken.ogg", true)
	assert.True(t, e.fail())
	assert.Equal(t, StateFailed, e.State())
	assert.False(t, e.publish([]byte{1, 2}))
	assert.Nil(t, e.Samples())

	empty := newEffect(1, "empty.wav", false)
	assert.False(t, empty.publish([]byte{7}))
	assert.Equal(t, StateFailed, empty.State())
}

func TestEffectPublishIsVisibleToReaders(t *testing.T) {
	e := newEffect(0, "race.wav", true)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if s := e.Samples(); s != nil {
					assert.Equal(t, want, s)
					return
				}
			}
		}()
	}

	e.publish(append([]byte(nil), want...))
	wg.Wait()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "decoding", StateDecoding.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
