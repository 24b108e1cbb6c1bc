package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json.lock")

	first := NewFileLock(path)
	require.NoError(t, first.Lock())

	second := NewFileLock(path)
	ok, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire the lock")

	require.NoError(t, first.Unlock())

	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}

type recordingLocker struct {
	calls   []string
	lockErr error
}

func (r *recordingLocker) Lock() error {
	r.calls = append(r.calls, "lock")
	return r.lockErr
}

func (r *recordingLocker) Unlock() error {
	r.calls = append(r.calls, "unlock")
	return nil
}

func TestWithLock(t *testing.T) {
	l := &recordingLocker{}
	err := withLock(l, func() error {
		l.calls = append(l.calls, "fn")
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"lock", "fn", "unlock"}, l.calls)

	failing := &recordingLocker{lockErr: errors.New("busy")}
	err = withLock(failing, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.EqualError(t, err, "busy")
	assert.Equal(t, []string{"lock"}, failing.calls)
}
