package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/fs"
)

var errNoDevice = errors.New("no device")

// fakeBackendFactory hands out null backends and records what was asked for
type fakeBackendFactory struct {
	mu        sync.Mutex
	requested []string
	opts      []audio.BackendOptions
	err       error
}

func (f *fakeBackendFactory) CreateBackend(backendType string, opts audio.BackendOptions) (audio.OutputBackend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, backendType)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return audio.NewNullBackend(), nil
}

func (f *fakeBackendFactory) GetSupportedBackends() []string {
	return []string{audio.BackendAuto, audio.BackendNull}
}

func (f *fakeBackendFactory) IsValidBackendType(backendType string) bool {
	return backendType == audio.BackendAuto || backendType == audio.BackendNull
}

type fakeTerminal struct {
	terminal bool
}

func (f fakeTerminal) IsTerminal(int) bool {
	return f.terminal
}

type testEnv struct {
	cli     *CLI
	fs      afero.Fs
	backend *fakeBackendFactory
}

// newTestEnv builds a CLI on an in-memory filesystem. Tracking is off
// unless a test's config turns it on.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("SFXMIX_TRACKING", "false")

	memory := fs.NewMemoryFactory()
	backend := &fakeBackendFactory{}
	return &testEnv{
		cli:     NewCLIWithDependencies(memory, backend, fakeTerminal{}),
		fs:      memory.Production(),
		backend: backend,
	}
}

func (e *testEnv) writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, path, data, 0644))
}

// run executes the CLI and returns its exit code and outputs
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := e.cli.Run(append([]string{"sfxmix"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// tinyTickConfig makes one tick two samples long
const tinyTickConfig = `{"ticks_per_second": 11025, "sound_dir": "/sounds", "log_level": "error"}`

func pcm16(samples ...int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

func wavBytes(t *testing.T, samples ...int16) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encodeWAV(&buf, pcm16(samples...), audio.DefaultSampleRate))
	return buf.Bytes()
}

// readWAV decodes a WAV file from the test filesystem into samples
func readWAV(t *testing.T, fsys afero.Fs, path string) []int16 {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)

	decoded, format, err := audio.NewDefaultRegistry().DecodeFile(context.Background(), path, bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "WAV", format)
	require.Equal(t, uint32(1), decoded.Channels)
	require.Equal(t, uint32(audio.DefaultSampleRate), decoded.SampleRate)

	out := make([]int16, len(decoded.Samples)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(decoded.Samples[2*i:]))
	}
	return out
}
