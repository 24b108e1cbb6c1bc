package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/sfx"
	"github.com/tileworld/sfxmix/internal/soundset"
	"github.com/tileworld/sfxmix/internal/tracking"
)

// twoSampleTick makes every pull of four bytes exactly one tick
var twoSampleTick = audio.OutputFormat{SampleRate: audio.DefaultSampleRate, TicksPerSecond: audio.DefaultSampleRate / 2}

func pcm16(samples ...int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

func wavFile(t *testing.T, samples ...int16) []byte {
	t.Helper()
	var out bytes.Buffer
	w := wav.NewWriter(&out, uint32(len(samples)), 1, audio.DefaultSampleRate, 16)
	ws := make([]wav.Sample, len(samples))
	for i, v := range samples {
		ws[i].Values[0] = int(v)
	}
	require.NoError(t, w.WriteSamples(ws))
	return out.Bytes()
}

type pipeline struct {
	manager  *sfx.Manager
	recorder *tracking.Recorder
	db       *sql.DB
}

// newPipeline wires a sound directory, a tracked manager and a null backend
// the same way the play command does
func newPipeline(t *testing.T, files map[string][]byte) *pipeline {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("/sounds", name), data, 0o644))
	}

	db, err := tracking.NewDatabase(filepath.Join(t.TempDir(), "decodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	recorder := tracking.NewRecorderWithSession(db, "pipeline-session")
	manager, err := sfx.NewManager(audio.NewNullBackend(), sfx.Options{
		Format:   twoSampleTick,
		Fs:       fs,
		Observer: recorder,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	resolver := soundset.NewResolver(afero.NewReadOnlyFs(fs), soundset.NewDirectoryMapper("pipeline", "/sounds"))
	found, _ := resolver.ResolveAll(manager.Partition().SlotCount)
	for _, a := range found {
		require.NoError(t, manager.LoadEffect(a.Slot, a.Path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, manager.WaitDecoded(ctx))

	return &pipeline{manager: manager, recorder: recorder, db: db}
}

func (p *pipeline) pull(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, twoSampleTick.BytesPerTick())
	n, err := p.manager.Mixer().Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestSoundDirectoryToMixedOutput(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"chip_loses.wav":  wavFile(t, 100, 200),
		"firewalking.wav": wavFile(t, 1, 2, 3),
	})
	p.manager.EnableAudio(true)

	chipLoses, err := sfx.SlotByName("chip_loses")
	require.NoError(t, err)
	fireWalking, err := sfx.SlotByName("firewalking")
	require.NoError(t, err)

	p.manager.SetEffects(1<<chipLoses | 1<<fireWalking)

	assert.Equal(t, pcm16(101, 202), p.pull(t), "one-shot and loop mix")
	assert.Equal(t, pcm16(3, 1), p.pull(t), "one-shot finished, loop wraps")
	assert.Equal(t, pcm16(2, 3), p.pull(t))

	p.manager.SetEffects(0)
	assert.Equal(t, pcm16(0, 0), p.pull(t), "clearing the loop bit silences it")
}

func TestStopAllSilencesEverySlot(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"chip_wins.wav":   wavFile(t, 5, 5, 5, 5, 5, 5),
		"icewalking.wav":  wavFile(t, 7, 7),
		"firewalking.wav": wavFile(t, 9),
	})
	p.manager.EnableAudio(true)
	p.manager.SetEffects(1<<sfx.ChipWins | 1<<sfx.IceWalking | 1<<sfx.FireWalking)
	assert.Equal(t, pcm16(21, 21), p.pull(t))

	p.manager.StopAll()
	for i := 0; i < 3; i++ {
		assert.Equal(t, pcm16(0, 0), p.pull(t))
	}
}

func TestDecodeOutcomesAreTracked(t *testing.T) {
	p := newPipeline(t, map[string][]byte{
		"chip_loses.wav":    wavFile(t, 1, 2, 3, 4),
		"door_opened.wav":   wavFile(t, 1, 2),
		"bomb_explodes.wav": []byte("definitely not a wave file"),
	})

	summary, err := tracking.GetSummary(p.db, tracking.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int64(len(pcm16(1, 2, 3, 4, 1, 2))), summary.TotalBytes)
	assert.Equal(t, 1, summary.Sessions)

	failures, err := tracking.GetFailures(p.db, tracking.QueryFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "bomb_explodes", failures[0].SlotName)
	assert.Equal(t, "/sounds/bomb_explodes.wav", failures[0].Source)

	bomb := p.manager.Status()[sfx.BombExplodes]
	assert.True(t, bomb.Loaded)
	assert.Equal(t, sfx.StateFailed, bomb.State)

	// a failed effect never plays
	p.manager.EnableAudio(true)
	require.NoError(t, p.manager.StartEffect(sfx.BombExplodes))
	assert.Equal(t, pcm16(0, 0), p.pull(t))
}
