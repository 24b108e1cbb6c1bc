package tracking

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/sfx"
)

// Recorder writes every decode outcome to the database. It implements
// sfx.DecodeObserver. After the first write error it disables itself so
// tracking problems never affect playback.
type Recorder struct {
	db        *sql.DB
	sessionID string
	now       func() time.Time

	mu       sync.Mutex
	disabled bool
}

// NewRecorder creates a Recorder with a fresh session ID
func NewRecorder(db *sql.DB) *Recorder {
	return NewRecorderWithSession(db, uuid.NewString())
}

// NewRecorderWithSession creates a Recorder for an existing session
func NewRecorderWithSession(db *sql.DB, sessionID string) *Recorder {
	return &Recorder{db: db, sessionID: sessionID, now: time.Now}
}

// SessionID returns the session this recorder writes under
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// DecodeFinished records one decode event
func (r *Recorder) DecodeFinished(event sfx.DecodeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return
	}
	// abandoned decodes say nothing about the file
	if errors.Is(event.Err, sfx.ErrEffectDiscarded) || errors.Is(event.Err, context.Canceled) {
		return
	}

	success := 1
	var errText sql.NullString
	if event.Err != nil {
		success = 0
		errText = sql.NullString{String: event.Err.Error(), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO decode_events
			(timestamp, session_id, slot, slot_name, source, format, bytes, duration_ms, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.now().Unix(),
		r.sessionID,
		event.Slot,
		sfx.SlotName(event.Slot),
		event.Source,
		event.Format,
		event.Bytes,
		event.Duration.Milliseconds(),
		success,
		errText,
	)
	if err != nil {
		slog.Warn("decode tracking failed, disabling", "error", err)
		r.disabled = true
		return
	}

	slog.Debug("decode tracked",
		"session_id", r.sessionID,
		"slot", event.Slot,
		"success", success == 1,
		"audio_ms", audioMillis(event.Bytes))
}

// audioMillis converts output-format bytes to playback time
func audioMillis(bytes int) int64 {
	return int64(bytes) * 1000 / int64(audio.DefaultOutputFormat().BytesPerSecond())
}
