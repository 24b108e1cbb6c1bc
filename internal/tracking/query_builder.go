package tracking

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// QueryFilter selects decode events for the stats queries
type QueryFilter struct {
	// Time filters, in priority order: DatePreset, StartTime/EndTime, Days
	StartTime  *time.Time
	EndTime    *time.Time
	Days       int
	DatePreset string // "today", "yesterday", "week", "last-week", "month", "last-month", "all"

	Slot       *int
	Format     string
	SessionID  string
	FailedOnly bool

	Limit int // Maximum rows for list queries (0 = no limit)
}

// ApplyTimeFilter converts the time options to Unix bounds. A zero start
// means no lower bound.
func (q *QueryFilter) ApplyTimeFilter(now time.Time) (startUnix, endUnix int64) {
	endUnix = now.Unix()

	if q.DatePreset != "" {
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, endUnix
		}
		return start.Unix(), end.Unix()
	}

	if q.StartTime != nil && q.EndTime != nil {
		return q.StartTime.Unix(), q.EndTime.Unix()
	}
	if q.StartTime != nil {
		return q.StartTime.Unix(), endUnix
	}
	if q.EndTime != nil {
		return 0, q.EndTime.Unix()
	}

	if q.Days > 0 {
		return now.AddDate(0, 0, -q.Days).Unix(), endUnix
	}

	return 0, endUnix
}

func (q *QueryFilter) hasTimeFilter() bool {
	return q.StartTime != nil || q.EndTime != nil || q.Days > 0 || q.DatePreset != ""
}

// BuildWhereClause returns the SQL condition (without WHERE) and its args
func (q *QueryFilter) BuildWhereClause(now time.Time) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.hasTimeFilter() {
		startUnix, endUnix := q.ApplyTimeFilter(now)
		if startUnix > 0 {
			clauses = append(clauses, "timestamp >= ?")
			args = append(args, startUnix)
		}
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, endUnix)
	}

	if q.Slot != nil {
		clauses = append(clauses, "slot = ?")
		args = append(args, *q.Slot)
	}
	if q.Format != "" {
		clauses = append(clauses, "format = ?")
		args = append(args, strings.ToUpper(q.Format))
	}
	if q.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.FailedOnly {
		clauses = append(clauses, "success = 0")
	}

	whereClause := strings.Join(clauses, " AND ")
	slog.Debug("built where clause", "clause", whereClause, "arg_count", len(args))
	return whereClause, args
}

// ParseDatePreset converts a preset name to a time range
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case "today":
		start = beginningOfDay(now)
		end = now
	case "yesterday":
		start = beginningOfDay(now.AddDate(0, 0, -1))
		end = beginningOfDay(now)
	case "week", "this-week":
		start = beginningOfWeek(now)
		end = now
	case "last-week":
		start = beginningOfWeek(now).AddDate(0, 0, -7)
		end = beginningOfWeek(now)
	case "month", "this-month":
		start = beginningOfMonth(now)
		end = now
	case "last-month":
		start = beginningOfMonth(now).AddDate(0, -1, 0)
		end = beginningOfMonth(now)
	case "all", "all-time":
		start = time.Time{}
		end = now
	default:
		err = fmt.Errorf("unknown preset: %s", preset)
	}
	return
}

// ParseNaturalDate parses phrases like "3 days ago" or "last monday"
func ParseNaturalDate(naturalDate string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(naturalDate, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		slog.Warn("failed to parse natural language date", "input", naturalDate, "error", err)
		return time.Time{}, fmt.Errorf("failed to parse natural date '%s': %w", naturalDate, err)
	}
	return result, nil
}

// ParseSince turns a --since argument into a filter. It accepts a preset,
// a Go duration ("36h") or a natural-language date.
func ParseSince(since string, now time.Time) (QueryFilter, error) {
	since = strings.TrimSpace(since)
	if since == "" {
		return QueryFilter{}, nil
	}

	if _, _, err := ParseDatePreset(since, now); err == nil {
		return QueryFilter{DatePreset: since}, nil
	}

	if d, err := time.ParseDuration(since); err == nil && d > 0 {
		start := now.Add(-d)
		return QueryFilter{StartTime: &start}, nil
	}

	start, err := ParseNaturalDate(since, now)
	if err != nil {
		return QueryFilter{}, err
	}
	if !start.Before(now) {
		return QueryFilter{}, fmt.Errorf("since %q resolves to %s, which is not in the past", since, start.Format(time.RFC3339))
	}
	return QueryFilter{StartTime: &start}, nil
}

func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns Monday 00:00 of t's week
func beginningOfWeek(t time.Time) time.Time {
	weekday := t.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -int(weekday-1))
	return beginningOfDay(monday)
}

func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
