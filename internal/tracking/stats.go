package tracking

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Summary aggregates decode events matching a filter
type Summary struct {
	Total         int
	Succeeded     int
	Failed        int
	TotalBytes    int64
	AvgDurationMs float64
	Sessions      int
}

// FormatStat is the decode count for one container format
type FormatStat struct {
	Format string
	Count  int
	Failed int
	Bytes  int64
}

// Failure is one failed decode
type Failure struct {
	Timestamp time.Time
	SlotName  string
	Source    string
	Error     string
}

func whereSQL(clause string) string {
	if clause == "" {
		return ""
	}
	return " WHERE " + clause
}

// GetSummary returns totals for the events matching filter
func GetSummary(db *sql.DB, filter QueryFilter) (*Summary, error) {
	where, args := filter.BuildWhereClause(time.Now())

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(success), 0),
			COALESCE(SUM(CASE WHEN success = 1 THEN bytes ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN success = 1 THEN duration_ms END), 0),
			COUNT(DISTINCT session_id)
		FROM decode_events` + whereSQL(where)

	var s Summary
	err := db.QueryRow(query, args...).Scan(&s.Total, &s.Succeeded, &s.TotalBytes, &s.AvgDurationMs, &s.Sessions)
	if err != nil {
		slog.Error("summary query failed", "error", err)
		return nil, fmt.Errorf("failed to query decode summary: %w", err)
	}
	s.Failed = s.Total - s.Succeeded

	slog.Debug("summary query completed", "total", s.Total, "failed", s.Failed)
	return &s, nil
}

// GetFormatStats groups matching events by format, most frequent first
func GetFormatStats(db *sql.DB, filter QueryFilter) ([]FormatStat, error) {
	where, args := filter.BuildWhereClause(time.Now())

	query := `
		SELECT
			format,
			COUNT(*) AS n,
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(bytes), 0)
		FROM decode_events` + whereSQL(where) + `
		GROUP BY format
		ORDER BY n DESC, format`

	rows, err := db.Query(query, args...)
	if err != nil {
		slog.Error("format stats query failed", "error", err)
		return nil, fmt.Errorf("failed to query format stats: %w", err)
	}
	defer rows.Close()

	var stats []FormatStat
	for rows.Next() {
		var fs FormatStat
		if err := rows.Scan(&fs.Format, &fs.Count, &fs.Failed, &fs.Bytes); err != nil {
			return nil, fmt.Errorf("failed to scan format stats: %w", err)
		}
		stats = append(stats, fs)
	}
	return stats, rows.Err()
}

// GetFailures lists failed decodes, newest first
func GetFailures(db *sql.DB, filter QueryFilter) ([]Failure, error) {
	filter.FailedOnly = true
	where, args := filter.BuildWhereClause(time.Now())

	query := `
		SELECT timestamp, slot_name, source, COALESCE(error, '')
		FROM decode_events` + whereSQL(where) + `
		ORDER BY timestamp DESC, id DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		slog.Error("failure query failed", "error", err)
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var ts int64
		if err := rows.Scan(&ts, &f.SlotName, &f.Source, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Timestamp = time.Unix(ts, 0)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
