// Package db is the local SQLite note store.
package db

import (
	"database/sql"
	"time"

	"github.com/jwulff/meetingnote/internal/notes"
)

const schema = `
	CREATE TABLE IF NOT EXISTS meeting_notes (
		id TEXT PRIMARY KEY,
		userId TEXT NOT NULL,
		title TEXT NOT NULL,
		attendees TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		transcript TEXT NOT NULL DEFAULT '',
		createdAt REAL NOT NULL,
		updatedAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meeting_notes_user
		ON meeting_notes(userId, createdAt DESC);
`

const noteColumns = `id, userId, title, attendees, date, transcript, createdAt, updatedAt`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (notes.Note, error) {
	var n notes.Note
	var createdAt, updatedAt float64
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Attendees, &n.Date,
		&n.Transcript, &createdAt, &updatedAt); err != nil {
		return notes.Note{}, err
	}
	n.CreatedAt = timeFromUnix(createdAt)
	n.UpdatedAt = timeFromUnix(updatedAt)
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]notes.Note, error) {
	defer rows.Close()
	var out []notes.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
