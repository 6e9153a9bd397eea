// Package notes defines the meeting note entity, the store contract, and the
// live collection sync that keeps a user's notes current.
package notes

import (
	"strings"
	"time"
)

// DateLayout is the persisted form of Note.Date.
const DateLayout = "2006-01-02"

// Note is a persisted meeting note.
type Note struct {
	ID         string    `json:"id" firestore:"-"`
	UserID     string    `json:"userId" firestore:"userId"`
	Title      string    `json:"title" firestore:"title"`
	Attendees  string    `json:"attendees" firestore:"attendees"`
	Date       string    `json:"date" firestore:"date"`
	Transcript string    `json:"transcript" firestore:"transcript"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Fields is the client-writable part of a note. CreatedAt and UpdatedAt are
// owned by the store; UserID is only written on create.
type Fields struct {
	UserID     string
	Title      string
	Attendees  string
	Date       string
	Transcript string
}

// Fields returns the writable part of n.
func (n Note) Fields() Fields {
	return Fields{
		UserID:     n.UserID,
		Title:      n.Title,
		Attendees:  n.Attendees,
		Date:       n.Date,
		Transcript: n.Transcript,
	}
}

// Trimmed returns f with title, attendees and transcript trimmed.
func (f Fields) Trimmed() Fields {
	f.Title = strings.TrimSpace(f.Title)
	f.Attendees = strings.TrimSpace(f.Attendees)
	f.Transcript = strings.TrimSpace(f.Transcript)
	return f
}

// Today formats t as a note date.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}
