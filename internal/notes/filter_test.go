package notes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwulff/meetingnote/internal/notes"
)

func TestFilterBlankKeepsOrder(t *testing.T) {
	ns := threeNotes()
	assert.Equal(t, ns, notes.Filter(ns, "  "))
}

func TestFilterFuzzyTitle(t *testing.T) {
	ns := []notes.Note{
		{ID: "a", Title: "Budget review"},
		{ID: "b", Title: "Weekly standup"},
		{ID: "c", Title: "Board meeting"},
	}

	got := notes.Filter(ns, "stdup")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "b", got[0].ID)
	}
	assert.Empty(t, notes.Filter(ns, "zzz"))
}
