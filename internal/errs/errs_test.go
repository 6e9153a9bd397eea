package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndCauseBothMatch(t *testing.T) {
	cause := errors.New("disk full")
	err := Store(cause)

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "disk full", Message(err), "store messages pass through verbatim")

	wrapped := fmt.Errorf("save note: %w", err)
	assert.True(t, Is(wrapped, ErrStore))
}

func TestStoreAndEnrichmentDoNotDoubleWrap(t *testing.T) {
	once := Store(errors.New("x"))
	assert.Same(t, once, Store(once))

	e := Enrichment(errors.New("quota"))
	assert.Same(t, e, Enrichment(e))
}

func TestNilPassesThrough(t *testing.T) {
	assert.NoError(t, Store(nil))
	assert.NoError(t, Enrichment(nil))
	assert.NoError(t, Wrap(ErrEngine, nil))
	assert.Empty(t, Message(nil))
}

func TestValidationMessage(t *testing.T) {
	err := Validation("title %s", "is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "title is required", err.Error())
}

func TestBareKindMessage(t *testing.T) {
	err := &Error{Kind: ErrNoSpeech}
	assert.Equal(t, "no speech detected", Message(err))
	assert.False(t, Is(err, ErrEngine))
}
