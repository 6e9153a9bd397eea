// Package errs defines the error kinds shared by the note-taking controllers.
//
// Every failure that reaches a controller boundary is one of these kinds. The
// controllers turn them into notices; nothing here is meant to travel further up.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrCapabilityUnavailable = errors.New("dictation unavailable")
	ErrEngineBusy            = errors.New("dictation engine busy")
	ErrPermissionDenied      = errors.New("microphone permission denied")
	ErrNoSpeech              = errors.New("no speech detected")
	ErrAudioCapture          = errors.New("audio capture failed")
	ErrEngine                = errors.New("speech recognition error")
	ErrStore                 = errors.New("note store failure")
	ErrEnrichment            = errors.New("enrichment failed")
)

// Error is a classified failure. Msg is what the user sees; Err is the cause, if any.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation reports input that must never reach a network boundary.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable reports that no dictation engine exists on this host.
func Unavailable(msg string) error {
	return &Error{Kind: ErrCapabilityUnavailable, Msg: msg}
}

// Store wraps a persistence failure. The message is the backend's, verbatim.
func Store(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrStore {
		return err
	}
	return &Error{Kind: ErrStore, Err: err}
}

// Enrichment wraps a text-generation failure.
func Enrichment(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrEnrichment {
		return err
	}
	return &Error{Kind: ErrEnrichment, Err: err}
}

// Wrap classifies err under kind, keeping err as the cause.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err is of the given kind. Shorthand for errors.Is.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
