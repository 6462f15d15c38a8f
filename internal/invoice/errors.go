package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is the only engine-fatal condition: the request is
	// structurally unusable (for example the invoice is absent).
	ErrInvalidRequest = errors.New("invoice: invalid request")
	// ErrMissingData marks a comparison field absent on one side.
	ErrMissingData = errors.New("invoice: missing data")
	// ErrMalformedInput marks an amount or date that failed to parse.
	ErrMalformedInput = errors.New("invoice: malformed input")
	// ErrInsufficientHistory marks checks that need more historical records.
	ErrInsufficientHistory = errors.New("invoice: insufficient history")
)

// NoteCode classifies a non-fatal diagnostic.
type NoteCode string

const (
	NoteMissingData         NoteCode = "missing_data"
	NoteMalformedInput      NoteCode = "malformed_input"
	NoteInsufficientHistory NoteCode = "insufficient_history"
	NoteLowConfidence       NoteCode = "low_confidence"
)

// Note is a diagnostic attached to a degraded sub-check.
type Note struct {
	Check  string   `json:"check"`
	Code   NoteCode `json:"code"`
	Detail string   `json:"detail"`
}

// NewNote builds a note from one of the package sentinels.
func NewNote(check string, err error) Note {
	return Note{Check: check, Code: codeFor(err), Detail: err.Error()}
}

// Notef formats a note for the given sentinel.
func Notef(check string, sentinel error, format string, args ...any) Note {
	return NewNote(check, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel))
}

func codeFor(err error) NoteCode {
	switch {
	case errors.Is(err, ErrMalformedInput):
		return NoteMalformedInput
	case errors.Is(err, ErrInsufficientHistory):
		return NoteInsufficientHistory
	default:
		return NoteMissingData
	}
}
