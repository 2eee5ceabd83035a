package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"report-desk/workflow"
)

var (
	// ErrNotFound: unbekannter Status oder fehlender Artikel.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized: Rollen- oder Besitzerprüfung fehlgeschlagen.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition: Aktion unbekannt oder für den Artikel nicht zulässig.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAlreadyApproved: Approved ist ein Endzustand.
	ErrAlreadyApproved = fmt.Errorf("%w: article is already approved", ErrInvalidTransition)
	// ErrNotEvaluated: Executive-Freigabe vor der Administrator-Entscheidung.
	ErrNotEvaluated = fmt.Errorf("%w: %w", ErrInvalidTransition, workflow.ErrNotEvaluated)
	// ErrInvalidFileType: gespeicherte Datei ist kein erlaubtes Bild.
	ErrInvalidFileType = fmt.Errorf("%w: invalid file type", ErrUnauthorized)
)

// ValidationError sammelt Fehlermeldungen pro Feld für das absendende Formular.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
