// Package workflow enthält die Übergangstabelle des Freigabe-Workflows.
//
// Die Tabelle ist nach Rolle und Aktion geschlüsselt, nicht nach dem aktuellen
// Status: ein Administrator, der ablehnt, setzt jeden Artikel auf Revision.
// Ausnahmen regelt BlockedSources: Approved wird nie verlassen, und ein Artikel
// in Review erreicht Approved erst nach einer Administrator-Entscheidung.
package workflow

import (
	"errors"
	"fmt"
	"slices"

	"report-desk/models"
)

// Action ist die binäre Entscheidung eines Reviewers.
type Action string

const (
	ActionApprove    Action = "approved"
	ActionDisapprove Action = "disapproved"
)

var (
	// ErrUnknownAction: Aktion ist weder approved noch disapproved.
	ErrUnknownAction = errors.New("invalid approval status")
	// ErrNoReviewerRole: der Akteur ist weder administrator noch executive.
	ErrNoReviewerRole = errors.New("actor has no reviewer role")
	// ErrNotEvaluated: Review -> Approved ohne Administrator dazwischen.
	ErrNotEvaluated = errors.New("article has not been evaluated by an administrator")
)

type transitionKey struct {
	role   string
	action Action
}

var transitions = map[transitionKey]models.ApprovalStatus{
	{models.RoleAdministrator, ActionApprove}:    models.StatusEvaluated,
	{models.RoleAdministrator, ActionDisapprove}: models.StatusRevision,
	{models.RoleExecutive, ActionApprove}:        models.StatusApproved,
	{models.RoleExecutive, ActionDisapprove}:     models.StatusEvaluated,
}

// ParseAction validiert den Formularwert.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionApprove, ActionDisapprove:
		return Action(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// ReviewerRole bestimmt die Tabellenzeile. executive hat Vorrang vor administrator.
func ReviewerRole(roles []string) (string, error) {
	var isAdmin bool
	for _, r := range roles {
		switch r {
		case models.RoleExecutive:
			return models.RoleExecutive, nil
		case models.RoleAdministrator:
			isAdmin = true
		}
	}
	if isAdmin {
		return models.RoleAdministrator, nil
	}
	return "", ErrNoReviewerRole
}

// Decide liefert den Zielstatus für die Rollen des Akteurs und die angefragte Aktion.
// Die Rolle wird vor der Aktion geprüft, damit Unbefugte keine Validierungsdetails sehen.
func Decide(roles []string, rawAction string) (models.ApprovalStatus, error) {
	role, err := ReviewerRole(roles)
	if err != nil {
		return "", err
	}
	action, err := ParseAction(rawAction)
	if err != nil {
		return "", err
	}
	next, ok := transitions[transitionKey{role: role, action: action}]
	if !ok {
		return "", fmt.Errorf("%w: no transition for %s/%s", ErrUnknownAction, role, action)
	}
	return next, nil
}

// BlockedSources liefert die Status, aus denen next nicht erreicht werden darf.
// Der Aufrufer nimmt die Liste in die WHERE-Bedingung des UPDATE auf.
func BlockedSources(next models.ApprovalStatus) []models.ApprovalStatus {
	blocked := []models.ApprovalStatus{models.StatusApproved}
	if next == models.StatusApproved {
		blocked = append(blocked, models.StatusReview)
	}
	return blocked
}

// Allowed meldet, ob from -> next zulässig ist.
func Allowed(from, next models.ApprovalStatus) bool {
	return !slices.Contains(BlockedSources(next), from)
}

// SuccessMessage ist die Flash-Nachricht nach einem erfolgreichen Übergang.
func SuccessMessage(status models.ApprovalStatus) string {
	switch status {
	case models.StatusApproved:
		return "Article successfully approved."
	case models.StatusEvaluated:
		return "Article successfully evaluated."
	case models.StatusRevision:
		return "Article sent for revision."
	case models.StatusUpdated:
		return "Article successfully updated."
	case models.StatusReview:
		return "Article successfully submitted."
	}
	return ""
}
