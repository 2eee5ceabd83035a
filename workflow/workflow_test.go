package workflow

import (
	"errors"
	"testing"

	"report-desk/models"
)

func TestDecideTable(t *testing.T) {
	tests := []struct {
		name   string
		roles  []string
		action string
		want   models.ApprovalStatus
	}{
		{name: "administrator approves", roles: []string{"administrator"}, action: "approved", want: models.StatusEvaluated},
		{name: "administrator disapproves", roles: []string{"administrator"}, action: "disapproved", want: models.StatusRevision},
		{name: "executive approves", roles: []string{"executive"}, action: "approved", want: models.StatusApproved},
		{name: "executive disapproves", roles: []string{"executive"}, action: "disapproved", want: models.StatusEvaluated},
		{name: "executive row wins over administrator", roles: []string{"administrator", "executive"}, action: "approved", want: models.StatusApproved},
		{name: "editor with administrator uses administrator row", roles: []string{"editor", "administrator"}, action: "disapproved", want: models.StatusRevision},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decide(testCase.roles, testCase.action)
			if err != nil {
				t.Fatalf("Decide returned error: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("Decide = %s, want %s", got, testCase.want)
			}
		})
	}
}

func TestDecideRejections(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		action  string
		wantErr error
	}{
		{name: "editor", roles: []string{"editor"}, action: "approved", wantErr: ErrNoReviewerRole},
		{name: "no roles", action: "approved", wantErr: ErrNoReviewerRole},
		{name: "role checked before action", roles: []string{"editor"}, action: "bogus", wantErr: ErrNoReviewerRole},
		{name: "unknown action", roles: []string{"administrator"}, action: "approve", wantErr: ErrUnknownAction},
		{name: "empty action", roles: []string{"executive"}, action: "", wantErr: ErrUnknownAction},
		{name: "case sensitive action", roles: []string{"executive"}, action: "Approved", wantErr: ErrUnknownAction},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decide(testCase.roles, testCase.action)
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected %v, got status=%q err=%v", testCase.wantErr, got, err)
			}
			if got != "" {
				t.Fatalf("rejected decision must not yield a status, got %s", got)
			}
		})
	}
}

func TestNoPathToApprovedWithoutExecutive(t *testing.T) {
	for key, next := range transitions {
		if next == models.StatusApproved && key.role != models.RoleExecutive {
			t.Fatalf("only executives may approve, found %+v", key)
		}
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		from models.ApprovalStatus
		next models.ApprovalStatus
		want bool
	}{
		{from: models.StatusReview, next: models.StatusApproved, want: false},
		{from: models.StatusEvaluated, next: models.StatusApproved, want: true},
		{from: models.StatusUpdated, next: models.StatusApproved, want: true},
		{from: models.StatusReview, next: models.StatusEvaluated, want: true},
		{from: models.StatusReview, next: models.StatusRevision, want: true},
		{from: models.StatusApproved, next: models.StatusEvaluated, want: false},
		{from: models.StatusApproved, next: models.StatusRevision, want: false},
		{from: models.StatusApproved, next: models.StatusApproved, want: false},
	}

	for _, testCase := range tests {
		if got := Allowed(testCase.from, testCase.next); got != testCase.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", testCase.from, testCase.next, got, testCase.want)
		}
	}
}

func TestSuccessMessage(t *testing.T) {
	if got := SuccessMessage(models.StatusRevision); got != "Article sent for revision." {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := SuccessMessage(models.ApprovalStatus("Unknown")); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}
