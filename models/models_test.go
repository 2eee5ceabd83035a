package models

import "testing"

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, ok := ParseStatus(string(s))
		if !ok || got != s {
			t.Fatalf("expected %s to parse, got %q ok=%v", s, got, ok)
		}
	}
	for _, raw := range []string{"", "review", "Pending", "Approved "} {
		if _, ok := ParseStatus(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range Statuses {
		if s.Terminal() != (s == StatusApproved) {
			t.Fatalf("unexpected terminal flag for %s", s)
		}
	}
}

func TestIsReportType(t *testing.T) {
	if !IsReportType("Data Leak") {
		t.Fatal("expected Data Leak to be a report type")
	}
	if IsReportType("phishing") {
		t.Fatal("report types are case sensitive")
	}
}

func TestUserRoles(t *testing.T) {
	tests := []struct {
		name       string
		roles      []string
		editorOnly bool
	}{
		{name: "editor", roles: []string{RoleEditor}, editorOnly: true},
		{name: "editor and administrator", roles: []string{RoleEditor, RoleAdministrator}},
		{name: "executive", roles: []string{RoleExecutive}},
		{name: "no roles"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			u := &User{}
			for _, r := range testCase.roles {
				u.Roles = append(u.Roles, Role{Name: r})
			}
			if got := u.EditorOnly(); got != testCase.editorOnly {
				t.Fatalf("EditorOnly() = %v, want %v", got, testCase.editorOnly)
			}
			if len(u.RoleNames()) != len(testCase.roles) {
				t.Fatalf("unexpected role names: %v", u.RoleNames())
			}
		})
	}
}
