package models

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "alice", "alice"},
		{"uppercase", "Alice Smith", "alice-smith"},
		{"underscores", "task_42_followup", "task-42-followup"},
		{"special chars stripped", "Q3 Planning!", "q3-planning"},
		{"dots stripped", "v2.1 release", "v21-release"},
		{"mixed", "Budget_Review (2026)", "budget-review-2026"},
		{"empty string", "", ""},
		{"only special chars", "!@#$%", ""},
		{"unicode stripped", "José Núñez", "jos-nez"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.in)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"people", KindPeople, false},
		{"tasks", KindTasks, false},
		{"topics", KindTopics, false},
		{"task", KindTasks, false},
		{"contexts", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
