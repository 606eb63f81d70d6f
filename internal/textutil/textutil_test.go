package textutil

import "testing"

func TestColumnLabel(t *testing.T) {
	tests := []struct {
		column string
		want   string
	}{
		{"steam_id", "Steam ID"},
		{"game_time_diff", "Gametime delta (min)"},
		{"acq_time", "Acquisition time"},
		{"daily_total", "Daily Total"},
		{"week", "Week"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ColumnLabel(tt.column); got != tt.want {
			t.Errorf("ColumnLabel(%q) = %q, want %q", tt.column, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lab Machine #2", "lab_machine__2"},
		{"  ", "unknown"},
		{"__", "unknown"},
		{"study-2024", "study-2024"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a/b:c?"d" `); got != "a-b-cd" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}

func TestKeyPrefix(t *testing.T) {
	if got := KeyPrefix("/Gametime//Study A/"); got != "gametime/study_a" {
		t.Fatalf("KeyPrefix = %q", got)
	}
	if got := KeyPrefix(""); got != "" {
		t.Fatalf("KeyPrefix(empty) = %q", got)
	}
}
