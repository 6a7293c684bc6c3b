package service

import (
	"strings"
	"testing"
)

func TestWithRecommendation(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		days  int
		want  string
	}{
		{"empty notes", "", 5, "AI_RECOMMENDED:5|"},
		{"keeps user notes", "bright window", 5, "AI_RECOMMENDED:5|bright window"},
		{"replaces previous marker", "AI_RECOMMENDED:9|bright window", 5, "AI_RECOMMENDED:5|bright window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withRecommendation(tt.notes, tt.days); got != tt.want {
				t.Errorf("withRecommendation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecommendedFrequency(t *testing.T) {
	tests := []struct {
		notes  string
		want   int
		wantOK bool
	}{
		{"AI_RECOMMENDED:7|water less in winter", 7, true},
		{"AI_RECOMMENDED:14|", 14, true},
		{"AI_RECOMMENDED:x|", 0, false},
		{"AI_RECOMMENDED:0|", 0, false},
		{"water less in winter", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.notes, func(t *testing.T) {
			got, ok := RecommendedFrequency(tt.notes)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("RecommendedFrequency(%q) = %d, %v; want %d, %v", tt.notes, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStripRecommendation(t *testing.T) {
	if got := stripRecommendation("AI_RECOMMENDED:7|north window"); got != "north window" {
		t.Errorf("stripRecommendation() = %q", got)
	}
	if got := stripRecommendation("north window"); got != "north window" {
		t.Errorf("stripRecommendation() changed plain notes: %q", got)
	}
}

func TestWithSuggestAdjustAppendsOnce(t *testing.T) {
	notes := withSuggestAdjust("")
	if notes != "[SUGGEST_ADJUST]" {
		t.Fatalf("withSuggestAdjust(\"\") = %q", notes)
	}

	notes = withSuggestAdjust("north window")
	notes = withSuggestAdjust(notes)
	if notes != "north window [SUGGEST_ADJUST]" {
		t.Errorf("withSuggestAdjust() = %q", notes)
	}
	if strings.Count(notes, "[SUGGEST_ADJUST]") != 1 {
		t.Errorf("marker appended more than once: %q", notes)
	}
	if !SuggestsAdjustment(notes) {
		t.Error("SuggestsAdjustment() = false")
	}
}
