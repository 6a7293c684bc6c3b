package service

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	recommendedPrefix   = "AI_RECOMMENDED:"
	recommendedSep      = "|"
	suggestAdjustMarker = "[SUGGEST_ADJUST]"
)

// withRecommendation prefixes notes with the proposed frequency, replacing an older proposal.
func withRecommendation(notes string, days int) string {
	return fmt.Sprintf("%s%d%s%s", recommendedPrefix, days, recommendedSep, stripRecommendation(notes))
}

func stripRecommendation(notes string) string {
	if !strings.HasPrefix(notes, recommendedPrefix) {
		return notes
	}
	if idx := strings.Index(notes, recommendedSep); idx >= 0 {
		return notes[idx+len(recommendedSep):]
	}
	return ""
}

// RecommendedFrequency extracts the proposed frequency from notes, if present.
func RecommendedFrequency(notes string) (int, bool) {
	if !strings.HasPrefix(notes, recommendedPrefix) {
		return 0, false
	}
	raw := strings.TrimPrefix(notes, recommendedPrefix)
	if idx := strings.Index(raw, recommendedSep); idx >= 0 {
		raw = raw[:idx]
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, false
	}
	return days, true
}

func withSuggestAdjust(notes string) string {
	if strings.Contains(notes, suggestAdjustMarker) {
		return notes
	}
	if strings.TrimSpace(notes) == "" {
		return suggestAdjustMarker
	}
	return notes + " " + suggestAdjustMarker
}

// SuggestsAdjustment reports whether snoozing flagged the schedule for a frequency review.
func SuggestsAdjustment(notes string) bool {
	return strings.Contains(notes, suggestAdjustMarker)
}
