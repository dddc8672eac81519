// Package nlp holds the rule-based text analysis used when no model is available.
package nlp

import "strings"

// Urgency levels.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

var highUrgencyKeywords = []string{"emergency", "urgent", "critical", "danger"}

// AssessUrgency maps text to an urgency level by keyword.
// Matching is by substring, so "dangerous" counts as "danger".
func AssessUrgency(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range highUrgencyKeywords {
		if strings.Contains(lower, kw) {
			return UrgencyHigh
		}
	}
	if strings.Contains(lower, "important") {
		return UrgencyMedium
	}
	return UrgencyLow
}

// ValidUrgency reports whether u is a known urgency level.
func ValidUrgency(u string) bool {
	return u == UrgencyHigh || u == UrgencyMedium || u == UrgencyLow
}
