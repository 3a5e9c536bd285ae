// Package analysis scores moderation signals against complaints.
package analysis

import "civicwatch/backend/internal/config"

// GetWeight returns the flag score a report reason adds to a complaint.
// It returns 0 if the reason is not recognized.
func GetWeight(reason string) int {
	return config.ReportWeights[reason]
}

// IsKnownReason reports whether reason has a weight.
func IsKnownReason(reason string) bool {
	_, ok := config.ReportWeights[reason]
	return ok
}
