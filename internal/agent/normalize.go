package agent

import "strings"

// NormalizeCompanyName collapses every whitespace run (including
// non-breaking spaces) to a single space, trims, and lowercases, so
// company names reported by Tally compare equal across cosmetic
// differences. Applied to both sides of every comparison.
func NormalizeCompanyName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
