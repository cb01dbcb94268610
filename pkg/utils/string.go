package utils

// Truncate shortens s to maxLen runes and appends "..." when it cuts.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
