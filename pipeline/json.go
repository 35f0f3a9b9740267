package pipeline

import "strings"

// extractObject returns the widest {...} span in raw, or "" when raw carries
// no object. Collaborator replies routinely wrap JSON in prose or fences, so
// parsing always goes through this first.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}

// extractArray is the [...] counterpart of extractObject.
func extractArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}
