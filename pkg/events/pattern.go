package events

import "strings"

// MatchesPattern reports whether a dot-namespaced event type matches a
// registration pattern. Supported patterns are an exact type
// ("donation.completed"), a wildcard aggregate prefix ("donation.*"), and
// the match-all pattern ("*").
func MatchesPattern(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == eventType
}

// ValidPattern reports whether a registration pattern is well formed:
// either "*", an exact dot-namespaced type, or "<aggregate>.*".
func ValidPattern(pattern string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return prefix != "" && !strings.Contains(prefix, "*")
	}
	return strings.Contains(strings.Trim(pattern, "."), ".") && !strings.Contains(pattern, "*")
}
