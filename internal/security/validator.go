package security

import "regexp"

// sessionCodePattern is the fixed 6-digit code format. Rejecting malformed
// codes at the edge keeps arbitrary strings out of the store keyspace.
var sessionCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidSessionCode reports whether code has the expected format.
func ValidSessionCode(code string) bool {
	return sessionCodePattern.MatchString(code)
}

const (
	maxContentLength = 8192
	maxTitleLength   = 256
)

// ValidContent bounds free-text payloads (messages, note bodies).
func ValidContent(s string) bool {
	return len(s) > 0 && len(s) <= maxContentLength
}

// ValidTitle bounds note titles.
func ValidTitle(s string) bool {
	return len(s) > 0 && len(s) <= maxTitleLength
}
