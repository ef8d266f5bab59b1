package suggest

import "unicode/utf8"

// MaxMessageLength is the platform limit, in characters (code points).
const MaxMessageLength = 280

const ellipsis = "..."

// Length counts characters the way Budget does.
func Length(msg string) int {
	return utf8.RuneCountInString(msg)
}

// Budget enforces MaxMessageLength on a finished message. An over-long
// message keeps its first MaxMessageLength-3 characters followed by "...",
// for a total of exactly MaxMessageLength.
func Budget(msg string) string {
	if Length(msg) <= MaxMessageLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxMessageLength-len(ellipsis)]) + ellipsis
}
