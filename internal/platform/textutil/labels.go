package textutil

import (
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// EnabledMark is appended to menu labels whose underlying switch is on.
const EnabledMark = "✅"

var freeTextPolicy = bluemonday.StrictPolicy()

// StripEnabledMark removes the enabled marker and surrounding whitespace from
// a menu label so it can be matched against catalog labels again.
func StripEnabledMark(label string) string {
	trimmed := strings.TrimSpace(label)
	trimmed = strings.TrimSuffix(trimmed, EnabledMark)
	return strings.TrimSpace(trimmed)
}

// MarkEnabled renders a menu label with the enabled marker appended.
func MarkEnabled(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return EnabledMark
	}
	return trimmed + " " + EnabledMark
}

// ParseMenuNumber extracts a positive number from a menu reply such as "3" or
// "3.". It returns 0 when the reply does not start with digits.
func ParseMenuNumber(reply string) int {
	trimmed := strings.TrimSpace(reply)
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	value, err := strconv.Atoi(trimmed[:end])
	if err != nil || value <= 0 {
		return 0
	}
	return value
}

// IsNumeric reports whether the reply consists solely of digits, which marks
// it as a preset number rather than free text.
func IsNumeric(reply string) bool {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] < '0' || trimmed[i] > '9' {
			return false
		}
	}
	return true
}

// SanitizeFreeText strips markup from user-entered text before it is stored
// on a configuration or echoed back in messages.
func SanitizeFreeText(text string) string {
	return strings.TrimSpace(freeTextPolicy.Sanitize(text))
}
