package utils

import "strings"

// Slugify normalizes an event name into a URL-safe slug: lower
// case, runs of non-alphanumeric characters collapsed into a
// single hyphen, no leading or trailing hyphens. The slug is
// recomputed whenever the name changes so the two never drift.
func Slugify(name string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
