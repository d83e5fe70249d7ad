// internal/app/system/normalize/normalize.go
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Phone trims a phone number.
func Phone(s string) string {
	return strings.TrimSpace(s)
}

// QueryParam trims a raw query-string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// GroupID trims a group id filter; "all" (any case) means no filter.
func GroupID(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// compact lowercases s and drops the separators legacy writers used
// between words (underscore, hyphen, space, dot).
func compact(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '.', '\t':
			return -1
		}
		return r
	}, s)
}
