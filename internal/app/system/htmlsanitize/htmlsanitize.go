// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// StripTags removes all markup and returns plain text. HTML entities that
// the strict policy escapes are decoded again so "Tom & Jerry" is stored
// as typed. Chat messages and event descriptions both go through it.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(s))
}
