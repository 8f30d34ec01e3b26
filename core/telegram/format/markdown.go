package format

import (
	"regexp"
)

var mdV1Specials = regexp.MustCompile("([_*\\[`])")

// EscapeMarkdown escapes characters that Telegram's Markdown (v1) parse mode
// treats as formatting, so user or catalog supplied text renders literally.
func EscapeMarkdown(text string) string {
	return mdV1Specials.ReplaceAllString(text, `\$1`)
}
