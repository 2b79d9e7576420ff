package util

import (
	"regexp"

	"golang.org/x/exp/utf8string"
)

var junkRegexp = regexp.MustCompile(`[^\wа-яё]+`)

// Hashtag converts an imageboard tag into a Telegram-safe hashtag.
// Telegram drops hashtags longer than 25 runes, so longer tags are cut.
func Hashtag(str string) string {
	str = junkRegexp.ReplaceAllString(str, "_")
	tag := utf8string.NewString(str)
	if tag.RuneCount() > 25 {
		return "#" + tag.Slice(0, 25)
	}

	return "#" + tag.String()
}
