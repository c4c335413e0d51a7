package feed

import (
	"regexp"
)

var (
	linkPattern = regexp.MustCompile(`(?i)(https?://[^\s]+)`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// StripTags removes HTML tags from text, keeping the text between them.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// ReplaceLinks wraps plain URLs in anchor tags. The URL capture boundary
// is whitespace. An empty target omits the target attribute.
func ReplaceLinks(text string, target string) string {
	replacement := `<a href="$1">$1</a>`
	if target != "" {
		replacement = `<a href="$1" target="` + target + `">$1</a>`
	}
	return linkPattern.ReplaceAllString(text, replacement)
}

// ProcessTextContent prepares upstream post text for rendering:
// optionally strips HTML tags, then replaces plain URLs with anchor tags
// opening in a new tab.
func ProcessTextContent(text string, stripHTML bool) string {
	if stripHTML {
		text = StripTags(text)
	}
	return ReplaceLinks(text, "_blank")
}
