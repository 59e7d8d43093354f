package bot

import "strings"

// linkPrefixes are the inputs treated as a direct link instead of a search
// query: an explicit scheme, or the start of a known music service host.
var linkPrefixes = []string{
	"http://",
	"https://",
	"www.",
	"deezer.",
	"spotify.",
	"open.spotify.",
	"soundcloud.",
	"youtube.",
	"youtu.be",
}

// IsLink reports whether text should be downloaded as-is. Matching is a
// plain prefix test on the trimmed text and is case-sensitive.
func IsLink(text string) bool {
	text = strings.TrimSpace(text)
	for _, prefix := range linkPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}
