// Package onion finds hidden-service URLs in free text.
package onion

import "regexp"

// linkPattern matches http(s) URLs whose host ends in .onion. The word
// boundary keeps trailing punctuation out and rejects hosts like x.onionfoo.
var linkPattern = regexp.MustCompile(`https?://[a-zA-Z0-9\-\.]+\.onion\b`)

// FindLinks returns every non-overlapping onion URL in text, left to right.
// It returns nil when there are none.
func FindLinks(text string) []string {
	if text == "" {
		return nil
	}
	return linkPattern.FindAllString(text, -1)
}
