// Package imageref recognizes markdown image references and rewrites them.
// Only the `![alt](target)` syntax is handled, nothing else of markdown is
// parsed.
package imageref

import (
	"net/url"
	"regexp"
	"strings"
)

// imagePattern captures the target inside the parentheses of an image tag.
// The matches are non-greedy, so a literal ')' inside the target cuts the
// capture short. Known limitation, kept for compatibility with existing
// documents.
var imagePattern = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// Extract returns every distinct relative image target in content, in
// first-seen order. Targets that carry a host component (absolute links and
// protocol-relative ones) are left alone.
func Extract(content string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, match := range imagePattern.FindAllStringSubmatch(content, -1) {
		target := match[1]
		if seen[target] {
			continue
		}
		if !isRelative(target) {
			continue
		}
		seen[target] = true
		refs = append(refs, target)
	}
	return refs
}

func isRelative(target string) bool {
	parsed, err := url.Parse(target)
	if err != nil {
		// not parseable as a URL, treat it as a filesystem path
		return true
	}
	return parsed.Host == ""
}

// Substitute replaces every occurrence of every key in urls with its mapped
// URL. The replacement is a plain literal substitution over the whole text.
func Substitute(content string, urls map[string]string) string {
	for ref, remoteURL := range urls {
		content = strings.ReplaceAll(content, ref, remoteURL)
	}
	return content
}
