package article

import "strings"

// ExtractWikilinks returns the titles referenced as [[Title]] in a markdown
// body, trimmed, in first-seen order. Duplicates are preserved: the link
// graph synchronizer deduplicates, while the editor autocomplete wants the
// raw occurrence list. A [[ left unterminated before a newline is not a
// link.
func ExtractWikilinks(body string) []string {
	var titles []string

	for _, line := range strings.Split(body, "\n") {
		for {
			start := strings.Index(line, "[[")
			if start < 0 {
				break
			}
			rest := line[start+2:]
			end := strings.Index(rest, "]]")
			if end < 0 {
				break // unterminated on this line
			}

			title := strings.TrimSpace(rest[:end])
			if title != "" {
				titles = append(titles, title)
			}
			line = rest[end+2:]
		}
	}

	return titles
}
