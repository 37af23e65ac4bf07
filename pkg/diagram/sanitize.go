package diagram

import "strings"

// Sanitize strips Markdown code fences the completion service may have
// wrapped the markup in and trims surrounding whitespace. It runs on every
// description, generated or synthesized.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
