package llm

import "strings"

// stripCodeFence removes a single surrounding markdown code fence
// (``` or ```json, ```javascript, etc.) from content, returning the
// inner text unchanged if no fence is present.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return content
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return content
	}

	inner := lines[1 : len(lines)-1]
	return strings.Join(inner, "\n")
}
