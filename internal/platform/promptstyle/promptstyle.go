package promptstyle

import "strings"

const marker = "COURSEMEDIA_PROMPT_STYLE_V1"

// System returns the instruction block sent ahead of single-prompt
// generations. Mode "json" asks for a bare JSON object.
func System(mode string) string {
	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful assistant preparing e-learning course material.")
	b.WriteString("\nFollow the user instructions precisely.")
	b.WriteString("\nUse the provided material as grounding; do not invent facts.")
	if strings.EqualFold(strings.TrimSpace(mode), "json") {
		b.WriteString("\nReturn a single JSON object with no markdown fences and no commentary.")
	} else {
		b.WriteString("\nDo not add analysis or extra commentary.")
	}
	return b.String()
}

// Applied reports whether s already carries the style block.
func Applied(s string) bool { return strings.Contains(s, marker) }
