package mailparser

import "strings"

// HTMLToText makes a rough plain-text rendering of an HTML body for use in
// notification messages: scripts and styles dropped, tags stripped, basic
// entities unescaped, whitespace collapsed.
func HTMLToText(html string) string {
	if html == "" {
		return ""
	}

	s := stripElement(html, "script")
	s = stripElement(s, "style")

	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}

	text := b.String()
	for entity, repl := range map[string]string{
		"&nbsp;": " ",
		"&amp;":  "&",
		"&lt;":   "<",
		"&gt;":   ">",
		"&quot;": `"`,
		"&#39;":  "'",
	} {
		text = strings.ReplaceAll(text, entity, repl)
	}

	return strings.Join(strings.Fields(text), " ")
}

// stripElement removes <name ...>...</name> blocks, case-insensitively.
func stripElement(s, name string) string {
	lower := strings.ToLower(s)
	open := "<" + name
	closing := "</" + name + ">"
	for {
		start := strings.Index(lower, open)
		if start < 0 {
			return s
		}
		end := strings.Index(lower[start:], closing)
		if end < 0 {
			return s[:start]
		}
		end = start + end + len(closing)
		s = s[:start] + s[end:]
		lower = lower[:start] + lower[end:]
	}
}
