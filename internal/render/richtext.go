package render

import (
	"strings"
	"unicode"

	"github.com/goliatone/go-egress/internal/notion"
)

// RichText renders spans as inline Markdown.
func RichText(spans []notion.RichText) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(inline(span))
	}
	return b.String()
}

func inline(span notion.RichText) string {
	if span.Type == "equation" && span.Equation != nil {
		return "$" + span.Equation.Expression + "$"
	}

	text := span.PlainText
	if strings.TrimSpace(text) == "" {
		return text
	}

	lead, core, trail := splitSpace(text)
	a := span.Annotations
	if a.Code {
		core = "`" + core + "`"
	}
	if a.Bold {
		core = "**" + core + "**"
	}
	if a.Italic {
		core = "_" + core + "_"
	}
	if a.Strikethrough {
		core = "~~" + core + "~~"
	}
	if span.Href != "" {
		core = "[" + core + "](" + span.Href + ")"
	}
	return lead + core + trail
}

// splitSpace separates surrounding whitespace so emphasis markers hug the
// text, which CommonMark requires.
func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}
