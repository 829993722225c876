package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-egress/internal/notion"
	"github.com/goliatone/go-egress/pkg/interfaces"
)

// payload is the union of the type-specific block fields the renderer reads.
type payload struct {
	RichText        []notion.RichText   `json:"rich_text"`
	Caption         []notion.RichText   `json:"caption"`
	Checked         bool                `json:"checked"`
	Language        string              `json:"language"`
	Icon            *notion.Icon        `json:"icon"`
	URL             string              `json:"url"`
	External        *notion.FileRef     `json:"external"`
	File            *notion.FileRef     `json:"file"`
	Name            string              `json:"name"`
	Expression      string              `json:"expression"`
	HasColumnHeader bool                `json:"has_column_header"`
	Cells           [][]notion.RichText `json:"cells"`
}

func (p payload) source() string {
	switch {
	case p.External != nil && p.External.URL != "":
		return p.External.URL
	case p.File != nil && p.File.URL != "":
		return p.File.URL
	}
	return p.URL
}

type converter struct {
	embedTitle string
	logger     interfaces.Logger
	onPath     map[string]bool
}

type chunk struct {
	text string
	list string
}

// blocks renders siblings. Consecutive items of the same list kind are
// separated by a single newline, everything else by a blank line.
func (c *converter) blocks(blocks []*notion.Block) string {
	var (
		chunks []chunk
		number int
	)
	for _, b := range blocks {
		if b == nil {
			continue
		}
		if b.Type == "numbered_list_item" {
			number++
		} else {
			number = 0
		}
		text := c.block(b, number)
		if text == "" {
			continue
		}
		chunks = append(chunks, chunk{text: text, list: listKind(b.Type)})
	}

	var out strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			if ch.list != "" && ch.list == chunks[i-1].list {
				out.WriteString("\n")
			} else {
				out.WriteString("\n\n")
			}
		}
		out.WriteString(ch.text)
	}
	return out.String()
}

func listKind(kind string) string {
	switch kind {
	case "bulleted_list_item", "to_do":
		return "bullet"
	case "numbered_list_item":
		return "ordered"
	}
	return ""
}

// children renders b's children, skipping blocks already being rendered
// higher up the current path.
func (c *converter) children(b *notion.Block) string {
	if len(b.Children) == 0 || c.onPath[b.ID] {
		return ""
	}
	c.onPath[b.ID] = true
	defer delete(c.onPath, b.ID)
	return c.blocks(b.Children)
}

func (c *converter) block(b *notion.Block, number int) string {
	var p payload
	if err := b.Decode(&p); err != nil {
		c.logger.Warn("render.block.decode_failed", "block_id", b.ID, "type", b.Type, "error", err)
		return ""
	}
	text := RichText(p.RichText)

	switch b.Type {
	case "paragraph":
		return join(text, c.children(b))
	case "heading_1":
		return join("# "+text, c.children(b))
	case "heading_2":
		return join("## "+text, c.children(b))
	case "heading_3":
		return join("### "+text, c.children(b))
	case "bulleted_list_item":
		return listItem("- ", text, c.children(b))
	case "numbered_list_item":
		return listItem(fmt.Sprintf("%d. ", number), text, c.children(b))
	case "to_do":
		box := "- [ ] "
		if p.Checked {
			box = "- [x] "
		}
		return listItem(box, text, c.children(b))
	case "toggle":
		return "<details>\n<summary>" + text + "</summary>\n\n" + c.children(b) + "\n\n</details>"
	case "quote":
		return prefixLines(join(text, c.children(b)), "> ")
	case "callout":
		lead := text
		if icon := p.Icon.String(); icon != "" {
			lead = icon + " " + text
		}
		return prefixLines(join(lead, c.children(b)), "> ")
	case "code":
		lang := p.Language
		if lang == "plain text" {
			lang = ""
		}
		return "```" + lang + "\n" + notion.PlainText(p.RichText) + "\n```"
	case "divider":
		return "---"
	case "equation":
		return "$$\n" + p.Expression + "\n$$"
	case "image":
		return "![" + notion.PlainText(p.Caption) + "](" + p.source() + ")"
	case "video", "file", "pdf", "audio":
		return link(firstNonEmpty(p.Name, notion.PlainText(p.Caption), p.source()), p.source())
	case "bookmark", "link_preview":
		return link(firstNonEmpty(notion.PlainText(p.Caption), p.URL), p.URL)
	case "embed":
		return c.embed(p)
	case "table":
		return c.table(b, p)
	case "column_list", "column", "synced_block":
		return c.children(b)
	case "child_page", "child_database", "table_of_contents", "breadcrumb", "table_row":
		return ""
	default:
		c.logger.Debug("render.block.unsupported", "block_id", b.ID, "type", b.Type)
		return ""
	}
}

func (c *converter) embed(p payload) string {
	if p.URL == "" {
		return ""
	}
	return "<figure>\n" +
		`  <iframe title="` + c.embedTitle + `" width="100%" height="600" scrolling="no" allowfullscreen src="` + p.URL + `"></iframe>` + "\n" +
		"  <figcaption>" + RichText(p.Caption) + "</figcaption>\n" +
		"</figure>"
}

func (c *converter) table(b *notion.Block, p payload) string {
	if c.onPath[b.ID] {
		return ""
	}
	var rows []string
	width := 0
	for _, row := range b.Children {
		if row == nil || row.Type != "table_row" {
			continue
		}
		var cells payload
		if err := row.Decode(&cells); err != nil {
			continue
		}
		parts := make([]string, 0, len(cells.Cells))
		for _, cell := range cells.Cells {
			parts = append(parts, strings.ReplaceAll(RichText(cell), "|", `\|`))
		}
		width = max(width, len(parts))
		rows = append(rows, "| "+strings.Join(parts, " | ")+" |")
	}
	if len(rows) == 0 {
		return ""
	}
	sep := "|" + strings.Repeat(" --- |", max(width, 1))
	out := []string{rows[0], sep}
	return strings.Join(append(out, rows[1:]...), "\n")
}

func join(head, body string) string {
	switch {
	case body == "":
		return head
	case head == "":
		return body
	}
	return head + "\n\n" + body
}

func listItem(marker, text, nested string) string {
	if nested == "" {
		return marker + text
	}
	return marker + text + "\n" + prefixLines(nested, strings.Repeat(" ", len(marker)))
}

func prefixLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(prefix+line, " ")
	}
	return strings.Join(lines, "\n")
}

func link(label, url string) string {
	if url == "" {
		return ""
	}
	return "[" + label + "](" + url + ")"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
