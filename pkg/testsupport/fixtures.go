package testsupport

import "encoding/json"

// Page describes a curriculum database row for tests.
type Page struct {
	ID          string
	Emoji       string
	Unit        string
	UnitColor   string
	Chapter     string
	Name        string
	ContentType string
	FTID        string
	PTID        string
	Objectives  string
	NotesLink   string
}

// JSON encodes p the way the database query endpoint returns pages. Empty
// select values are emitted as null.
func (p Page) JSON() json.RawMessage {
	props := map[string]any{
		"Name": map[string]any{
			"type":  "title",
			"title": spans(p.Name, ""),
		},
		"Unit":         selectProp(p.Unit, p.UnitColor),
		"Chapter":      selectProp(p.Chapter, "blue"),
		"Content Type": selectProp(p.ContentType, "green"),
		"ID FT":        formula(p.FTID),
		"ID PT":        formula(p.PTID),
		"Objectives": map[string]any{
			"type":      "rich_text",
			"rich_text": spans(p.Objectives, ""),
		},
		"Instructor notes": map[string]any{
			"type":      "rich_text",
			"rich_text": spans("notes", p.NotesLink),
		},
	}
	page := map[string]any{
		"object":     "page",
		"id":         p.ID,
		"properties": props,
	}
	if p.Emoji != "" {
		page["icon"] = map[string]any{"type": "emoji", "emoji": p.Emoji}
	}
	data, err := json.Marshal(page)
	if err != nil {
		panic(err)
	}
	return data
}

// Pages encodes a list of pages as a JSON array.
func Pages(pages ...Page) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.JSON())
	}
	return out
}

func spans(text, href string) []map[string]any {
	if text == "" {
		return []map[string]any{}
	}
	span := map[string]any{
		"type":       "text",
		"plain_text": text,
		"annotations": map[string]any{
			"bold": false, "italic": false, "strikethrough": false, "underline": false, "code": false,
		},
	}
	if href != "" {
		span["href"] = href
	}
	return []map[string]any{span}
}

func selectProp(name, color string) map[string]any {
	if name == "" {
		return map[string]any{"type": "select", "select": nil}
	}
	return map[string]any{"type": "select", "select": map[string]any{"name": name, "color": color}}
}

func formula(value string) map[string]any {
	if value == "" {
		return map[string]any{"type": "formula", "formula": map[string]any{"type": "string", "string": nil}}
	}
	return map[string]any{"type": "formula", "formula": map[string]any{"type": "string", "string": value}}
}
