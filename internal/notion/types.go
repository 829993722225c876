package notion

import (
	"encoding/json"
	"strings"
)

// Page is a database row.
type Page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url,omitempty"`
	Icon       *Icon               `json:"icon,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// Icon is a page icon; only one of the variants is set.
type Icon struct {
	Type     string   `json:"type"`
	Emoji    string   `json:"emoji,omitempty"`
	External *FileRef `json:"external,omitempty"`
	File     *FileRef `json:"file,omitempty"`
}

// String returns the emoji or the icon URL.
func (i *Icon) String() string {
	if i == nil {
		return ""
	}
	switch {
	case i.Emoji != "":
		return i.Emoji
	case i.External != nil:
		return i.External.URL
	case i.File != nil:
		return i.File.URL
	}
	return ""
}

// FileRef points at a hosted or external file.
type FileRef struct {
	URL string `json:"url"`
}

// Property is one entry of a page property bag. Only the fields matching
// Type are populated.
type Property struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Formula     *Formula       `json:"formula,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Number      *float64       `json:"number,omitempty"`
}

// Text flattens title or rich text content.
func (p Property) Text() string {
	switch p.Type {
	case "title":
		return PlainText(p.Title)
	case "rich_text":
		return PlainText(p.RichText)
	case "formula":
		if p.Formula != nil && p.Formula.String != nil {
			return *p.Formula.String
		}
	case "url":
		if p.URL != nil {
			return *p.URL
		}
	case "select":
		if p.Select != nil {
			return p.Select.Name
		}
	}
	return ""
}

// SelectOption is a select value.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Formula is a computed property value.
type Formula struct {
	Type    string   `json:"type"`
	String  *string  `json:"string,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
}

// RichText is one span of formatted text.
type RichText struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations"`
	Equation    *Equation   `json:"equation,omitempty"`
}

// Annotations are the inline styles of a span.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Equation holds a KaTeX expression.
type Equation struct {
	Expression string `json:"expression"`
}

// PlainText concatenates the plain text of spans.
func PlainText(spans []RichText) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.PlainText)
	}
	return b.String()
}

// Block is one content block. Payload holds the object stored under the
// block's type key; Children is filled by BlockTree.
type Block struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	HasChildren bool            `json:"has_children"`
	Payload     json.RawMessage `json:"-"`
	Children    []*Block        `json:"-"`
}

// UnmarshalJSON extracts the type-specific payload next to the common
// fields.
func (b *Block) UnmarshalJSON(data []byte) error {
	type common Block
	var head common
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	*b = Block(head)

	if b.Type == "" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	b.Payload = fields[b.Type]
	return nil
}

// Decode unmarshals the payload into v.
func (b *Block) Decode(v any) error {
	if len(b.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(b.Payload, v)
}

// SyncedFrom returns the id of the original block a synced copy mirrors.
func (b *Block) SyncedFrom() string {
	if b.Type != "synced_block" {
		return ""
	}
	var payload struct {
		SyncedFrom *struct {
			BlockID string `json:"block_id"`
		} `json:"synced_from"`
	}
	if err := b.Decode(&payload); err != nil || payload.SyncedFrom == nil {
		return ""
	}
	return payload.SyncedFrom.BlockID
}

type listResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor *string           `json:"next_cursor"`
}

type errorResponse struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
