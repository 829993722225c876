// Package curriculum maps database pages onto typed curriculum items.
package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-egress/internal/manifest"
	"github.com/goliatone/go-egress/internal/notion"
)

// Property names in the curriculum database.
const (
	PropUnit            = "Unit"
	PropChapter         = "Chapter"
	PropName            = "Name"
	PropContentType     = "Content Type"
	PropFTID            = "ID FT"
	PropPTID            = "ID PT"
	PropObjectives      = "Objectives"
	PropSlides          = "Slides"
	PropInstructorNotes = "Instructor notes"
)

const (
	defaultColor = "neutral"
	defaultType  = "No type"
)

var (
	ErrMissingRequired = errors.New("curriculum: missing required properties")
	ErrInvalidPage     = errors.New("curriculum: page payload is invalid")
)

// Select is a named, coloured label.
type Select struct {
	Name  string
	Color string
}

// Item is one curriculum page.
type Item struct {
	ID              string
	Icon            string
	Name            string
	Unit            *Select
	Chapter         *Select
	ContentType     *Select
	FTID            string
	PTID            string
	Objectives      []notion.RichText
	Slides          []notion.RichText
	InstructorNotes []notion.RichText
	Raw             json.RawMessage
}

// FromPage decodes a raw database page.
func FromPage(raw json.RawMessage) (Item, error) {
	var page notion.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	if strings.TrimSpace(page.ID) == "" {
		return Item{}, fmt.Errorf("%w: missing id", ErrInvalidPage)
	}

	props := page.Properties
	item := Item{
		ID:              page.ID,
		Name:            props[PropName].Text(),
		Unit:            selectOf(props[PropUnit]),
		Chapter:         selectOf(props[PropChapter]),
		ContentType:     selectOf(props[PropContentType]),
		FTID:            props[PropFTID].Text(),
		PTID:            props[PropPTID].Text(),
		Objectives:      props[PropObjectives].RichText,
		Slides:          props[PropSlides].RichText,
		InstructorNotes: props[PropInstructorNotes].RichText,
		Raw:             raw,
	}
	if page.Icon != nil {
		item.Icon = page.Icon.Emoji
	}
	return item, nil
}

func selectOf(p notion.Property) *Select {
	if p.Select == nil || p.Select.Name == "" {
		return nil
	}
	return &Select{Name: p.Select.Name, Color: p.Select.Color}
}

type required struct {
	Unit    string `json:"unit"`
	Chapter string `json:"chapter"`
	Name    string `json:"name"`
}

// Validate reports missing grouping fields as ErrMissingRequired.
func (i Item) Validate() error {
	fields := required{Unit: nameOf(i.Unit), Chapter: nameOf(i.Chapter), Name: strings.TrimSpace(i.Name)}
	err := validation.ValidateStruct(&fields,
		validation.Field(&fields.Unit, validation.Required),
		validation.Field(&fields.Chapter, validation.Required),
		validation.Field(&fields.Name, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingRequired, err)
	}
	return nil
}

// Coordinates returns the grouping fields and name used to derive paths.
func (i Item) Coordinates() (unit, chapter, name string) {
	return nameOf(i.Unit), nameOf(i.Chapter), i.Name
}

// DisplayName is the name used in progress output.
func (i Item) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return "No name"
}

// SecondaryID is the normalised FT id.
func (i Item) SecondaryID() string {
	return NormalizeID(i.FTID)
}

// NormalizeID maps empty, "N/A" and ids ending in "." to the placeholder.
func NormalizeID(id string) string {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" || trimmed == "N/A" || strings.HasSuffix(trimmed, ".") {
		return manifest.Placeholder
	}
	return id
}

// Label renders a select with defaults for missing values.
func Label(s *Select, fallbackName string) map[string]any {
	name, color := fallbackName, defaultColor
	if s != nil {
		if s.Name != "" {
			name = s.Name
		}
		if s.Color != "" {
			color = s.Color
		}
	}
	return map[string]any{"name": Display(name), "color": color}
}

// Display replaces ":" with an em dash for titles and labels.
func Display(value string) string {
	return strings.ReplaceAll(value, ":", "—")
}

// Metadata returns the manifest attributes for the item.
func (i Item) Metadata() map[string]any {
	attrs := map[string]any{
		"title":   Display(i.Name),
		"unit":    Label(i.Unit, ""),
		"chapter": Label(i.Chapter, ""),
		"type":    Label(i.ContentType, defaultType),
		"pt-id":   NormalizeID(i.PTID),
	}
	if i.Icon != "" {
		attrs["icon"] = i.Icon
	}
	return attrs
}

// Record builds the manifest record for the item written at path.
func (i Item) Record(path string) manifest.Record {
	return manifest.Record{
		StableID:    i.ID,
		SecondaryID: i.SecondaryID(),
		Path:        path,
		Attributes:  i.Metadata(),
	}
}

func nameOf(s *Select) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.Name)
}
