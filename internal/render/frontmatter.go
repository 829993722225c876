package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-egress/internal/curriculum"
)

const (
	frontMatterDelimiter = "---\n"
	noObjectives         = "No objectives"
)

type label struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type instructorNotes struct {
	PlainText *[]string `yaml:"plainText"`
	Links     *[]string `yaml:"links"`
}

// FrontMatter is the YAML header written above every exported page.
type FrontMatter struct {
	Icon            string          `yaml:"icon,omitempty"`
	Title           string          `yaml:"title"`
	Unit            label           `yaml:"unit"`
	Chapter         label           `yaml:"chapter"`
	Type            label           `yaml:"type"`
	FTID            string          `yaml:"ft-id"`
	PTID            string          `yaml:"pt-id"`
	Objectives      string          `yaml:"objectives"`
	Slides          *string         `yaml:"slides"`
	InstructorNotes instructorNotes `yaml:"instructorNotes"`
}

// NewFrontMatter derives the header fields from an item.
func NewFrontMatter(item curriculum.Item) FrontMatter {
	fm := FrontMatter{
		Icon:       item.Icon,
		Title:      curriculum.Display(item.Name),
		Unit:       toLabel(curriculum.Label(item.Unit, "")),
		Chapter:    toLabel(curriculum.Label(item.Chapter, "")),
		Type:       toLabel(curriculum.Label(item.ContentType, "No type")),
		FTID:       item.SecondaryID(),
		PTID:       curriculum.NormalizeID(item.PTID),
		Objectives: noObjectives,
	}
	if len(item.Objectives) > 0 && item.Objectives[0].PlainText != "" {
		fm.Objectives = item.Objectives[0].PlainText
	}
	if len(item.Slides) > 0 && item.Slides[0].PlainText != "" {
		slides := item.Slides[0].PlainText
		fm.Slides = &slides
	}

	if len(item.InstructorNotes) > 0 {
		var texts, links []string
		for _, span := range item.InstructorNotes {
			texts = append(texts, span.PlainText)
			if span.Href != "" {
				links = append(links, span.Href)
			}
		}
		fm.InstructorNotes.PlainText = &texts
		if len(links) > 0 {
			fm.InstructorNotes.Links = &links
		}
	}
	return fm
}

// Bytes encodes the header wrapped in "---" delimiters.
func (fm FrontMatter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontMatterDelimiter)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("render: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render: encode front matter: %w", err)
	}
	buf.WriteString(frontMatterDelimiter)
	return buf.Bytes(), nil
}

// Document joins the front matter of item and its rendered body.
func Document(item curriculum.Item, body string) ([]byte, error) {
	head, err := NewFrontMatter(item).Bytes()
	if err != nil {
		return nil, err
	}
	if body == "" {
		return head, nil
	}
	return append(head, []byte("\n"+body+"\n")...), nil
}

func toLabel(values map[string]any) label {
	name, _ := values["name"].(string)
	color, _ := values["color"].(string)
	return label{Name: name, Color: color}
}
