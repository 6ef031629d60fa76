package domain

import (
	"encoding/json"
	"fmt"
)

// ChecklistEntry is one line of a list item's content.
type ChecklistEntry struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Content is the tagged payload variant carried by list and page items.
// Exactly one of Checklist/Text is meaningful, keyed by the item kind:
// lists carry a checklist, pages carry free text, tasks carry nothing.
type Content struct {
	Checklist []ChecklistEntry `json:"checklist,omitempty"`
	Text      string           `json:"text,omitempty"`
}

// ParseContent decodes an item's raw content column once, at the boundary.
// A nil raw value yields an empty Content. List content must be a JSON
// array of checklist entries; anything else is free text for pages and
// ignored for tasks.
func ParseContent(kind string, raw *string) (Content, error) {
	if raw == nil || *raw == "" {
		return Content{}, nil
	}
	switch kind {
	case KindList:
		var entries []ChecklistEntry
		if err := json.Unmarshal([]byte(*raw), &entries); err != nil {
			return Content{}, fmt.Errorf("list content: %w", err)
		}
		return Content{Checklist: entries}, nil
	case KindPage:
		return Content{Text: *raw}, nil
	default:
		return Content{}, nil
	}
}

// EncodeContent is the inverse of ParseContent, producing the raw column
// value for storage. Returns nil for empty content.
func EncodeContent(kind string, c Content) (*string, error) {
	switch kind {
	case KindList:
		if len(c.Checklist) == 0 {
			return nil, nil
		}
		b, err := json.Marshal(c.Checklist)
		if err != nil {
			return nil, err
		}
		s := string(b)
		return &s, nil
	case KindPage:
		if c.Text == "" {
			return nil, nil
		}
		s := c.Text
		return &s, nil
	default:
		return nil, nil
	}
}
