package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxExamples is the number of example sentences stored per card.
const MaxExamples = 2

// Examples is the JSONB examples_en column.
type Examples []string

// CleanExamples trims each example, drops blanks and keeps at most MaxExamples.
func CleanExamples(in []string) Examples {
	out := make(Examples, 0, MaxExamples)
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		out = append(out, e)
		if len(out) == MaxExamples {
			break
		}
	}
	return out
}

func (e Examples) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan accepts JSON text or bytes. Malformed content scans as an empty list.
func (e *Examples) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = Examples{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("examples: unsupported type %T", src)
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		*e = Examples{}
		return nil
	}
	out := make(Examples, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	*e = out
	return nil
}

// Card is a flashcard owned by one user.
type Card struct {
	ID            int64     `json:"id" db:"id"`
	Phrase        string    `json:"phrase" db:"phrase"`
	Translation   string    `json:"translation" db:"translation"`
	DescriptionEn string    `json:"description_en" db:"description_en"`
	ExamplesEn    Examples  `json:"examples_en" db:"examples_en"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	GroupIDs      []int64   `json:"groupIds" db:"-"`
}

// Unsorted reports whether the card belongs to no group.
func (c Card) Unsorted() bool { return len(c.GroupIDs) == 0 }

// InGroup reports whether the card belongs to groupID.
func (c Card) InGroup(groupID int64) bool {
	for _, id := range c.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// Content is the generated part of a card.
type Content struct {
	Phrase        string   `json:"phrase" validate:"required"`
	Translation   string   `json:"translation" validate:"required"`
	DescriptionEn string   `json:"descriptionEn" validate:"required"`
	ExamplesEn    []string `json:"examplesEn" validate:"len=2,dive,required"`
}

// Trimmed returns c with whitespace trimmed and examples cleaned.
func (c Content) Trimmed() Content {
	return Content{
		Phrase:        strings.TrimSpace(c.Phrase),
		Translation:   strings.TrimSpace(c.Translation),
		DescriptionEn: strings.TrimSpace(c.DescriptionEn),
		ExamplesEn:    CleanExamples(c.ExamplesEn),
	}
}
