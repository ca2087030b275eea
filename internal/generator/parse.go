package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
)

// SchemaError reports model output that is not the JSON shape we asked for.
type SchemaError struct {
	Reason string
	Issues []apperr.Issue
}

func (e *SchemaError) Error() string {
	return "model output does not match the expected format: " + e.Reason
}

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("```\\s*$")

	strict = bluemonday.StrictPolicy()
)

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// decode parses text as JSON, retrying once without a code fence.
func decode(text string, dst any) error {
	if err := json.Unmarshal([]byte(text), dst); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(stripFence(text)), dst); err != nil {
		return &SchemaError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func check(v any) error {
	err := httpx.Validate(v)
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return &SchemaError{Reason: ae.Message, Issues: ae.Issues}
	}
	return &SchemaError{Reason: err.Error()}
}

// plain strips any markup the model produced and leaves readable text.
func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

type cardsPayload struct {
	Cards []entity.Content `json:"cards" validate:"dive"`
}

// ParseCards decodes a card batch, strips markup and validates what is left,
// so a field made only of tags or whitespace is rejected.
func ParseCards(text string) ([]entity.Content, error) {
	var p cardsPayload
	if err := decode(text, &p.Cards); err != nil {
		return nil, err
	}
	for i := range p.Cards {
		c := &p.Cards[i]
		c.Phrase = plain(c.Phrase)
		c.Translation = plain(c.Translation)
		c.DescriptionEn = plain(c.DescriptionEn)
		for j, e := range c.ExamplesEn {
			c.ExamplesEn[j] = plain(e)
		}
	}
	if err := check(&p); err != nil {
		return nil, err
	}
	return p.Cards, nil
}

type examplesPayload struct {
	Examples []string `json:"examples" validate:"len=2,dive,required"`
}

// ParseExamples decodes exactly two example sentences, validated after
// markup is stripped.
func ParseExamples(text string) ([]string, error) {
	var p examplesPayload
	if err := decode(text, &p.Examples); err != nil {
		return nil, err
	}
	for i, e := range p.Examples {
		p.Examples[i] = plain(e)
	}
	if err := check(&p); err != nil {
		return nil, err
	}
	return p.Examples, nil
}
