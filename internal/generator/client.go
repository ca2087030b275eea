// Package generator asks a generative model for card content and validates
// what comes back.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/apperr"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/card/entity"
	"github.com/ovaphlow/pitchfork/card-flasher/pkg/metrics"
)

// ErrNotConfigured is wrapped when no API key is set.
var ErrNotConfigured = errors.New("GOOGLE_API_KEY is missing")

// Client generates card content. A nil model means the service is not
// configured; every call then fails with an upstream error.
type Client struct {
	model   Model
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func NewClient(model Model, cfg Config, logger *zap.SugaredLogger) *Client {
	return &Client{model: model, timeout: cfg.Timeout, logger: logger}
}

// New builds a Gemini-backed client, or an unconfigured one when the API
// key is missing.
func New(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if !cfg.Configured() {
		logger.Warnw("generation disabled", "reason", ErrNotConfigured.Error())
		return NewClient(nil, cfg, logger), nil
	}
	m, err := NewGemini(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(m, cfg, logger), nil
}

const cardsPrompt = `
You are generating flash cards for English learning.

Task:
- For each input English phrase/word, generate:
  1) translation: translate to %s
  2) descriptionEn: concise explanation in English (meaning + usage context)
  3) examplesEn: exactly 2 short, natural example sentences in English

Rules:
- Normalize each input to its base dictionary form before returning "phrase":
  - verbs -> infinitive/base form (e.g., "went" -> "go", "running" -> "run")
  - nouns -> singular base form when applicable
  - short phrases -> canonical/base wording while preserving original meaning
- descriptionEn must always be in English.
- examplesEn must always be in English and contain exactly 2 items.
- Return strict JSON array only. No markdown. No code fences.
- JSON schema per item:
  {
    "phrase": "string",
    "translation": "string",
    "descriptionEn": "string",
    "examplesEn": ["string", "string"]
  }

Input phrases:
%s
`

const examplesPrompt = `
You generate English usage examples for a flash card.

Task:
- Create exactly 2 short, natural English example sentences for this phrase/word:
  %q

Rules:
- Return strict JSON array only.
- No markdown. No code fences.
- Exactly 2 string items.

Output format:
["example sentence 1", "example sentence 2"]
`

// GenerateCards asks for one card per phrase in a single call. The model
// normalizes each phrase to its base form.
func (c *Client) GenerateCards(ctx context.Context, phrases []string, targetLanguage string) ([]entity.Content, error) {
	clean := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		return []entity.Content{}, nil
	}
	list, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		return nil, err
	}
	text, err := c.call(ctx, "cards", fmt.Sprintf(cardsPrompt, strings.TrimSpace(targetLanguage), list))
	if err != nil {
		return nil, err
	}
	cards, err := ParseCards(text)
	if err != nil {
		return nil, c.schemaFailure("cards", err)
	}
	metrics.GenerationRequestsTotal.WithLabelValues("cards", "ok").Inc()
	return cards, nil
}

// GenerateExamples asks for exactly two new example sentences.
func (c *Client) GenerateExamples(ctx context.Context, phrase string) ([]string, error) {
	text, err := c.call(ctx, "examples", fmt.Sprintf(examplesPrompt, strings.TrimSpace(phrase)))
	if err != nil {
		return nil, err
	}
	examples, err := ParseExamples(text)
	if err != nil {
		return nil, c.schemaFailure("examples", err)
	}
	metrics.GenerationRequestsTotal.WithLabelValues("examples", "ok").Inc()
	return examples, nil
}

func (c *Client) call(ctx context.Context, kind, prompt string) (string, error) {
	if c.model == nil {
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "unconfigured").Inc()
		return "", apperr.Upstream("Generation service is not configured: GOOGLE_API_KEY is missing.", ErrNotConfigured)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := c.model.Generate(ctx, prompt)
	metrics.GenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "error").Inc()
		c.logger.Warnw("generation request failed", "kind", kind, "err", err)
		return "", apperr.Upstream("Generation request failed: "+err.Error(), err)
	}
	if strings.TrimSpace(text) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "empty").Inc()
		return "", apperr.Upstream("Google model returned empty response.", nil)
	}
	return text, nil
}

func (c *Client) schemaFailure(kind string, err error) error {
	metrics.GenerationRequestsTotal.WithLabelValues(kind, "invalid").Inc()
	c.logger.Warnw("model output rejected", "kind", kind, "err", err)
	return apperr.Upstream(err.Error(), err)
}
