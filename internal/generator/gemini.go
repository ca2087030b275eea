package generator

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Model turns a prompt into raw model text.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiModel struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Model backed by the Gemini API.
func NewGemini(ctx context.Context, cfg Config) (Model, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &geminiModel{client: client, model: cfg.Model}, nil
}

func (g *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
