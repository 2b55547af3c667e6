package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini completes through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: creating genai client: %w", err)
	}
	return &Gemini{client: client, model: opts.Model}, nil
}

// Complete implements Completer.
func (g *Gemini) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("llm: gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("llm: unexpected empty response from gemini")
	}
	return text, nil
}
