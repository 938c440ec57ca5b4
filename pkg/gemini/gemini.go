package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Config is bound from GEMINI_* variables.
type Config struct {
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`
}

// New creates a Gemini API client shared by chat, embeddings and media extraction.
func (c *Config) New(ctx context.Context) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  c.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = c.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// TextOf joins the non-thought text parts of a response.
func TextOf(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
