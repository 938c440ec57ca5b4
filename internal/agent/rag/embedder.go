package rag

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.client == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_QUERY",
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api returned empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}
