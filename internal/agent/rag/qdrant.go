package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantSearcher searches a collection whose points carry "label" and
// "content" payload fields.
type QdrantSearcher struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantSearcher(client *qdrant.Client, collection string) *QdrantSearcher {
	return &QdrantSearcher{client: client, collection: collection}
}

func (s *QdrantSearcher) Search(ctx context.Context, vector []float32, limit int, minScore float32) ([]Match, error) {
	limitUint64 := uint64(limit)
	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if minScore > 0 {
		query.ScoreThreshold = &minScore
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	matches := make([]Match, 0, len(points))
	for _, point := range points {
		m := Match{Score: point.Score}
		for k, v := range point.Payload {
			switch k {
			case "label":
				m.Label = v.GetStringValue()
			case "content", "text", "page_content":
				if str := v.GetStringValue(); str != "" && m.Content == "" {
					m.Content = str
				}
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantSearcher) Close() error {
	return s.client.Close()
}
