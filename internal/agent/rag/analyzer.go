package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

const (
	LabelGood = "good"
	LabelBad  = "bad"

	defaultMinTextLength = 50
	defaultTopK          = 5
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one labelled example returned by a similarity search.
type Match struct {
	Label   string
	Content string
	Score   float32
}

// ExampleSearcher finds the labelled examples closest to a vector.
type ExampleSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, minScore float32) ([]Match, error)
}

// Analyzer scores CV text against labelled good/bad CV examples.
type Analyzer struct {
	embedder Embedder
	searcher ExampleSearcher
	cfg      model.RAGConfig
}

func NewAnalyzer(embedder Embedder, searcher ExampleSearcher, cfg model.RAGConfig) *Analyzer {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = defaultMinTextLength
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &Analyzer{embedder: embedder, searcher: searcher, cfg: cfg}
}

// Analyze returns nil, nil for text too short to be a CV.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*model.CVAnalysis, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < a.cfg.MinTextLength {
		logx.Debug().Int("chars", utf8.RuneCountInString(text)).Msg("CV text too short for analysis")
		return nil, nil
	}

	vector, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed cv: %w", err)
	}

	matches, err := a.searcher.Search(ctx, vector, a.cfg.TopK, a.cfg.MinScore)
	if err != nil {
		return nil, fmt.Errorf("search cv examples: %w", err)
	}

	return profile(matches), nil
}

// profile counts good and bad matches. Matches are expected best first.
func profile(matches []Match) *model.CVAnalysis {
	out := &model.CVAnalysis{Success: true}
	for _, m := range matches {
		switch strings.ToLower(strings.TrimSpace(m.Label)) {
		case LabelGood:
			out.SimilarityProfile.GoodMatches++
			if c := strings.TrimSpace(m.Content); c != "" {
				out.ContextExamples = append(out.ContextExamples, c)
			}
		case LabelBad:
			out.SimilarityProfile.BadMatches++
		}
	}

	total := out.SimilarityProfile.GoodMatches + out.SimilarityProfile.BadMatches
	if total == 0 {
		out.Success = false
		out.Error = "no labelled examples matched"
		return out
	}
	out.SimilarityProfile.GoodPercentage = float64(out.SimilarityProfile.GoodMatches) / float64(total) * 100
	return out
}

var _ model.CVAnalyzer = (*Analyzer)(nil)
