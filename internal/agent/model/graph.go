package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// SimilarityProfile summarises how a CV compares to labelled examples.
type SimilarityProfile struct {
	GoodPercentage float64 `json:"good_percentage" bson:"good_percentage"`
	GoodMatches    int     `json:"good_matches" bson:"good_matches"`
	BadMatches     int     `json:"bad_matches" bson:"bad_matches"`
}

type CVAnalysis struct {
	Success           bool              `json:"success" bson:"success"`
	SimilarityProfile SimilarityProfile `json:"similarity_profile" bson:"similarity_profile"`
	ContextExamples   []string          `json:"context_examples,omitempty" bson:"context_examples,omitempty"`
	Error             string            `json:"error,omitempty" bson:"error,omitempty"`
}

// CVAnalyzer scores CV text against a corpus of examples. A nil analysis
// with a nil error means the text was not worth analysing.
type CVAnalyzer interface {
	Analyze(ctx context.Context, text string) (*CVAnalysis, error)
}

// ConversationState is the per-thread record the graph works on.
// It is owned by a session and only mutated while the session lock is held.
type ConversationState struct {
	ThreadID        string
	Messages        []*schema.Message
	UserName        string
	Country         string
	CountryVerified bool
	CVSummary       string
	CVAnalysis      *CVAnalysis
	CVInfo          map[string]any
}

// TurnState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Conversation points at the session's state; the session lock is held
//     for the whole invocation so nothing else touches it meanwhile.
type TurnState struct {
	Conversation         *ConversationState
	ToolCallCount        int  // maintained in handlers (reset/increment)
	ToolCallLimitReached bool // set when tool call limit is exceeded
	ToolCallIDSeq        int  // local sequence to synthesize tool_call_id when provider omits
	PendingCalls         map[string]schema.ToolCall
	CVSummaryChanged     bool // set by the tools post-handler, consumed by the tools branch
	RAGAttempted         bool

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnInput is the graph input: the thread to work on and the new user message.
type TurnInput struct {
	Conversation *ConversationState
	Message      *schema.Message
}

// TurnResult is what a caller gets back from one invocation.
type TurnResult struct {
	Reply        string
	Degraded     bool
	TotalCostUSD float64
}
