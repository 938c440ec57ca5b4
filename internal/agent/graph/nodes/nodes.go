package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

// ToolResultApplier folds a tool result into the conversation state and
// reports whether the CV summary changed.
type ToolResultApplier func(conv *model.ConversationState, toolName, result string) (cvChanged bool)

// NewTurnInputPreHandler binds the thread state to the graph state and resets per-turn counters.
func NewTurnInputPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		if in.Conversation == nil {
			return in, fmt.Errorf("turn input without conversation state")
		}
		s.Conversation = in.Conversation
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.PendingCalls = map[string]schema.ToolCall{}
		s.CVSummaryChanged = false
		s.RAGAttempted = false
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewTurnInputNode emits the new user message.
func NewTurnInputNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) ([]*schema.Message, error) {
		if in.Message == nil {
			return []*schema.Message{}, nil
		}
		return []*schema.Message{in.Message}, nil
	})
}

// NewTurnInputPostHandler appends the user message to the thread.
func NewTurnInputPostHandler() func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, s *model.TurnState) ([]*schema.Message, error) {
		s.Conversation.Messages = append(s.Conversation.Messages, out...)
		return out, nil
	}
}

// NewChatPreHandler replaces the node input with the repaired, enriched
// thread sequence. The input itself is ignored because every upstream node
// already appended its output to the thread.
func NewChatPreHandler(systemPrompt string, maxToolCalls int) func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, _ []*schema.Message, s *model.TurnState) ([]*schema.Message, error) {
		conv := s.Conversation
		repairToolResultIDs(conv.Messages)

		msgs := SanitizeMessages(conv.Messages, systemPrompt)
		msgs = EnrichWithCV(msgs, conv)

		if checkAndMarkToolLimit(s, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			msgs = append(msgs, schema.SystemMessage(fmt.Sprintf(
				"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
					"Answer the user with the information you already have and do not call more tools.",
				maxToolCalls,
			)))
		}

		logx.Debug().
			Str("thread_id", conv.ThreadID).
			Int("message_count", len(msgs)).
			Msg("AI thinking...")
		return msgs, nil
	}
}

// NewChatPostHandler prices the reply, rewrites duplicated links, repairs
// tool call ids and appends the reply to the thread.
func NewChatPostHandler(modelName string) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if out == nil {
			out = degradedReply()
		}
		conv := state.Conversation

		// Compute usage cost if available
		if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			usage := out.ResponseMeta.Usage
			inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = map[string]any{
				"currency":          "USD",
				"model":             modelName,
				"prompt_tokens":     usage.PromptTokens,
				"completion_tokens": usage.CompletionTokens,
				"total_tokens":      usage.TotalTokens,
				"input_cost":        inC,
				"output_cost":       outC,
				"total_cost":        totalC,
			}
			logx.Debug().
				Str("thread_id", conv.ThreadID).
				Str("node", NodeChat).
				Str("model", modelName).
				Int("prompt_tokens", usage.PromptTokens).
				Int("completion_tokens", usage.CompletionTokens).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			state.TotalCostUSD += totalC
			out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
		}

		out.Content = RewriteDuplicatedLinks(out.Content)

		// Normalize tool calls: some providers may omit tool_call IDs.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		if isShortCircuit(out) {
			logx.Debug().Str("thread_id", conv.ThreadID).Msg("Turn short-circuited")
			return out, nil
		}
		conv.Messages = append(conv.Messages, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}
		return out, nil
	}
}

// NewChatCondition routes a reply with tool calls to the tools node unless
// the tool call limit was reached.
func NewChatCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}
		if input != nil && len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to tools")
			return NodeTools, nil
		}

		logx.Debug().Msg("No tool calls - continuing to end")
		return compose.END, nil
	}
}

// NewToolsPreHandler counts the tool step and remembers which tool each call id targets.
func NewToolsPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if state.PendingCalls == nil {
			state.PendingCalls = map[string]schema.ToolCall{}
		}
		for _, tc := range in.ToolCalls {
			state.PendingCalls[tc.ID] = tc
		}

		exceeded := incrementToolCallAndCheck(state, maxToolCalls)
		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("thread_id", state.Conversation.ThreadID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("thread_id", state.Conversation.ThreadID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewToolsPostHandler appends tool results to the thread and applies their effects.
func NewToolsPostHandler(apply ToolResultApplier) func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.TurnState) ([]*schema.Message, error) {
		conv := state.Conversation
		for _, msg := range out {
			if msg == nil {
				continue
			}
			name := msg.ToolName
			if tc, ok := state.PendingCalls[msg.ToolCallID]; ok {
				name = tc.Function.Name
			}
			if apply != nil && apply(conv, name, msg.Content) {
				state.CVSummaryChanged = true
			}
			conv.Messages = append(conv.Messages, msg)
		}
		return out, nil
	}
}

// NewToolsCondition sends the turn through RAG once, right after a tool
// step populated the CV summary of a thread that has no analysis yet.
func NewToolsCondition() func(context.Context, []*schema.Message) (string, error) {
	return func(ctx context.Context, _ []*schema.Message) (string, error) {
		next := NodeChat
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			if state.CVSummaryChanged && state.Conversation.CVAnalysis == nil && !state.RAGAttempted {
				next = NodeRAG
			}
			state.CVSummaryChanged = false
			return nil
		})
		if err != nil {
			return "", err
		}
		logx.Debug().Str("next", next).Msg("Routing after tools")
		return next, nil
	}
}

// NewRAGNode analyses the CV summary and stores a successful analysis.
// Failures are logged and leave the state untouched.
func NewRAGNode(analyzer model.CVAnalyzer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) ([]*schema.Message, error) {
		var text, threadID string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			state.RAGAttempted = true
			text = state.Conversation.CVSummary
			threadID = state.Conversation.ThreadID
			return nil
		})
		if err != nil {
			return in, err
		}
		if analyzer == nil {
			logx.Debug().Str("thread_id", threadID).Msg("RAG disabled - skipping analysis")
			return in, nil
		}

		analysis, err := analyzer.Analyze(ctx, text)
		if err != nil {
			logx.Warn().Err(err).Str("thread_id", threadID).Msg("CV analysis failed")
			return in, nil
		}
		if analysis == nil || !analysis.Success {
			logx.Debug().Str("thread_id", threadID).Msg("CV analysis produced no result")
			return in, nil
		}

		err = compose.ProcessState(ctx, func(_ context.Context, state *model.TurnState) error {
			state.Conversation.CVAnalysis = analysis
			return nil
		})
		logx.Debug().
			Str("thread_id", threadID).
			Float64("good_percentage", analysis.SimilarityProfile.GoodPercentage).
			Msg("CV analysis stored")
		return in, err
	})
}

// repairToolResultIDs gives tool results without an id the id of the most
// recent preceding tool call.
func repairToolResultIDs(msgs []*schema.Message) {
	lastID := ""
	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch {
		case m.Role == schema.Assistant && len(m.ToolCalls) > 0:
			lastID = m.ToolCalls[len(m.ToolCalls)-1].ID
		case m.Role == schema.Tool && strings.TrimSpace(m.ToolCallID) == "" && lastID != "":
			m.ToolCallID = lastID
		}
	}
}
