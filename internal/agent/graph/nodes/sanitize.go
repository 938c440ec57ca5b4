package nodes

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

const (
	cvContextLimit      = 4000
	cvExampleLimit      = 2
	cvExampleCharsLimit = 500
	emptyToolResult     = "{}"
)

// SanitizeMessages returns a copy of msgs that the chat model accepts:
// nil and blank messages are dropped (assistant tool-call turns survive even
// without text), tool results always carry text, and the sequence starts
// with exactly one system message.
func SanitizeMessages(msgs []*schema.Message, systemPrompt string) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs)+1)
	var lead *schema.Message

	for _, m := range msgs {
		if m == nil {
			continue
		}
		blank := strings.TrimSpace(m.Content) == "" && len(m.MultiContent) == 0
		switch m.Role {
		case schema.System:
			if lead == nil && !blank {
				lead = m
			}
			continue
		case schema.Tool:
			if strings.TrimSpace(m.Content) == "" {
				cp := *m
				cp.Content = toolText(m)
				m = &cp
			}
		case schema.Assistant:
			if blank && len(m.ToolCalls) == 0 {
				continue
			}
		default:
			if blank {
				continue
			}
		}
		out = append(out, m)
	}

	if lead == nil && strings.TrimSpace(systemPrompt) != "" {
		lead = schema.SystemMessage(systemPrompt)
	}
	if lead != nil {
		out = append([]*schema.Message{lead}, out...)
	}
	return out
}

func toolText(m *schema.Message) string {
	var parts []string
	for _, p := range m.MultiContent {
		if p.Type == schema.ChatMessagePartTypeText && strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	if len(parts) == 0 {
		return emptyToolResult
	}
	return strings.Join(parts, "\n")
}

// hasDialogue reports whether msgs holds anything besides system messages.
func hasDialogue(msgs []*schema.Message) bool {
	for _, m := range msgs {
		if m != nil && m.Role != schema.System {
			return true
		}
	}
	return false
}

// EnrichWithCV splices an internal context message right before the last
// message when the thread has CV data. A plain assistant reply at the tail
// means the model already answered, so nothing is added.
func EnrichWithCV(msgs []*schema.Message, conv *model.ConversationState) []*schema.Message {
	if conv == nil || len(msgs) == 0 {
		return msgs
	}
	last := msgs[len(msgs)-1]
	if last.Role == schema.Assistant && len(last.ToolCalls) == 0 {
		return msgs
	}
	block := cvContext(conv)
	if block == "" {
		return msgs
	}

	out := make([]*schema.Message, 0, len(msgs)+1)
	out = append(out, msgs[:len(msgs)-1]...)
	ctxMsg := schema.SystemMessage(block)
	ctxMsg.Name = "internal_context"
	out = append(out, ctxMsg, last)
	return out
}

func cvContext(conv *model.ConversationState) string {
	var sections []string

	if cv := strings.TrimSpace(conv.CVSummary); cv != "" {
		sections = append(sections, "CV TEXT:\n"+truncateRunes(cv, cvContextLimit, "... [CV truncated]"))
	}

	if a := conv.CVAnalysis; a != nil && a.Success {
		p := a.SimilarityProfile
		sections = append(sections, fmt.Sprintf(
			"COMPARATIVE ANALYSIS:\n- Similarity with good examples: %.1f%%\n- Good matches: %d\n- Bad matches: %d",
			p.GoodPercentage, p.GoodMatches, p.BadMatches,
		))
		if len(a.ContextExamples) > 0 {
			var b strings.Builder
			b.WriteString("RELEVANT EXAMPLES:")
			for i, ex := range a.ContextExamples {
				if i == cvExampleLimit {
					break
				}
				fmt.Fprintf(&b, "\n- Example %d: %s", i+1, truncateRunes(ex, cvExampleCharsLimit, "... [truncated]"))
			}
			sections = append(sections, b.String())
		}
	}

	if len(sections) == 0 {
		return ""
	}
	return "[Internal context for this reply. Mention it only when the user asks about their CV or its analysis.]\n\n" +
		strings.Join(sections, "\n\n") +
		"\n\n[End of internal context]"
}
