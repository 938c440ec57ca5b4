package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

// DegradedReply is the in-band answer used when the model call fails.
const DegradedReply = "Lo siento, ocurrió un error al procesar tu solicitud. Por favor, inténtalo de nuevo en unos momentos."

const (
	extraDegraded     = "degraded"
	extraShortCircuit = "short_circuit"
)

// ToolCallingModel is a chat model that accepts tool definitions.
type ToolCallingModel interface {
	einomodel.BaseChatModel
	BindTools(tools []*schema.ToolInfo) error
}

// NewChatModel creates the Gemini chat model used by the chat node.
func NewChatModel(ctx context.Context, client *genai.Client, cfg model.LLMConfig) (*gemini.ChatModel, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client is nil")
	}
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", cfg.Model).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}
	return cm, nil
}

// BindTools binds tools to the chat model.
func BindTools(cm ToolCallingModel, tools []*schema.ToolInfo) error {
	if err := cm.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	logx.Debug().Int("tool_count", len(tools)).Msg("Successfully bound tools to chat model")
	return nil
}

// resilientModel never returns an error to the graph: a failed call becomes
// a degraded assistant message, and a sequence with nothing but system
// messages skips the call entirely.
type resilientModel struct {
	inner einomodel.BaseChatModel
}

// NewResilientModel wraps inner for use as the chat node.
func NewResilientModel(inner einomodel.BaseChatModel) einomodel.BaseChatModel {
	return &resilientModel{inner: inner}
}

func (m *resilientModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if !hasDialogue(input) {
		logx.Warn().Int("message_count", len(input)).Msg("No dialogue to send; skipping model call")
		return shortCircuitReply(), nil
	}
	out, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		logx.Error().Err(err).Msg("Chat model call failed")
		return degradedReply(), nil
	}
	if out == nil {
		return degradedReply(), nil
	}
	return out, nil
}

func (m *resilientModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	if !hasDialogue(input) {
		return schema.StreamReaderFromArray([]*schema.Message{shortCircuitReply()}), nil
	}
	sr, err := m.inner.Stream(ctx, input, opts...)
	if err != nil {
		logx.Error().Err(err).Msg("Chat model stream failed")
		return schema.StreamReaderFromArray([]*schema.Message{degradedReply()}), nil
	}
	return sr, nil
}

// IsCallbacksEnabled defers to the wrapped model so callbacks fire once.
func (m *resilientModel) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(m.inner)
}

func degradedReply() *schema.Message {
	msg := schema.AssistantMessage(DegradedReply, nil)
	msg.Extra = map[string]any{extraDegraded: true}
	return msg
}

func shortCircuitReply() *schema.Message {
	msg := schema.AssistantMessage("", nil)
	msg.Extra = map[string]any{extraShortCircuit: true}
	return msg
}

// IsDegraded reports whether msg is the degraded fallback.
func IsDegraded(msg *schema.Message) bool {
	if msg == nil {
		return true
	}
	v, _ := msg.Extra[extraDegraded].(bool)
	return v
}

func isShortCircuit(msg *schema.Message) bool {
	if msg == nil {
		return false
	}
	v, _ := msg.Extra[extraShortCircuit].(bool)
	return v && strings.TrimSpace(msg.Content) == ""
}
