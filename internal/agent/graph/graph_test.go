package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/graph/nodes"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/tools"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

type step struct {
	msg *schema.Message
	err error
}

// scriptedModel replays canned replies and records what it was sent.
type scriptedModel struct {
	mu     sync.Mutex
	steps  []step
	inputs [][]*schema.Message
	bound  []*schema.ToolInfo
}

func (m *scriptedModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	if len(m.steps) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	s := m.steps[0]
	m.steps = m.steps[1:]
	return s.msg, s.err
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) BindTools(t []*schema.ToolInfo) error {
	m.bound = t
	return nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type countingAnalyzer struct {
	calls int
	texts []string
}

func (a *countingAnalyzer) Analyze(ctx context.Context, text string) (*model.CVAnalysis, error) {
	a.calls++
	a.texts = append(a.texts, text)
	return &model.CVAnalysis{
		Success:           true,
		SimilarityProfile: model.SimilarityProfile{GoodPercentage: 80, GoodMatches: 4, BadMatches: 1},
		ContextExamples:   []string{"Resumen profesional claro"},
	}, nil
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func newRunner(t *testing.T, cm *scriptedModel, analyzer model.CVAnalyzer) Runner {
	t.Helper()
	r, err := NewRunner(context.Background(), &GraphConfig{
		ChatModel:    cm,
		ModelName:    "gemini-2.5-flash-lite",
		Tools:        tools.GetTools(tools.NewTimeClient("http://127.0.0.1:1", time.Second)),
		Analyzer:     analyzer,
		SystemPrompt: "Eres Geraldine.",
		ToolMaxCalls: 3,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func newConversation() *model.ConversationState {
	return &model.ConversationState{
		ThreadID: "api_test0001",
		Messages: []*schema.Message{schema.SystemMessage("Eres Geraldine.")},
	}
}

func TestReplyWithoutToolCallsEndsTurn(t *testing.T) {
	cm := &scriptedModel{steps: []step{{msg: schema.AssistantMessage("¡Hola! ¿Cómo te llamas?", nil)}}}
	r := newRunner(t, cm, nil)
	conv := newConversation()

	res, err := r.Invoke(context.Background(), model.TurnInput{Conversation: conv, Message: schema.UserMessage("Hola")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply != "¡Hola! ¿Cómo te llamas?" || res.Degraded {
		t.Fatalf("unexpected result %+v", res)
	}
	if cm.calls() != 1 {
		t.Fatalf("model called %d times, want 1", cm.calls())
	}
	if len(cm.bound) != 4 {
		t.Fatalf("bound %d tools, want 4", len(cm.bound))
	}
	if got := len(conv.Messages); got != 3 {
		t.Fatalf("conversation has %d messages, want system+user+assistant", got)
	}
	for _, m := range conv.Messages {
		if m.Role == schema.Tool {
			t.Fatal("tools node should not have run")
		}
	}
}

func TestRegisterCVRoutesThroughRAGOnce(t *testing.T) {
	cv := strings.Repeat("Analista de datos con experiencia en SQL y Python. ", 3)
	cm := &scriptedModel{steps: []step{
		{msg: toolCall("c1", tools.ToolRegisterCV, `{"cv_text":"`+cv+`"}`)},
		{msg: toolCall("c2", tools.ToolRegisterCV, `{"cv_text":"`+cv+`"}`)},
		{msg: schema.AssistantMessage("Tu CV tiene buena base.", nil)},
	}}
	analyzer := &countingAnalyzer{}
	r := newRunner(t, cm, analyzer)
	conv := newConversation()

	res, err := r.Invoke(context.Background(), model.TurnInput{Conversation: conv, Message: schema.UserMessage("Aquí está mi CV")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply != "Tu CV tiene buena base." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if analyzer.calls != 1 {
		t.Fatalf("analyzer called %d times, want exactly 1", analyzer.calls)
	}
	if conv.CVAnalysis == nil || conv.CVAnalysis.SimilarityProfile.GoodMatches != 4 {
		t.Fatalf("analysis not stored: %+v", conv.CVAnalysis)
	}

	// the call after rag sees the internal context right before the tool result
	second := cm.inputs[1]
	ctxMsg := second[len(second)-2]
	if ctxMsg.Role != schema.System || !strings.Contains(ctxMsg.Content, "80.0%") {
		t.Fatalf("expected internal context before last message, got %s: %q", ctxMsg.Role, ctxMsg.Content)
	}
	if second[len(second)-1].Role != schema.Tool {
		t.Fatalf("last message should be the tool result, got %s", second[len(second)-1].Role)
	}
}

func TestVerifyCountryUpdatesStateWithoutRAG(t *testing.T) {
	cm := &scriptedModel{steps: []step{
		{msg: toolCall("", tools.ToolVerifyCountry, `{"country_name":" peru "}`)},
		{msg: schema.AssistantMessage("Perfecto, atendemos en Perú.", nil)},
	}}
	analyzer := &countingAnalyzer{}
	r := newRunner(t, cm, analyzer)
	conv := newConversation()

	if _, err := r.Invoke(context.Background(), model.TurnInput{Conversation: conv, Message: schema.UserMessage("Soy de Perú")}); err != nil {
		t.Fatal(err)
	}
	if conv.Country != "Perú" || !conv.CountryVerified {
		t.Fatalf("country not stored: %+v", conv)
	}
	if analyzer.calls != 0 {
		t.Fatal("rag must not run without a CV")
	}

	var call *schema.Message
	var result *schema.Message
	for _, m := range conv.Messages {
		if len(m.ToolCalls) > 0 {
			call = m
		}
		if m.Role == schema.Tool {
			result = m
		}
	}
	if call == nil || call.ToolCalls[0].ID != "call_1" {
		t.Fatalf("missing tool call id was not synthesized: %+v", call)
	}
	if result == nil || result.ToolCallID != "call_1" {
		t.Fatalf("tool result not linked to call_1: %+v", result)
	}
}

func TestModelErrorBecomesDegradedReply(t *testing.T) {
	cm := &scriptedModel{steps: []step{{err: errors.New("503 unavailable")}}}
	r := newRunner(t, cm, nil)
	conv := newConversation()

	res, err := r.Invoke(context.Background(), model.TurnInput{Conversation: conv, Message: schema.UserMessage("Hola")})
	if err != nil {
		t.Fatalf("errors must stay in band, got %v", err)
	}
	if !res.Degraded || res.Reply != nodes.DegradedReply {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDuplicatedLinksAreRewritten(t *testing.T) {
	reply := "Revisa [https://drive.google.com/x](https://drive.google.com/x) y [Guía](https://other.com/y)"
	cm := &scriptedModel{steps: []step{{msg: schema.AssistantMessage(reply, nil)}}}
	r := newRunner(t, cm, nil)

	res, err := r.Invoke(context.Background(), model.TurnInput{Conversation: newConversation(), Message: schema.UserMessage("links")})
	if err != nil {
		t.Fatal(err)
	}
	want := "Revisa [Ver archivo en Google Drive](https://drive.google.com/x) y [Guía](https://other.com/y)"
	if res.Reply != want {
		t.Fatalf("reply = %q, want %q", res.Reply, want)
	}
}

func TestToolLimitEndsTurn(t *testing.T) {
	loop := func(id string) step {
		return step{msg: toolCall(id, tools.ToolSaveUserName, `{"user_name":"Ana"}`)}
	}
	cm := &scriptedModel{steps: []step{loop("a"), loop("b"), loop("c"), loop("d"), loop("e")}}
	r := newRunner(t, cm, nil)
	conv := newConversation()

	res, err := r.Invoke(context.Background(), model.TurnInput{Conversation: conv, Message: schema.UserMessage("Me llamo Ana")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply != "" {
		t.Fatalf("a reply that still asks for tools has no text, got %q", res.Reply)
	}
	if cm.calls() != 4 {
		t.Fatalf("model called %d times, want 4 (3 tool steps + wrap-up)", cm.calls())
	}
	last := cm.inputs[3]
	if n := last[len(last)-1]; n.Role != schema.System || !strings.Contains(n.Content, "maximum tool call limit") {
		t.Fatalf("wrap-up notice missing, last message %s: %q", n.Role, n.Content)
	}
	if conv.UserName != "Ana" {
		t.Fatalf("user name = %q", conv.UserName)
	}
}

func TestInvokeWithoutConversation(t *testing.T) {
	r := newRunner(t, &scriptedModel{}, nil)
	if _, err := r.Invoke(context.Background(), model.TurnInput{Message: schema.UserMessage("hola")}); err == nil {
		t.Fatal("expected error")
	}
}
