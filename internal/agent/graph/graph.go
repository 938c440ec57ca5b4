package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/graph/nodes"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/observers"
	"github.com/Jadir123-w/repli-post/internal/agent/graph/tools"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

// Runner is a thin wrapper to execute the compiled graph for one turn.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModel    nodes.ToolCallingModel
	ModelName    string
	Tools        []tool.BaseTool
	Analyzer     model.CVAnalyzer // nil disables the rag node's work
	SystemPrompt string
	ToolMaxCalls int
}

// GraphBuilder handles the construction of the conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *schema.Message]
}

// Invoke runs one turn. Failures inside the graph come back as a degraded
// reply; only a missing conversation is reported as an error.
func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	if in.Conversation == nil {
		return nil, fmt.Errorf("turn input without conversation state")
	}

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Error().Err(err).Str("thread_id", in.Conversation.ThreadID).Msg("Graph invocation failed")
		return &model.TurnResult{Reply: nodes.DegradedReply, Degraded: true}, nil
	}

	res := &model.TurnResult{}
	if out == nil {
		return res, nil
	}
	res.Degraded = nodes.IsDegraded(out)
	if len(out.ToolCalls) == 0 {
		res.Reply = strings.TrimSpace(out.Content)
	}
	if total, ok := out.Extra["usage_cost_total_usd"].(float64); ok {
		res.TotalCostUSD = total
	}
	return res, nil
}

// NewRunner builds and compiles the graph and returns a Runner.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Conversation graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled conversation graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	// Basic config validation
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModel == nil {
		return nil, fmt.Errorf("chat model is not initialized")
	}
	if strings.TrimSpace(config.SystemPrompt) == "" {
		return nil, fmt.Errorf("system prompt is empty")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the tools to the chat model and adds the tools node
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := nodes.BindTools(b.config.ChatModel, toolInfos); err != nil {
		return err
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                b.config.Tools,
		ExecuteSequentially:  true,
		UnknownToolsHandler:  tools.UnknownTool,
		ToolArgumentsHandler: tools.SanitizeArguments,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeTools, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolsPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewToolsPostHandler(tools.ApplyResult)),
	)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	if err := b.graph.AddLambdaNode(nodes.NodeTurnInput,
		nodes.NewTurnInputNode(),
		compose.WithStatePreHandler(nodes.NewTurnInputPreHandler()),
		compose.WithStatePostHandler(nodes.NewTurnInputPostHandler()),
	); err != nil {
		return fmt.Errorf("add %s node: %w", nodes.NodeTurnInput, err)
	}

	if err := b.graph.AddChatModelNode(nodes.NodeChat,
		nodes.NewResilientModel(b.config.ChatModel),
		compose.WithStatePreHandler(nodes.NewChatPreHandler(b.config.SystemPrompt, b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewChatPostHandler(b.config.ModelName)),
	); err != nil {
		return fmt.Errorf("add %s node: %w", nodes.NodeChat, err)
	}

	if err := b.graph.AddLambdaNode(nodes.NodeRAG, nodes.NewRAGNode(b.config.Analyzer)); err != nil {
		return fmt.Errorf("add %s node: %w", nodes.NodeRAG, err)
	}
	return nil
}

// addEdges creates the unconditional connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeTurnInput},
		{nodes.NodeTurnInput, nodes.NodeChat},
		{nodes.NodeRAG, nodes.NodeChat},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	chatBranch := compose.NewGraphBranch(
		nodes.NewChatCondition(),
		map[string]bool{
			nodes.NodeTools: true,
			compose.END:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeChat, chatBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding chat branch")
		return fmt.Errorf("error adding chat branch: %w", err)
	}

	toolsBranch := compose.NewGraphBranch(
		nodes.NewToolsCondition(),
		map[string]bool{
			nodes.NodeRAG:  true,
			nodes.NodeChat: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeTools, toolsBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tools branch")
		return fmt.Errorf("error adding tools branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*3
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps), compose.WithGraphName("repli_turn"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}
