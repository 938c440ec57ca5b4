package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/graph/tools"
	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

//go:embed template/system_prompt.txt
var coreSystemPrompt string

// RenderSystem renders the assistant system prompt and triggers prompt callbacks.
// userName and country are optional and only added when known.
func RenderSystem(ctx context.Context, config model.PromptConfig, userName, country string) (string, error) {
	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"AssistantName":     config.AssistantName,
		"ProductName":       config.ProductName,
		"Countries":         strings.Join(tools.LatamCountries, ", "),
		"UserName":          userName,
		"Country":           country,
		"VerifyCountryTool": tools.ToolVerifyCountry,
		"CountryTimeTool":   tools.ToolGetCountryTime,
		"RegisterCVTool":    tools.ToolRegisterCV,
		"SaveUserNameTool":  tools.ToolSaveUserName,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
