package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

const (
	ToolVerifyCountry  = "verify_country"
	ToolGetCountryTime = "get_country_time"
	ToolRegisterCV     = "register_cv"
	ToolSaveUserName   = "save_user_name"
)

// stringParams lists the string arguments of each tool, used when sanitizing.
var stringParams = map[string][]string{
	ToolVerifyCountry:  {"country_name"},
	ToolGetCountryTime: {"country"},
	ToolRegisterCV:     {"cv_text"},
	ToolSaveUserName:   {"user_name"},
}

// GetTools returns every tool bound to the chat model.
func GetTools(timeClient *TimeClient) []tool.BaseTool {
	return []tool.BaseTool{
		createVerifyCountryTool(),
		createCountryTimeTool(timeClient),
		createRegisterCVTool(),
		createSaveUserNameTool(),
	}
}

// GetToolInfos collects the schema of each tool for model binding.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// UnknownTool answers hallucinated or malformed tool calls with a structured result.
func UnknownTool(ctx context.Context, name, input string) (string, error) {
	logx.Warn().
		Str("tool_name", name).
		Str("arguments", logx.Truncate(input, 200)).
		Msg("Unknown or invalid tool call; returning fallback result")
	return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
}

// SanitizeArguments trims string arguments and coerces non-strings to
// strings. Arguments that are not a JSON object become "{}" so the tool
// reports the missing field instead of failing the graph.
func SanitizeArguments(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil || m == nil {
		logx.Warn().Str("tool_name", name).Str("arguments", logx.Truncate(arguments, 200)).Msg("Tool arguments are not a JSON object")
		return "{}", nil
	}

	for _, key := range stringParams[name] {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch vv := v.(type) {
		case string:
			m[key] = strings.TrimSpace(vv)
		case nil:
			delete(m, key)
		default:
			m[key] = strings.TrimSpace(fmt.Sprint(v))
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// ApplyResult folds a tool result into the conversation state. It returns
// true when the CV summary was newly set or changed.
func ApplyResult(conv *model.ConversationState, name, result string) bool {
	switch name {
	case ToolVerifyCountry:
		var out VerifyCountryOutput
		if json.Unmarshal([]byte(result), &out) != nil {
			return false
		}
		conv.CountryVerified = out.Verified
		if out.Verified {
			conv.Country = out.Country
		}
	case ToolRegisterCV:
		var out RegisterCVOutput
		if json.Unmarshal([]byte(result), &out) != nil || !out.Registered {
			return false
		}
		if out.CVSummary != conv.CVSummary {
			conv.CVSummary = out.CVSummary
			// a different CV invalidates the previous analysis
			conv.CVAnalysis = nil
			return true
		}
	case ToolSaveUserName:
		var out SaveUserNameOutput
		if json.Unmarshal([]byte(result), &out) != nil || !out.Saved {
			return false
		}
		conv.UserName = out.UserName
	}
	return false
}
