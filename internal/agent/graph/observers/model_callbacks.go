package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

// newModelHandler builds a typed ModelCallbackHandler to log user/assistant messages around model calls.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("component", string(info.Type)).Str("name", info.Name)
			if input != nil {
				ev = ev.Int("message_count", len(input.Messages)).
					Int("tool_count", len(input.Tools)).
					Str("user", logx.Truncate(lastUserContent(input.Messages), previewLimit))
			}
			ev.Msg("model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("component", string(info.Type)).Str("name", info.Name)
			if output != nil && output.Message != nil {
				ev = ev.Str("assistant", logx.Truncate(strings.TrimSpace(output.Message.Content), previewLimit)).
					Int("tool_calls", len(output.Message.ToolCalls))
			}
			if output != nil && output.TokenUsage != nil {
				ev = ev.Int("total_tokens", output.TokenUsage.TotalTokens)
			}
			ev.Msg("model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("component", string(info.Type)).Str("name", info.Name).Msg("model error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
