package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ===================================
// Save User Name Tool
// ===================================

type SaveUserNameInput struct {
	UserName string `json:"user_name"`
}

type SaveUserNameOutput struct {
	Saved    bool   `json:"saved"`
	UserName string `json:"user_name,omitempty"`
	Error    string `json:"error,omitempty"`
}

func createSaveUserNameTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSaveUserName,
			Desc: "Guarda el nombre del usuario en cuanto lo comparta.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_name": {
					Type:     schema.String,
					Desc:     "Nombre con el que el usuario quiere ser llamado.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SaveUserNameInput) (*SaveUserNameOutput, error) {
			name := strings.Join(strings.Fields(in.UserName), " ")
			if name == "" {
				return &SaveUserNameOutput{Error: "user_name is empty"}, nil
			}
			return &SaveUserNameOutput{Saved: true, UserName: name}, nil
		},
	)
}
