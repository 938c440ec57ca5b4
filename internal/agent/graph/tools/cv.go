package tools

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ===================================
// Register CV Tool
// ===================================

type RegisterCVInput struct {
	CVText string `json:"cv_text"`
}

type RegisterCVOutput struct {
	Registered bool   `json:"registered"`
	CVSummary  string `json:"cv_summary,omitempty"`
	Chars      int    `json:"chars"`
	Error      string `json:"error,omitempty"`
}

func createRegisterCVTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRegisterCV,
			Desc: "Registra el texto del CV o perfil profesional del usuario para analizarlo. Úsala cuando el usuario comparta su CV, ya sea pegado en el chat o extraído de un archivo.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"cv_text": {
					Type:     schema.String,
					Desc:     "Texto completo del CV tal como lo proporcionó el usuario.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *RegisterCVInput) (*RegisterCVOutput, error) {
			text := strings.TrimSpace(in.CVText)
			if text == "" {
				return &RegisterCVOutput{Error: "cv_text is empty"}, nil
			}
			return &RegisterCVOutput{
				Registered: true,
				CVSummary:  text,
				Chars:      utf8.RuneCountInString(text),
			}, nil
		},
	)
}
