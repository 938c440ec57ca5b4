package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

func TestRenderSystem(t *testing.T) {
	cfg := model.PromptConfig{AssistantName: "Geraldine", ProductName: "RepliKers"}

	got, err := RenderSystem(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Eres Geraldine", "verify_country", "register_cv", "República Dominicana"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "El usuario se llama") {
		t.Error("unknown user name should not be rendered")
	}

	got, err = RenderSystem(context.Background(), cfg, "Ana", "Chile")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "El usuario se llama Ana") || !strings.Contains(got, "País verificado del usuario: Chile") {
		t.Errorf("known user data missing from prompt:\n%s", got)
	}
}
