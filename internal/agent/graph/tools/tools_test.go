package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"

	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

func TestMatchCountry(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"México", "México", true},
		{"mexico", "México", true},
		{"  PERU ", "Perú", true},
		{"republica   dominicana", "República Dominicana", true},
		{"Brazil", "Brasil", true},
		{"España", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchCountry(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MatchCountry(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func invoke(t *testing.T, bt tool.BaseTool, args string) string {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	if !ok {
		t.Fatalf("tool is not invokable")
	}
	out, err := it.InvokableRun(context.Background(), args)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	return out
}

func TestVerifyCountryUpdatesState(t *testing.T) {
	conv := &model.ConversationState{}

	res := invoke(t, createVerifyCountryTool(), `{"country_name":"colombia"}`)
	if ApplyResult(conv, ToolVerifyCountry, res) {
		t.Fatal("verify_country must not report a CV change")
	}
	if conv.Country != "Colombia" || !conv.CountryVerified {
		t.Fatalf("state = %+v", conv)
	}

	res = invoke(t, createVerifyCountryTool(), `{"country_name":"Canadá"}`)
	ApplyResult(conv, ToolVerifyCountry, res)
	if conv.CountryVerified {
		t.Fatal("unsupported country must clear the verified flag")
	}
	if conv.Country != "Colombia" {
		t.Fatalf("country overwritten by unsupported input: %q", conv.Country)
	}
}

func TestRegisterCVChangesSummaryOnce(t *testing.T) {
	conv := &model.ConversationState{CVAnalysis: &model.CVAnalysis{Success: true}}
	args := `{"cv_text":"  Desarrolladora backend con experiencia en Go y Kubernetes  "}`

	res := invoke(t, createRegisterCVTool(), args)
	if !ApplyResult(conv, ToolRegisterCV, res) {
		t.Fatal("first registration should change the summary")
	}
	if conv.CVSummary != "Desarrolladora backend con experiencia en Go y Kubernetes" {
		t.Fatalf("summary = %q", conv.CVSummary)
	}
	if conv.CVAnalysis != nil {
		t.Fatal("new CV should drop the previous analysis")
	}
	if ApplyResult(conv, ToolRegisterCV, res) {
		t.Fatal("same CV registered twice should not count as a change")
	}

	res = invoke(t, createRegisterCVTool(), `{"cv_text":""}`)
	if ApplyResult(conv, ToolRegisterCV, res) {
		t.Fatal("empty CV must not change state")
	}
}

func TestSaveUserName(t *testing.T) {
	conv := &model.ConversationState{}
	res := invoke(t, createSaveUserNameTool(), `{"user_name":"  Ana   María "}`)
	ApplyResult(conv, ToolSaveUserName, res)
	if conv.UserName != "Ana María" {
		t.Fatalf("user name = %q", conv.UserName)
	}
}

func TestSanitizeArguments(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name, tool, in, want string
	}{
		{"trims", ToolVerifyCountry, `{"country_name":"  Chile "}`, `{"country_name":"Chile"}`},
		{"coerces", ToolSaveUserName, `{"user_name":42}`, `{"user_name":"42"}`},
		{"drops null", ToolRegisterCV, `{"cv_text":null}`, `{}`},
		{"not json", ToolRegisterCV, `cv: hola`, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeArguments(ctx, tt.tool, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnknownTool(t *testing.T) {
	out, err := UnknownTool(context.Background(), "send_email", "{}")
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("result is not json: %v", err)
	}
	if m["error"] != "unknown_tool" || m["name"] != "send_email" {
		t.Fatalf("unexpected result %v", m)
	}
}

func TestTimeClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/time/Per%C3%BA":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"pais":         "Perú",
				"hora_actual":  "2025-01-01 10:00:00",
				"zona_horaria": "America/Lima",
			})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewTimeClient(srv.URL+"/", time.Second)
	ok := c.CountryTime(context.Background(), "Perú")
	if ok.Error != "" || ok.ZonaHoraria != "America/Lima" || ok.Pais != "Perú" {
		t.Fatalf("unexpected result %+v", ok)
	}

	missing := c.CountryTime(context.Background(), "Atlantis")
	if missing.Error == "" || missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 error result, got %+v", missing)
	}

	res := invoke(t, createCountryTimeTool(c), `{"country":""}`)
	var out CountryTimeOutput
	if err := json.Unmarshal([]byte(res), &out); err != nil || out.Error == "" {
		t.Fatalf("empty country should be an error result, got %s", res)
	}
}
