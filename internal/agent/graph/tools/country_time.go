package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

// ===================================
// Country Time Tool
// ===================================

type CountryTimeInput struct {
	Country string `json:"country"`
}

type CountryTimeOutput struct {
	Pais        string `json:"pais,omitempty"`
	HoraActual  string `json:"hora_actual,omitempty"`
	ZonaHoraria string `json:"zona_horaria,omitempty"`
	Error       string `json:"error,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
}

// TimeClient calls the country time API.
type TimeClient struct {
	baseURL string
	http    *http.Client
}

func NewTimeClient(baseURL string, timeout time.Duration) *TimeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TimeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CountryTime fetches GET {base}/time/{country}. Transport and HTTP
// failures are reported in the Error field.
func (c *TimeClient) CountryTime(ctx context.Context, country string) *CountryTimeOutput {
	country = strings.TrimSpace(country)
	if country == "" {
		return &CountryTimeOutput{Error: "country is required"}
	}
	endpoint := c.baseURL + "/time/" + url.PathEscape(country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &CountryTimeOutput{Error: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("country", country).Msg("time api request failed")
		return &CountryTimeOutput{Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &CountryTimeOutput{Error: err.Error()}
	}
	if resp.StatusCode >= 300 {
		return &CountryTimeOutput{
			Error:      fmt.Sprintf("time api returned %s", resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	var out CountryTimeOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return &CountryTimeOutput{Error: fmt.Sprintf("decode time api response: %v", err)}
	}
	return &out
}

func createCountryTimeTool(client *TimeClient) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetCountryTime,
			Desc: "Obtiene la hora actual y la zona horaria de un país.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"country": {
					Type:     schema.String,
					Desc:     "Nombre del país, por ejemplo: Chile.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *CountryTimeInput) (*CountryTimeOutput, error) {
			return client.CountryTime(ctx, in.Country), nil
		},
	)
}
