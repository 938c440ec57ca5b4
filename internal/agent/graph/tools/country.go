package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ===================================
// Verify Country Tool
// ===================================

// LatamCountries is the list of countries the service operates in.
var LatamCountries = []string{
	"Argentina", "Bolivia", "Brasil", "Chile", "Colombia", "Costa Rica", "Cuba",
	"Ecuador", "El Salvador", "Guatemala", "Honduras", "México", "Nicaragua",
	"Panamá", "Paraguay", "Perú", "República Dominicana", "Uruguay", "Venezuela",
}

// countryAliases maps normalized alternative spellings to a canonical entry.
var countryAliases = map[string]string{
	"brazil":             "Brasil",
	"mexico df":          "México",
	"panama city":        "Panamá",
	"rep dominicana":     "República Dominicana",
	"rep. dominicana":    "República Dominicana",
	"dominican republic": "República Dominicana",
}

var countryIndex = func() map[string]string {
	idx := make(map[string]string, len(LatamCountries)+len(countryAliases))
	for _, c := range LatamCountries {
		idx[NormalizeCountry(c)] = c
	}
	for alias, c := range countryAliases {
		idx[NormalizeCountry(alias)] = c
	}
	return idx
}()

// NormalizeCountry lowercases, strips accents and collapses whitespace.
func NormalizeCountry(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// MatchCountry returns the canonical country name for input, if supported.
func MatchCountry(input string) (string, bool) {
	c, ok := countryIndex[NormalizeCountry(input)]
	return c, ok
}

type VerifyCountryInput struct {
	CountryName string `json:"country_name"`
}

type VerifyCountryOutput struct {
	Country  string `json:"country,omitempty"`
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

func createVerifyCountryTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolVerifyCountry,
			Desc: "Verifica si el país del usuario pertenece a la lista de países de Latinoamérica donde opera el servicio. Úsala en cuanto el usuario indique su país.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"country_name": {
					Type:     schema.String,
					Desc:     "Nombre del país indicado por el usuario, por ejemplo: Perú, Mexico, Colombia.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *VerifyCountryInput) (*VerifyCountryOutput, error) {
			name := strings.TrimSpace(in.CountryName)
			if name == "" {
				return &VerifyCountryOutput{Message: "No se indicó ningún país."}, nil
			}
			if country, ok := MatchCountry(name); ok {
				return &VerifyCountryOutput{
					Country:  country,
					Verified: true,
					Message:  fmt.Sprintf("Verificación exitosa: '%s' se encuentra en la lista de países permitidos. Podemos continuar.", country),
				}, nil
			}
			return &VerifyCountryOutput{
				Message: fmt.Sprintf("Lo siento, '%s' no está en la lista de países donde operamos. No puedo asistirte en este momento.", name),
			}, nil
		},
	)
}
