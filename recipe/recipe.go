package recipe

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"recipe-gateway/errs"
)

// Portions é fixo no prompt.
const Portions = 4

// Zonas da fritadeira dual-zone.
const (
	Zone1    = "1"
	Zone2    = "2"
	ZoneBoth = "beide"
)

// Funções do aparelho aceitas no prompt.
var Functions = []string{"Air Fry", "Max Crisp", "Roast", "Bake", "Reheat", "Dehydrate"}

// FilterKeys é o vocabulário de filtros que o frontend envia. Não é validado:
// o mapa inteiro vai para o prompt.
var FilterKeys = []string{"mealType", "style", "diet", "timeAvailable", "spiciness", "budget"}

// ErrIngredientsRequired é o único erro de entrada do endpoint de geração.
var ErrIngredientsRequired = errs.New(errs.CodeInvalidInput, "Ingredients are required")

// Request é o corpo de POST /api/generate-recipe.
type Request struct {
	Ingredients string         `json:"ingredients"`
	Filters     map[string]any `json:"filters"`
}

// Recipe é a visão tipada (e tolerante) do JSON gerado.
type Recipe struct {
	Title        string        `json:"title"`
	Portions     int           `json:"portions"`
	TotalTime    string        `json:"totalTime"`
	Ingredients  []string      `json:"ingredients"`
	Instructions []Instruction `json:"instructions"`
	ProfiTip     string        `json:"profiTip"`
	Nutrition    Nutrition     `json:"nutrition"`
}

type Instruction struct {
	Step        int     `json:"step"`
	Instruction string  `json:"instruction"`
	Function    string  `json:"function,omitempty"`
	Temperature *Number `json:"temperature,omitempty"`
	Time        *Number `json:"time,omitempty"`
	Zone        string  `json:"zone,omitempty"`
}

type Nutrition struct {
	Calories Number `json:"calories"`
	Protein  Number `json:"protein"`
	Carbs    Number `json:"carbs"`
	Fat      Number `json:"fat"`
}

// Number aceita número JSON ou string numérica ("180", "15 Min" vira 15).
// O modelo alterna entre os dois; texto sem número vira 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if i := strings.IndexFunc(s, func(r rune) bool { return !(r >= '0' && r <= '9' || r == '.' || r == '-') }); i >= 0 {
			s = s[:i]
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Result guarda o JSON do provider exatamente como veio.
type Result struct {
	Raw json.RawMessage
}

func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

// ProviderError devolve a mensagem quando o provider respondeu apenas {"error": "..."}.
func (r Result) ProviderError() (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Raw, &obj); err != nil || len(obj) != 1 {
		return "", false
	}
	raw, ok := obj["error"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return msg, true
}

// Recipe decodifica a visão tipada. Campos ausentes ficam zerados.
func (r Result) Recipe() (Recipe, error) {
	var out Recipe
	dec := json.NewDecoder(bytes.NewReader(r.Raw))
	if err := dec.Decode(&out); err != nil {
		return Recipe{}, err
	}
	return out, nil
}
