package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultPromptTemplate é o prompt de geração. Para o gateway ele é opaco: só
// recebe {{.Ingredients}} e {{.Filters}} (JSON).
const DefaultPromptTemplate = `C – CONTEXT
Wir entwickeln Rezepte für ein Kochbuch für die Ninja Heißluftfritteuse. Zielgruppe: deutsche Hobbyköche, die alltagstaugliche, gelingsichere Rezepte mit Zutaten aus dem Supermarkt suchen.

R – ROLE
Du bist ein erfahrener deutscher Rezeptentwickler und Food-Editor. Präzise, ermutigend, expertenhaft.

[START USER INPUT]
ZUTATEN: {{.Ingredients}}
FILTER: {{.Filters}}
[END USER INPUT]

A – ACTION
1. Sprache ausschließlich Deutsch.
2. Portionsgröße fest = {{.Portions}}.
3. Verwende nur die genannten Zutaten plus Basiszutaten: Salz, Pfeffer, Öl, Zwiebel, Knoblauch, Brühe, getrocknete Kräuter.
4. Nur die Ninja-Heißluftfritteuse verwenden. Wenn sinnvoll, nutze die Dual-Zone-Funktion und erkläre, was in Zone 1 und Zone 2 passiert.
5. Nummerierte Schritt-für-Schritt-Anleitung; für jeden relevanten Schritt Funktion ({{.Functions}}), Temperatur in °C und Zeit in Minuten.
6. Mindestens ein Profi-Tipp, der typische Fehler vermeidet.
7. Nährwerte pro Portion schätzen: Kalorien, Eiweiß, Kohlenhydrate, Fett.
8. Wenn kein sinnvolles, sicheres Rezept möglich ist, antworte nur mit {"error":"Mit diesen Zutaten kann ich leider kein sinnvolles Rezept erstellen. Ergänze 1–2 Basiszutaten und versuche es erneut."}

F – FORMAT
Antworte ausschließlich als gültiges JSON nach diesem Schema:
{
  "title": "Rezepttitel",
  "portions": {{.Portions}},
  "totalTime": "Gesamtzeit in Minuten",
  "ingredients": ["Liste der Zutaten"],
  "instructions": [
    {"step": 1, "instruction": "Anweisung", "function": "Air Fry", "temperature": 180, "time": 15, "zone": "1 | 2 | beide"}
  ],
  "profiTip": "Praktischer Tipp",
  "nutrition": {"calories": 350, "protein": 25, "carbs": 30, "fat": 15}
}
Keine zusätzlichen Felder, kein Fließtext außerhalb des JSON.`

// Prompt renderiza o template de geração.
type Prompt struct {
	tmpl *template.Template
}

type promptData struct {
	Ingredients string
	Filters     string
	Portions    int
	Functions   string
}

func NewPrompt(text string) (*Prompt, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("recipe").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// DefaultPrompt usa DefaultPromptTemplate; o template é constante e sempre compila.
func DefaultPrompt() *Prompt {
	p, err := NewPrompt(DefaultPromptTemplate)
	if err != nil {
		panic(err)
	}
	return p
}

// promptFile é o formato do PROMPT_FILE.
type promptFile struct {
	Template string `yaml:"template"`
}

// LoadPromptFile lê um YAML com a chave "template".
func LoadPromptFile(path string) (*Prompt, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	var f promptFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode prompt file %s: %w", path, err)
	}
	if strings.TrimSpace(f.Template) == "" {
		return nil, fmt.Errorf("prompt file %s: template is empty", path)
	}
	return NewPrompt(f.Template)
}

// Render embute os ingredientes e o mapa de filtros (como JSON) no template.
func (p *Prompt) Render(ingredients string, filters map[string]any) (string, error) {
	fj := []byte("{}")
	if len(filters) > 0 {
		var err error
		if fj, err = json.Marshal(filters); err != nil {
			return "", fmt.Errorf("encode filters: %w", err)
		}
	}
	var buf bytes.Buffer
	err := p.tmpl.Execute(&buf, promptData{
		Ingredients: ingredients,
		Filters:     string(fj),
		Portions:    Portions,
		Functions:   strings.Join(Functions, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
