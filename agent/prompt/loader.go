package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
)

//go:embed template/*.tmpl
var templates embed.FS

// PromptSet holds loaded prompt content. Task prompts are Go templates
// rendered with schema.GoTemplate; personas are plain system text.
type PromptSet struct {
	Router string

	StrategistPersona string
	Strategist        string
	Simulation        string
	Collaboration     string

	CreativePersona string
	Promo           string
	Poster          string
	Apology         string
	Brand           string
	Logo            string

	ResearcherPersona string
	Suppliers         string
	Events            string
	Competitors       string
	Sentiment         string
	Location          string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() (PromptSet, error) {
	var set PromptSet
	fields := []struct {
		name string
		dst  *string
	}{
		{"router", &set.Router},
		{"strategist_persona", &set.StrategistPersona},
		{"strategist", &set.Strategist},
		{"simulation", &set.Simulation},
		{"collaboration", &set.Collaboration},
		{"creative_persona", &set.CreativePersona},
		{"promo", &set.Promo},
		{"poster", &set.Poster},
		{"apology", &set.Apology},
		{"brand", &set.Brand},
		{"logo", &set.Logo},
		{"researcher_persona", &set.ResearcherPersona},
		{"suppliers", &set.Suppliers},
		{"events", &set.Events},
		{"competitors", &set.Competitors},
		{"sentiment", &set.Sentiment},
		{"location", &set.Location},
	}

	for _, f := range fields {
		raw, err := templates.ReadFile("template/" + f.name + ".tmpl")
		if err != nil {
			return PromptSet{}, fmt.Errorf("%w: %s: %v", contractx.ErrPromptMissing, f.name, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return PromptSet{}, fmt.Errorf("%w: %s is empty", contractx.ErrPromptMissing, f.name)
		}
		*f.dst = text
	}
	return set, nil
}

// MustLoadPromptSet panics when an embedded prompt is missing.
func MustLoadPromptSet() PromptSet {
	set, err := LoadPromptSet()
	if err != nil {
		panic(err)
	}
	return set
}

// Render formats a single task template into plain text, used for image
// prompts that never pass through a chat model.
func Render(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	msgs, err := einoprompt.FromMessages(schema.GoTemplate, schema.UserMessage(tmpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%w: render produced no message", contractx.ErrPromptMissing)
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
