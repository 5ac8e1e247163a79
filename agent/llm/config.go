package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	openrouterx "github.com/thoriqalqi/VISTARA/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel           string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	StrategistModel       string  `envconfig:"STRATEGIST_MODEL" split_words:"true"`
	CreativeModel         string  `envconfig:"CREATIVE_MODEL" split_words:"true"`
	ResearcherModel       string  `envconfig:"RESEARCHER_MODEL" split_words:"true"`
	RouterTemperature     float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	StrategistTemperature float32 `envconfig:"STRATEGIST_TEMPERATURE" split_words:"true" default:"-1"`
	CreativeTemperature   float32 `envconfig:"CREATIVE_TEMPERATURE" split_words:"true" default:"-1"`
	ResearcherTemperature float32 `envconfig:"RESEARCHER_TEMPERATURE" split_words:"true" default:"-1"`

	// FallbackModels are offered to OpenRouter after the role model.
	FallbackModels []string `envconfig:"FALLBACK_MODELS" split_words:"true"`

	// ImageModel is sent to the images endpoint. Empty disables poster and logo generation.
	ImageModel string `envconfig:"IMAGE_MODEL" split_words:"true"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" split_words:"true" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" split_words:"true" default:"30s"`
	BreakerInterval    time.Duration `envconfig:"BREAKER_INTERVAL" split_words:"true" default:"60s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: llm timeout must not be negative", contractx.ErrValidation)
	}
	return nil
}

// CallTimeout is the wall-clock bound applied to every model call.
func (c Config) CallTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

func (c Config) Breaker() BreakerConfig {
	return BreakerConfig{
		MaxFailures: c.BreakerMaxFailures,
		Timeout:     c.BreakerTimeout,
		Interval:    c.BreakerInterval,
	}
}

// TemperatureFor returns the configured override for role, or def when none is set.
func (c Config) TemperatureFor(role contractx.Role, def float32) float32 {
	var t float32 = -1
	switch role {
	case contractx.RoleRouter:
		t = c.RouterTemperature
	case contractx.RoleStrategist:
		t = c.StrategistTemperature
	case contractx.RoleCreative:
		t = c.CreativeTemperature
	case contractx.RoleResearcher:
		t = c.ResearcherTemperature
	}
	if t >= 0 {
		return t
	}
	return def
}

func (c Config) OpenRouterFor(role contractx.Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, t float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch role {
	case contractx.RoleRouter:
		override(c.RouterModel, c.RouterTemperature)
	case contractx.RoleStrategist:
		override(c.StrategistModel, c.StrategistTemperature)
	case contractx.RoleCreative:
		override(c.CreativeModel, c.CreativeTemperature)
	case contractx.RoleResearcher:
		override(c.ResearcherModel, c.ResearcherTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.CallTimeout(),
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		JSONResponse:       true,
		FallbackModels:     c.FallbackModels,
	}
}
