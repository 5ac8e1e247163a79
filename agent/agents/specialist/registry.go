package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	llmx "github.com/thoriqalqi/VISTARA/agent/llm"
	promptx "github.com/thoriqalqi/VISTARA/agent/prompt"
	metricsx "github.com/thoriqalqi/VISTARA/pkg/metrics"
)

type registryImpl struct {
	router     contractx.Router
	strategist contractx.Strategist
	creative   contractx.Creative
	researcher contractx.Researcher
}

func (r *registryImpl) Router() contractx.Router {
	return r.router
}

func (r *registryImpl) Strategist() contractx.Strategist {
	return r.strategist
}

func (r *registryImpl) Creative() contractx.Creative {
	return r.creative
}

func (r *registryImpl) Researcher() contractx.Researcher {
	return r.researcher
}

// Models holds one chat model per role.
type Models struct {
	Router     einomodel.BaseChatModel
	Strategist einomodel.BaseChatModel
	Creative   einomodel.BaseChatModel
	Researcher einomodel.BaseChatModel
}

// NewRegistry builds per-role OpenRouter models behind circuit breakers and
// compiles every invoker graph. image may be nil to disable image generation.
func NewRegistry(ctx context.Context, cfg llmx.Config, image contractx.ImageGenerator, metrics *metricsx.Metrics) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	build := func(role contractx.Role) (einomodel.BaseChatModel, error) {
		modelCfg := cfg.OpenRouterFor(role)
		m, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		return llmx.NewBreakerModel(string(role), m, cfg.Breaker()), nil
	}

	var (
		models Models
		err    error
	)
	if models.Router, err = build(contractx.RoleRouter); err != nil {
		return nil, err
	}
	if models.Strategist, err = build(contractx.RoleStrategist); err != nil {
		return nil, err
	}
	if models.Creative, err = build(contractx.RoleCreative); err != nil {
		return nil, err
	}
	if models.Researcher, err = build(contractx.RoleResearcher); err != nil {
		return nil, err
	}

	return NewRegistryWithModels(ctx, cfg, models, image, metrics)
}

// NewRegistryWithModels compiles the invoker graphs over caller-supplied models.
func NewRegistryWithModels(
	ctx context.Context,
	cfg llmx.Config,
	models Models,
	image contractx.ImageGenerator,
	metrics *metricsx.Metrics,
) (contractx.Registry, error) {
	prompts, err := promptx.LoadPromptSet()
	if err != nil {
		return nil, err
	}

	rt := runtime{cfg: cfg, metrics: metrics, image: image}

	router, err := newRouter(ctx, rt, models.Router, prompts.Router)
	if err != nil {
		return nil, err
	}
	strategist, err := newStrategist(ctx, rt, models.Strategist, prompts)
	if err != nil {
		return nil, err
	}
	creative, err := newCreative(ctx, rt, models.Creative, prompts)
	if err != nil {
		return nil, err
	}
	researcher, err := newResearcher(ctx, rt, models.Researcher, prompts)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:     router,
		strategist: strategist,
		creative:   creative,
		researcher: researcher,
	}, nil
}
