// Package app assembles the router and its adapters from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/hr-leave-assistant/agent/api"
	"github.com/tanpawarit/hr-leave-assistant/agent/capability"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	"github.com/tanpawarit/hr-leave-assistant/agent/prompt"
	"github.com/tanpawarit/hr-leave-assistant/agent/reasoner"
	"github.com/tanpawarit/hr-leave-assistant/agent/retrieval"
	"github.com/tanpawarit/hr-leave-assistant/agent/router"
	statex "github.com/tanpawarit/hr-leave-assistant/agent/state"
	"github.com/tanpawarit/hr-leave-assistant/agent/store"
	"github.com/tanpawarit/hr-leave-assistant/pkg/telemetry"
)

// App owns the adapters behind a Router and releases them on Close.
type App struct {
	cfg Config

	Router   *router.Router
	Leaves   *store.LeaveStore
	Policies *retrieval.PolicyIndex

	shutdownMetrics telemetry.ShutdownFunc
}

// New builds the application against the configured OpenRouter chat model.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	orCfg := cfg.LLM.OpenRouter()
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithModel(ctx, cfg, chatModel)
}

// NewWithModel builds the application around an already constructed chat
// model.
func NewWithModel(ctx context.Context, cfg Config, chatModel einomodel.ToolCallingChatModel) (_ *App, err error) {
	a := &App{cfg: cfg, shutdownMetrics: func(context.Context) error { return nil }}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	shutdown, err := telemetry.Init(ctx, ServiceName, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdownMetrics = shutdown

	metrics, err := telemetry.NewRouterMetrics(nil)
	if err != nil {
		return nil, err
	}

	open, err := cfg.Store.Opener()
	if err != nil {
		return nil, err
	}
	a.Leaves, err = store.NewLeaveStore(ctx, open, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open leave store: %w", err)
	}

	a.Policies, err = cfg.Policy.NewIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("open policy index: %w", err)
	}
	if perr := a.Policies.Prepare(ctx); perr != nil {
		if errors.Is(perr, retrieval.ErrVectorSizeMismatch) {
			return nil, fmt.Errorf("prepare policy index: %w", perr)
		}
		log.Ctx(ctx).Warn().Err(perr).Msg("policy index not ready, seeding on first search")
	}

	caps, err := capability.NewHRRegistry(a.Leaves, a.Policies)
	if err != nil {
		return nil, err
	}

	system, err := prompt.System(caps.Capabilities())
	if err != nil {
		return nil, err
	}

	r, err := reasoner.New(ctx, chatModel, caps.DescribeAll(), cfg.LLM.Sampling(), cfg.LLM.Timeout)
	if err != nil {
		return nil, err
	}

	var conversations statex.Store
	if cfg.Upstash != nil {
		conversations, err = statex.NewUpstashRedisStore(*cfg.Upstash)
		if err != nil {
			return nil, fmt.Errorf("open conversation store: %w", err)
		}
	}

	a.Router, err = router.New(router.Deps{
		Capabilities:  caps,
		Reasoner:      r,
		SystemPrompt:  system,
		Conversations: conversations,
		Metrics:       metrics,
	}, cfg.Router)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("store_driver", cfg.Store.Driver).
		Str("policy_backend", cfg.Policy.Backend).
		Bool("conversation_memory", conversations != nil).
		Msg("hr assistant ready")
	return a, nil
}

func (a *App) Ask(ctx context.Context, q contractx.Query) (contractx.Result, error) {
	return a.Router.Ask(ctx, q)
}

// FetchBalance answers a direct balance lookup without the reasoning engine.
func (a *App) FetchBalance(ctx context.Context, employeeID string) (int, error) {
	return a.Leaves.FetchBalance(ctx, employeeID)
}

func (a *App) CheckHealth(ctx context.Context) bool {
	return a.Leaves.CheckHealth(ctx)
}

func (a *App) ServerConfig() api.ServerConfig {
	return a.cfg.HTTP
}

// Close releases the adapters and flushes metrics.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Leaves != nil {
		errs = append(errs, a.Leaves.Close())
	}
	if a.Policies != nil {
		errs = append(errs, a.Policies.Close())
	}
	if a.shutdownMetrics != nil {
		errs = append(errs, a.shutdownMetrics(ctx))
	}
	return errors.Join(errs...)
}
