package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	nodex "github.com/tanpawarit/hr-leave-assistant/agent/nodes"
	statex "github.com/tanpawarit/hr-leave-assistant/agent/state"
	"github.com/tanpawarit/hr-leave-assistant/pkg/telemetry"
)

// Deps is everything a Router needs. Nothing is looked up globally.
type Deps struct {
	Capabilities contractx.CapabilitySet
	Reasoner     contractx.Reasoner
	SystemPrompt string
	// Conversations is optional; without it session keys are ignored.
	Conversations statex.Store
	Metrics       *telemetry.RouterMetrics
}

// Router answers one query per Ask call. Sessions share no mutable state, so
// Ask is safe for concurrent use.
type Router struct {
	deps      Deps
	maxRounds int

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(deps Deps, cfg Config) (*Router, error) {
	if deps.Capabilities == nil {
		return nil, errors.New("capability set is required")
	}
	if deps.Reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if deps.SystemPrompt == "" {
		return nil, fmt.Errorf("%w: system instruction", contractx.ErrPromptMissing)
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	r := &Router{
		deps:      deps,
		maxRounds: maxRounds,
		now:       time.Now,
	}

	graphRunner, err := r.compileAskGraph(context.Background())
	if err != nil {
		return nil, err
	}
	r.graphRunner = graphRunner

	return r, nil
}

// Ask routes q to the capabilities the reasoning engine selects and returns
// its final answer. When routing is exhausted the result still carries a
// degraded answer alongside ErrRoutingExhausted.
func (r *Router) Ask(ctx context.Context, q contractx.Query) (contractx.Result, error) {
	out, err := r.graphRunner.Invoke(ctx, q)
	if err != nil {
		r.deps.Metrics.RecordFailure(ctx, err)
		return contractx.Result{}, err
	}
	if out.Err != nil {
		r.deps.Metrics.RecordFailure(ctx, out.Err)
	}
	return out.Result, out.Err
}
