package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

const meterName = "hr-leave-assistant/router"

// RouterMetrics counts routing rounds, capability invocations and failures.
// A nil *RouterMetrics records nothing.
type RouterMetrics struct {
	rounds      metric.Int64Counter
	invocations metric.Int64Counter
	failures    metric.Int64Counter
}

// NewRouterMetrics registers the router instruments. A nil provider selects
// the global one.
func NewRouterMetrics(provider metric.MeterProvider) (*RouterMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	rounds, err := meter.Int64Counter(
		"hr_router.rounds",
		metric.WithDescription("Reasoning rounds executed per query"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rounds counter: %w", err)
	}

	invocations, err := meter.Int64Counter(
		"hr_router.invocations",
		metric.WithDescription("Capability invocations by capability and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invocations counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		"hr_router.failures",
		metric.WithDescription("Failed queries and invocations by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}

	return &RouterMetrics{rounds: rounds, invocations: invocations, failures: failures}, nil
}

func (m *RouterMetrics) RecordRound(ctx context.Context) {
	if m == nil {
		return
	}
	m.rounds.Add(ctx, 1)
}

func (m *RouterMetrics) RecordInvocation(ctx context.Context, capability string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = Kind(err)
	}
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("outcome", outcome),
	))
}

func (m *RouterMetrics) RecordFailure(ctx context.Context, err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", Kind(err)),
	))
}

// Kind names the taxonomy member err belongs to.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, contractx.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, contractx.ErrNotFound):
		return "not_found"
	case errors.Is(err, contractx.ErrPolicyIndexUnavailable):
		return "policy_unavailable"
	case errors.Is(err, contractx.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, contractx.ErrTransientStore):
		return "transient_store"
	case errors.Is(err, contractx.ErrRoutingExhausted):
		return "routing_exhausted"
	case errors.Is(err, contractx.ErrReasoningTimeout):
		return "reasoning_timeout"
	case errors.Is(err, contractx.ErrValidation):
		return "validation"
	case errors.Is(err, contractx.ErrModelInvoke), errors.Is(err, contractx.ErrSchemaViolation):
		return "model"
	default:
		return "internal"
	}
}
