package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestRouterMetricsCounts(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewRouterMetrics(provider)
	if err != nil {
		t.Fatalf("NewRouterMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordRound(ctx)
	m.RecordRound(ctx)
	m.RecordInvocation(ctx, "fetch_used_days", nil)
	m.RecordInvocation(ctx, "fetch_used_days", contractx.ErrNotFound)
	m.RecordFailure(ctx, contractx.ErrRoutingExhausted)
	m.RecordFailure(ctx, nil)

	totals := collect(t, reader)
	if totals["hr_router.rounds"] != 2 {
		t.Fatalf("rounds = %d, want 2", totals["hr_router.rounds"])
	}
	if totals["hr_router.invocations"] != 2 {
		t.Fatalf("invocations = %d, want 2", totals["hr_router.invocations"])
	}
	if totals["hr_router.failures"] != 1 {
		t.Fatalf("failures = %d, want 1", totals["hr_router.failures"])
	}
}

func TestNilRouterMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *RouterMetrics
	m.RecordRound(context.Background())
	m.RecordInvocation(context.Background(), "x", errors.New("boom"))
	m.RecordFailure(context.Background(), errors.New("boom"))
}

func TestKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{fmt.Errorf("%w: x", contractx.ErrTransientStore), "transient_store"},
		{fmt.Errorf("%w: x", contractx.ErrReasoningTimeout), "reasoning_timeout"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestInitNoneIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Init(context.Background(), "test", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	if _, err := Init(context.Background(), "test", Config{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
