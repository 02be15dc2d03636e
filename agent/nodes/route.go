package routernode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	"github.com/tanpawarit/hr-leave-assistant/pkg/telemetry"
)

type RouteDeps struct {
	Reasoner     contractx.Reasoner
	Capabilities contractx.CapabilitySet
	MaxRounds    int
	Metrics      *telemetry.RouterMetrics
}

// Route alternates between asking the reasoning engine for a decision and
// executing the capability calls it requests, until the engine answers or
// MaxRounds decisions have been made. Rounds are strictly sequential.
func Route(ctx context.Context, in *GraphState, deps RouteDeps) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if deps.MaxRounds <= 0 {
		return nil, fmt.Errorf("%w: max rounds must be positive", contractx.ErrValidation)
	}

	logger := log.Ctx(ctx).With().Str("session_key", in.SessionKey).Logger()

	for in.Rounds < deps.MaxRounds {
		in.Rounds++
		deps.Metrics.RecordRound(ctx)

		decision, err := deps.Reasoner.Decide(ctx, in.Transcript)
		if err != nil {
			if errors.Is(err, contractx.ErrReasoningTimeout) {
				logger.Error().Err(err).Int("round", in.Rounds).Msg("reasoning engine timed out")
			} else {
				logger.Warn().Err(err).Int("round", in.Rounds).Msg("reasoning engine failed")
			}
			in.Err = err
			return in, nil
		}

		in.Transcript = append(in.Transcript, assistantMessage(decision))
		if decision.IsFinal() {
			in.Answer = decision.Answer
			return in, nil
		}

		execute(ctx, in, decision.Calls, deps)
	}

	in.Err = fmt.Errorf("%w: no answer after %d rounds", contractx.ErrRoutingExhausted, deps.MaxRounds)
	in.Answer = contractx.UserMessage(in.Err)
	logger.Error().Err(in.Err).Int("invocations", len(in.Invocations)).Msg("routing exhausted")
	return in, nil
}

func execute(ctx context.Context, in *GraphState, calls []contractx.InvocationRequest, deps RouteDeps) {
	for _, call := range calls {
		inv := contractx.Invocation{ID: call.ID, Name: call.Name, Args: call.Args}

		var (
			result any
			err    = call.ArgsErr
		)
		if err == nil {
			result, err = deps.Capabilities.Invoke(ctx, call.Name, call.Args)
		}
		deps.Metrics.RecordInvocation(ctx, call.Name, err)

		if err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("session_key", in.SessionKey).
				Str("capability", call.Name).
				Int("round", in.Rounds).
				Msg("capability invocation failed")
			inv.Err = err
			inv.Error = err.Error()
			if contractx.Retryable(err) {
				in.Retryable = true
			}
		} else {
			inv.Result = result
		}

		in.Invocations = append(in.Invocations, inv)
		in.Transcript = append(in.Transcript, schema.ToolMessage(toolContent(inv), call.ID))
	}
}

func toolContent(inv contractx.Invocation) string {
	var payload any = inv.Result
	if inv.Err != nil {
		payload = map[string]string{"error": inv.Error}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encode result: %v", err)})
	}
	return string(raw)
}

// assistantMessage replays the engine's turn. Tool messages appended after it
// refer to its call ids.
func assistantMessage(d contractx.Decision) *schema.Message {
	if d.Message != nil {
		return d.Message
	}

	calls := make([]schema.ToolCall, 0, len(d.Calls))
	for _, c := range d.Calls {
		args, _ := json.Marshal(c.Args)
		calls = append(calls, schema.ToolCall{
			ID:       c.ID,
			Type:     "function",
			Function: schema.FunctionCall{Name: c.Name, Arguments: string(args)},
		})
	}
	if len(calls) == 0 {
		calls = nil
	}
	return schema.AssistantMessage(d.Answer, calls)
}
