package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

// Reasoner adapts a tool-calling chat model to the decision protocol: each
// call returns either capability invocations or a final answer.
type Reasoner struct {
	runner   compose.Runnable[[]*schema.Message, *schema.Message]
	sampling contractx.Sampling
	timeout  time.Duration
}

var _ contractx.Reasoner = (*Reasoner)(nil)

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools []*schema.ToolInfo,
	sampling contractx.Sampling,
	timeout time.Duration,
) (*Reasoner, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}

	var bound einomodel.BaseChatModel = chatModel
	if sampling.AutoSelect && len(tools) > 0 {
		toolModel, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("%w: bind capabilities: %v", contractx.ErrModelInvoke, err)
		}
		bound = toolModel
	}

	runner, err := compileDecideGraph(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	return &Reasoner{runner: runner, sampling: sampling, timeout: timeout}, nil
}

func (r *Reasoner) Decide(ctx context.Context, transcript []*schema.Message) (contractx.Decision, error) {
	if len(transcript) == 0 {
		return contractx.Decision{}, fmt.Errorf("%w: transcript is empty", contractx.ErrValidation)
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	msg, err := r.runner.Invoke(callCtx, transcript, compose.WithChatModelOption(r.modelOptions()...))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return contractx.Decision{}, fmt.Errorf("%w: after %s", contractx.ErrReasoningTimeout, r.timeout)
		}
		log.Ctx(ctx).Warn().Err(err).Msg("reasoning engine call failed")
		return contractx.Decision{}, fmt.Errorf("%w: decide", contractx.ErrModelInvoke)
	}
	if msg == nil {
		return contractx.Decision{}, fmt.Errorf("%w: model returned no message", contractx.ErrSchemaViolation)
	}

	calls, err := toInvocationRequests(msg.ToolCalls)
	if err != nil {
		return contractx.Decision{}, err
	}

	answer := strings.TrimSpace(msg.Content)
	if len(calls) == 0 && answer == "" {
		return contractx.Decision{}, fmt.Errorf("%w: model returned neither calls nor an answer", contractx.ErrSchemaViolation)
	}

	return contractx.Decision{Calls: calls, Answer: answer, Message: msg}, nil
}

func (r *Reasoner) modelOptions() []einomodel.Option {
	opts := []einomodel.Option{einomodel.WithTemperature(r.sampling.Temperature)}
	if r.sampling.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(r.sampling.MaxTokens))
	}
	return opts
}

// toInvocationRequests keeps calls whose arguments fail to decode so the
// router can report the failure back to the engine instead of dropping it.
func toInvocationRequests(calls []schema.ToolCall) ([]contractx.InvocationRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.InvocationRequest, 0, len(calls))
	for i, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		id := strings.TrimSpace(call.ID)
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}

		req := contractx.InvocationRequest{ID: id, Name: name, Args: map[string]any{}}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &req.Args); err != nil {
				req.Args = nil
				req.ArgsErr = fmt.Errorf("%w: arguments for %s are not a JSON object: %v", contractx.ErrInvalidArgument, name, err)
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
