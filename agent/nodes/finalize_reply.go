package routernode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	res := contractx.Result{
		Answer:      strings.TrimSpace(in.Answer),
		Invocations: in.Invocations,
		Rounds:      in.Rounds,
		Retryable:   in.Retryable || contractx.Retryable(in.Err),
	}
	if in.Err == nil && res.Answer == "" {
		return GraphOutput{}, fmt.Errorf("%w: reasoning engine returned an empty answer", contractx.ErrSchemaViolation)
	}
	return GraphOutput{Result: res, Err: in.Err}, nil
}
