package routernode

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	statex "github.com/tanpawarit/hr-leave-assistant/agent/state"
)

type GraphInput = contractx.Query

// GraphOutput carries the result and the terminal error together, so a
// degraded answer survives a failed session.
type GraphOutput struct {
	Result contractx.Result
	Err    error
}

type GraphState struct {
	Text       string
	SessionKey string
	Now        time.Time

	Conversation *statex.Conversation
	Transcript   []*schema.Message

	Invocations []contractx.Invocation
	Rounds      int
	Answer      string
	Retryable   bool
	Err         error
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", contractx.ErrValidation)
	}

	return &GraphState{
		Text:       MergeEmployeeHint(text, in.EmployeeHint),
		SessionKey: strings.TrimSpace(in.SessionKey),
		Now:        nowFn().UTC(),
	}, nil
}

// MergeEmployeeHint appends the hint unless the text already mentions it.
func MergeEmployeeHint(text, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.Contains(strings.ToLower(text), strings.ToLower(hint)) {
		return text
	}
	return text + " for employee " + hint
}
