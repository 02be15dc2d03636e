package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
)

type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
}

// Handler executes a capability with arguments that already passed contract
// validation.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Capability is a named, typed operation the reasoning engine may select.
// Nothing in it encodes when it should be used; that is left to Description.
type Capability struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []Parameter `json:"params"`
	Returns     string      `json:"returns"`
	Handler     Handler     `json:"-"`
}

// InvocationRequest is one capability call chosen by the reasoning engine.
type InvocationRequest struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	// ArgsErr is set when the engine sent arguments that could not be decoded.
	ArgsErr error `json:"-"`
}

// Invocation records a request together with its outcome.
type Invocation struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Err    error          `json:"-"`
}

// Decision is the reasoning engine's reply for one round: either capability
// calls to execute, or a final answer.
type Decision struct {
	Calls  []InvocationRequest
	Answer string
	// Message is the raw assistant message, replayed into the transcript so
	// tool results can reference its call ids. May be nil.
	Message *schema.Message
}

func (d Decision) IsFinal() bool {
	return len(d.Calls) == 0
}

// Sampling mirrors the options the reasoning engine recognises.
type Sampling struct {
	MaxTokens   int
	Temperature float32
	AutoSelect  bool
}

type Query struct {
	Text         string `json:"query"`
	EmployeeHint string `json:"employee,omitempty"`
	// SessionKey opts into conversation memory. Empty means stateless.
	SessionKey string `json:"session_key,omitempty"`
}

type Result struct {
	Answer      string       `json:"answer"`
	Invocations []Invocation `json:"invocations,omitempty"`
	Rounds      int          `json:"rounds"`
	Retryable   bool         `json:"retryable"`
}

type PolicyDocument struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float32 `json:"score"`
}
