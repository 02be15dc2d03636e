package reasoner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	idx       int
	block     bool
	tools     []*schema.ToolInfo
	lastInput []*schema.Message
	lastOpts  *einomodel.Options
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.lastInput = input
	f.lastOpts = einomodel.GetCommonOptions(nil, opts...)
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

var testTools = []*schema.ToolInfo{
	{Name: "fetch_used_days", Desc: "used days"},
	{Name: "fetch_leave_entitlement", Desc: "entitlement"},
}

var transcript = []*schema.Message{
	schema.SystemMessage("you are an hr assistant"),
	schema.UserMessage("How many leave days does Alice have left?"),
}

func TestDecideReturnsToolCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			schema.AssistantMessage("", []schema.ToolCall{
				{ID: "c1", Function: schema.FunctionCall{Name: "fetch_used_days", Arguments: `{"employee_id":"Alice"}`}},
				{Function: schema.FunctionCall{Name: "fetch_leave_entitlement", Arguments: `{"employee_id":"Alice"}`}},
			}),
		},
	}

	r, err := New(context.Background(), fake, testTools, contractx.Sampling{MaxTokens: 1000, Temperature: 0.1, AutoSelect: true}, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	decision, err := r.Decide(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.IsFinal() {
		t.Fatal("expected tool calls, got final answer")
	}
	if len(decision.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(decision.Calls))
	}
	if decision.Calls[0].ID != "c1" || decision.Calls[0].Args["employee_id"] != "Alice" {
		t.Fatalf("unexpected first call: %#v", decision.Calls[0])
	}
	if decision.Calls[1].ID != "call_1" {
		t.Fatalf("expected synthesized id, got %q", decision.Calls[1].ID)
	}
	if decision.Message == nil {
		t.Fatal("expected raw assistant message")
	}
	if len(fake.tools) != 2 {
		t.Fatalf("expected tools to be bound, got %d", len(fake.tools))
	}
	if len(fake.lastInput) != 2 {
		t.Fatalf("expected full transcript, got %d messages", len(fake.lastInput))
	}
}

func TestDecidePassesSampling(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("Alice has 15 days left.", nil)}}
	r, err := New(context.Background(), fake, testTools, contractx.Sampling{MaxTokens: 1000, Temperature: 0.1, AutoSelect: true}, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	decision, err := r.Decide(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.IsFinal() || decision.Answer != "Alice has 15 days left." {
		t.Fatalf("unexpected decision: %#v", decision)
	}
	if fake.lastOpts.Temperature == nil || *fake.lastOpts.Temperature != 0.1 {
		t.Fatalf("unexpected temperature: %v", fake.lastOpts.Temperature)
	}
	if fake.lastOpts.MaxTokens == nil || *fake.lastOpts.MaxTokens != 1000 {
		t.Fatalf("unexpected max tokens: %v", fake.lastOpts.MaxTokens)
	}
}

func TestAutoSelectOffSkipsTools(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	if _, err := New(context.Background(), fake, testTools, contractx.Sampling{AutoSelect: false}, 0); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if fake.tools != nil {
		t.Fatalf("expected no tools bound, got %d", len(fake.tools))
	}
}

func TestDecideTimeout(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{block: true}
	r, err := New(context.Background(), fake, testTools, contractx.Sampling{AutoSelect: true}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.Decide(context.Background(), transcript)
	if !errors.Is(err, contractx.ErrReasoningTimeout) {
		t.Fatalf("expected ErrReasoningTimeout, got %v", err)
	}
}

func TestDecideModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New(`401 Unauthorized {"error":"invalid api key sk-or-xxx"}`)}
	r, err := New(context.Background(), fake, testTools, contractx.Sampling{AutoSelect: true}, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.Decide(context.Background(), transcript)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
	if strings.Contains(err.Error(), "sk-or-xxx") || strings.Contains(err.Error(), "401") {
		t.Fatalf("provider response leaked into error: %v", err)
	}
}

func TestDecideEmptyReplyIsSchemaViolation(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("  ", nil)}}
	r, err := New(context.Background(), fake, testTools, contractx.Sampling{AutoSelect: true}, time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = r.Decide(context.Background(), transcript)
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestToInvocationRequestsKeepsMalformedArgs(t *testing.T) {
	t.Parallel()

	reqs, err := toInvocationRequests([]schema.ToolCall{
		{ID: "c1", Function: schema.FunctionCall{Name: "fetch_used_days", Arguments: `{"employee_id":`}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if !errors.Is(reqs[0].ArgsErr, contractx.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", reqs[0].ArgsErr)
	}

	_, err = toInvocationRequests([]schema.ToolCall{{Function: schema.FunctionCall{Name: " "}}})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}
