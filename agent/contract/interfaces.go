package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// LeaveReader is the narrow read interface over the structured store.
type LeaveReader interface {
	FetchUsedDays(ctx context.Context, employeeID string) (int, error)
	FetchEntitlement(ctx context.Context, employeeID string) (int, error)
}

// PolicySearcher is the narrow search interface over the similarity index.
type PolicySearcher interface {
	Search(ctx context.Context, query string, topK int) ([]PolicyDocument, error)
}

// CapabilitySet is what the router needs from the capability registry.
type CapabilitySet interface {
	DescribeAll() []*schema.ToolInfo
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// Reasoner is the external decision maker. It sees the full transcript and
// either requests capability calls or returns a final answer.
type Reasoner interface {
	Decide(ctx context.Context, transcript []*schema.Message) (Decision, error)
}
