package capability

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

const (
	FetchUsedDays         = "fetch_used_days"
	FetchLeaveEntitlement = "fetch_leave_entitlement"
	SearchPolicy          = "search_policy"

	DefaultTopK = 3
	MaxTopK     = 10
)

type UsedDaysResult struct {
	EmployeeID string `json:"employee_id"`
	Found      bool   `json:"found"`
	UsedDays   int    `json:"used_days"`
}

type EntitlementResult struct {
	EmployeeID      string `json:"employee_id"`
	Found           bool   `json:"found"`
	EntitlementDays int    `json:"entitlement_days"`
}

type PolicyHit struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float32 `json:"score"`
}

type PolicySearchResult struct {
	Query     string      `json:"query"`
	Documents []PolicyHit `json:"documents"`
}

// NewHRRegistry registers the leave and policy capabilities. Descriptions are
// the only selection signal the reasoning engine gets.
func NewHRRegistry(leaves contractx.LeaveReader, policies contractx.PolicySearcher) (*Registry, error) {
	if leaves == nil {
		return nil, fmt.Errorf("%w: leave reader is required", contractx.ErrValidation)
	}
	if policies == nil {
		return nil, fmt.Errorf("%w: policy searcher is required", contractx.ErrValidation)
	}

	employee := contractx.Parameter{
		Name:        "employee_id",
		Type:        contractx.ParamString,
		Description: "Employee name exactly as written in the question, e.g. Alice.",
		Required:    true,
	}

	caps := []contractx.Capability{
		{
			Name:        FetchUsedDays,
			Description: "Fetch the number of leave days an employee has already taken in the current year.",
			Params:      []contractx.Parameter{employee},
			Returns:     "{employee_id, found, used_days}; found=false means the employee has no leave record.",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id := args["employee_id"].(string)
				days, err := leaves.FetchUsedDays(ctx, id)
				if errors.Is(err, contractx.ErrNotFound) {
					return UsedDaysResult{EmployeeID: id}, nil
				}
				if err != nil {
					return nil, err
				}
				return UsedDaysResult{EmployeeID: id, Found: true, UsedDays: days}, nil
			},
		},
		{
			Name:        FetchLeaveEntitlement,
			Description: "Fetch the total number of annual leave days an employee is entitled to per year.",
			Params:      []contractx.Parameter{employee},
			Returns:     "{employee_id, found, entitlement_days}; found=false means the employee has no leave record.",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id := args["employee_id"].(string)
				days, err := leaves.FetchEntitlement(ctx, id)
				if errors.Is(err, contractx.ErrNotFound) {
					return EntitlementResult{EmployeeID: id}, nil
				}
				if err != nil {
					return nil, err
				}
				return EntitlementResult{EmployeeID: id, Found: true, EntitlementDays: days}, nil
			},
		},
		{
			Name:        SearchPolicy,
			Description: "Search company HR policy documents for general questions about leave rules and entitlements.",
			Params: []contractx.Parameter{
				{Name: "query", Type: contractx.ParamString, Description: "The policy question in plain words.", Required: true},
				{Name: "top_k", Type: contractx.ParamInteger, Description: "Maximum number of documents to return, 1 to 10. Defaults to 3."},
			},
			Returns: "{query, documents:[{text, type, score}]} ordered by descending relevance; may be empty.",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query := args["query"].(string)
				topK := DefaultTopK
				if v, ok := args["top_k"].(int); ok {
					topK = v
				}
				if topK < 1 || topK > MaxTopK {
					return nil, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", contractx.ErrInvalidArgument, MaxTopK, topK)
				}

				docs, err := policies.Search(ctx, query, topK)
				if err != nil {
					return nil, err
				}
				hits := make([]PolicyHit, 0, len(docs))
				for _, d := range docs {
					hits = append(hits, PolicyHit{Text: d.Text, Type: d.Type, Score: d.Score})
				}
				return PolicySearchResult{Query: query, Documents: hits}, nil
			},
		},
	}

	r := NewRegistry()
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}
