package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

// Registry holds the process-wide capability set. Capabilities are registered
// at startup and are read-only afterwards, so lookups only take a read lock.
type Registry struct {
	mu    sync.RWMutex
	order []string
	caps  map[string]contractx.Capability
}

var _ contractx.CapabilitySet = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		caps: make(map[string]contractx.Capability, 4),
	}
}

func (r *Registry) Register(c contractx.Capability) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("%w: capability name is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("%w: capability=%s has no description", contractx.ErrValidation, name)
	}
	if c.Handler == nil {
		return fmt.Errorf("%w: capability=%s has no handler", contractx.ErrValidation, name)
	}

	seen := make(map[string]struct{}, len(c.Params))
	for _, p := range c.Params {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: capability=%s has an unnamed parameter", contractx.ErrValidation, name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: capability=%s repeats parameter=%s", contractx.ErrValidation, name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if _, ok := dataTypes[p.Type]; !ok {
			return fmt.Errorf("%w: capability=%s parameter=%s has unsupported type %q", contractx.ErrValidation, name, p.Name, p.Type)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[name]; exists {
		return fmt.Errorf("%w: capability=%s already registered", contractx.ErrValidation, name)
	}
	c.Name = name
	c.Params = append([]contractx.Parameter(nil), c.Params...)
	r.caps[name] = c
	r.order = append(r.order, name)
	return nil
}

// DescribeAll returns the registry as eino tool infos, in registration order.
func (r *Registry) DescribeAll() []*schema.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, toolInfo(r.caps[name]))
	}
	return infos
}

func (r *Registry) Capabilities() []contractx.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contractx.Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.caps[name])
	}
	return out
}

// Invoke validates args against the named capability's contract and runs it.
// Contract violations fail with ErrInvalidArgument and never reach the handler.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	c, ok := r.caps[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown capability %q", contractx.ErrInvalidArgument, name)
	}

	normalized, err := validateArgs(c, args)
	if err != nil {
		return nil, err
	}
	return c.Handler(ctx, normalized)
}

var dataTypes = map[contractx.ParamType]schema.DataType{
	contractx.ParamString:  schema.String,
	contractx.ParamInteger: schema.Integer,
}

func toolInfo(c contractx.Capability) *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(c.Params))
	for _, p := range c.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     dataTypes[p.Type],
			Desc:     p.Description,
			Required: p.Required,
		}
	}

	desc := c.Description
	if c.Returns != "" {
		desc = desc + " Returns " + c.Returns
	}

	return &schema.ToolInfo{
		Name:        c.Name,
		Desc:        desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func validateArgs(c contractx.Capability, args map[string]any) (map[string]any, error) {
	declared := make(map[string]contractx.Parameter, len(c.Params))
	for _, p := range c.Params {
		declared[p.Name] = p
	}

	for key := range args {
		if _, ok := declared[key]; !ok {
			return nil, fmt.Errorf("%w: capability=%s does not accept argument %q", contractx.ErrInvalidArgument, c.Name, key)
		}
	}

	out := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, fmt.Errorf("%w: capability=%s requires argument %q", contractx.ErrInvalidArgument, c.Name, p.Name)
			}
			continue
		}

		value, err := coerce(p, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: capability=%s argument %q: %v", contractx.ErrInvalidArgument, c.Name, p.Name, err)
		}
		out[p.Name] = value
	}
	return out, nil
}

func coerce(p contractx.Parameter, raw any) (any, error) {
	switch p.Type {
	case contractx.ParamString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %T", raw)
		}
		s = strings.TrimSpace(s)
		if p.Required && s == "" {
			return nil, fmt.Errorf("must not be empty")
		}
		return s, nil
	case contractx.ParamInteger:
		return toInt(raw)
	default:
		return nil, fmt.Errorf("unsupported type %q", p.Type)
	}
}

// toInt accepts the numeric shapes a JSON decoder may produce, rejecting
// anything with a fractional part.
func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("must be an integer, got %v", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %s", v.String())
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", raw)
	}
}
