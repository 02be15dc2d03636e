package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

//go:embed template/system.txt
var systemRaw string

// System renders the system instruction: the decision policy followed by a
// listing of the capability set.
func System(caps []contractx.Capability) (string, error) {
	policy := strings.TrimSpace(systemRaw)
	if policy == "" {
		return "", fmt.Errorf("%w: system instruction", contractx.ErrPromptMissing)
	}
	if len(caps) == 0 {
		return policy, nil
	}

	var b strings.Builder
	b.WriteString(policy)
	b.WriteString("\n\nCapabilities:")
	for _, c := range caps {
		params := make([]string, 0, len(c.Params))
		for _, p := range c.Params {
			opt := ""
			if !p.Required {
				opt = "?"
			}
			params = append(params, fmt.Sprintf("%s%s: %s", p.Name, opt, p.Type))
		}
		fmt.Fprintf(&b, "\n- %s(%s): %s", c.Name, strings.Join(params, ", "), c.Description)
		if c.Returns != "" {
			fmt.Fprintf(&b, " Returns %s", c.Returns)
		}
	}
	return b.String(), nil
}
