package routernode

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

// InitSession seeds the transcript: system instruction, replayed turns, then
// the user query.
func InitSession(in *GraphState, systemPrompt string) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, contractx.ErrPromptMissing
	}

	transcript := []*schema.Message{schema.SystemMessage(systemPrompt)}
	if in.Conversation != nil {
		for _, turn := range in.Conversation.Turns {
			transcript = append(transcript,
				schema.UserMessage(turn.Query),
				schema.AssistantMessage(turn.Answer, nil),
			)
		}
	}
	in.Transcript = append(transcript, schema.UserMessage(in.Text))
	return in, nil
}
