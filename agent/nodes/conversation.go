package routernode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	statex "github.com/tanpawarit/hr-leave-assistant/agent/state"
)

// LoadConversation attaches stored turns when the query carries a session
// key. Memory is best effort: a failing store never fails the query.
func LoadConversation(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if store == nil || in.SessionKey == "" {
		return in, nil
	}

	conv, err := store.Load(ctx, in.SessionKey)
	switch {
	case err == nil:
		in.Conversation = conv
	case errors.Is(err, statex.ErrStateNotFound):
		in.Conversation = statex.NewConversation(in.SessionKey, in.Now)
	default:
		log.Ctx(ctx).Warn().Err(err).Str("session_key", in.SessionKey).Msg("load conversation")
		in.Conversation = statex.NewConversation(in.SessionKey, in.Now)
	}
	return in, nil
}

// SaveConversation records the finished turn. Failed sessions are not saved.
func SaveConversation(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if store == nil || in.Conversation == nil || in.Err != nil {
		return in, nil
	}

	in.Conversation.Append(in.Text, in.Answer, in.Now)
	if err := store.Save(ctx, in.Conversation); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("session_key", in.SessionKey).Msg("save conversation")
	}
	return in, nil
}
