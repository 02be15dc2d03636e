package state

import (
	"errors"
	"strings"
	"time"
)

// MaxTurns bounds how much history is replayed into a new query.
const MaxTurns = 10

// Conversation is the caller-owned memory attached to a session key. It is
// only read and written when a query carries that key.
type Conversation struct {
	SessionKey string    `json:"session_key"`
	Turns      []Turn    `json:"turns,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Turn struct {
	Query  string    `json:"query"`
	Answer string    `json:"answer"`
	At     time.Time `json:"at"`
}

func NewConversation(sessionKey string, now time.Time) *Conversation {
	return &Conversation{
		SessionKey: strings.TrimSpace(sessionKey),
		UpdatedAt:  now.UTC(),
	}
}

// Append records a finished turn and drops the oldest ones beyond MaxTurns.
func (c *Conversation) Append(query, answer string, now time.Time) {
	c.Turns = append(c.Turns, Turn{Query: query, Answer: answer, At: now.UTC()})
	if len(c.Turns) > MaxTurns {
		c.Turns = append([]Turn(nil), c.Turns[len(c.Turns)-MaxTurns:]...)
	}
	c.UpdatedAt = now.UTC()
}

func (c *Conversation) Validate() error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.SessionKey) == "" {
		return ErrInvalidSession
	}
	if len(c.Turns) > MaxTurns {
		return errors.New("conversation exceeds max turns")
	}
	return nil
}
