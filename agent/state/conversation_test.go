package state

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestConversationAppendKeepsLastTurns(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	conv := NewConversation(" s1 ", now)
	if conv.SessionKey != "s1" {
		t.Fatalf("SessionKey = %q, want s1", conv.SessionKey)
	}

	for i := 0; i < MaxTurns+3; i++ {
		conv.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), now.Add(time.Duration(i)*time.Minute))
	}
	if len(conv.Turns) != MaxTurns {
		t.Fatalf("len(Turns) = %d, want %d", len(conv.Turns), MaxTurns)
	}
	if conv.Turns[0].Query != "q3" {
		t.Fatalf("oldest kept turn = %q, want q3", conv.Turns[0].Query)
	}
	if err := conv.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}

	conv := NewConversation("s1", time.Now())
	conv.Append("q", "a", time.Now())
	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	conv.Append("mutated", "after save", time.Now())
	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Turns) != 1 {
		t.Fatalf("stored conversation shares memory with caller: %#v", got.Turns)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after delete error = %v", err)
	}

	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilConversation) {
		t.Fatalf("Save(nil) error = %v", err)
	}
}
