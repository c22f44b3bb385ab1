package chat

import (
	"context"
	"testing"

	"github.com/ovaskevich/campuschat/internal/api"
)

func TestSetTypingUpdatesLocallyBeforeServer(t *testing.T) {
	backend := newFakeAPI()
	backend.typingErr = &api.Error{Kind: api.KindPermission, StatusCode: 403, Detail: "denied"}
	s := newTestStore(t, backend, nil)

	// The server call fails, but local state must already reflect the
	// change and the failure stays invisible.
	s.SetTyping(context.Background(), 7, true)
	if !s.PeerTyping(7) {
		t.Fatal("local typing state not set")
	}
	if s.Timeline().Notice != "" || s.Directory().LoadError != "" {
		t.Fatal("typing failure surfaced to the user")
	}

	s.SetTyping(context.Background(), 7, false)
	if s.PeerTyping(7) {
		t.Fatal("local typing state not cleared")
	}
}

func TestPollTypingOnlyNotifiesOnChange(t *testing.T) {
	backend := newFakeAPI()
	backend.setPage(api.ConversationDirect, 7, 1, nil, false)
	s := newTestStore(t, backend, nil)
	s.Select(directConv(7, "Prof. Arnold", 0))
	waitFor(t, "initial load", func() bool { return !s.Timeline().Loading })

	events := 0
	s.Subscribe(func(e Event) {
		if e == EventTyping {
			events++
		}
	})

	backend.mu.Lock()
	backend.typingStatus = api.TypingStatus{IsTyping: true}
	backend.mu.Unlock()
	s.PollTyping(context.Background())
	if !s.PeerTyping(7) {
		t.Fatal("typing state not picked up from poll")
	}
	if events != 1 {
		t.Fatalf("expected 1 typing event, got %d", events)
	}

	// Same answer again: no state change, no event.
	s.PollTyping(context.Background())
	if events != 1 {
		t.Fatalf("redundant poll fired an event: %d", events)
	}

	backend.mu.Lock()
	backend.typingStatus = api.TypingStatus{IsTyping: false}
	backend.mu.Unlock()
	s.PollTyping(context.Background())
	if s.PeerTyping(7) {
		t.Fatal("typing state not cleared from poll")
	}
	if events != 2 {
		t.Fatalf("expected 2 typing events, got %d", events)
	}
}

func TestPollTypingWithoutDirectSelectionIsNoop(t *testing.T) {
	backend := newFakeAPI()
	s := newTestStore(t, backend, nil)
	s.PollTyping(context.Background())

	backend.mu.Lock()
	calls := backend.statusCalls
	backend.mu.Unlock()
	if calls != 0 {
		t.Fatalf("typing polled with no active peer: %d calls", calls)
	}
}
