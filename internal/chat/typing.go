package chat

import (
	"context"

	"github.com/ovaskevich/campuschat/internal/api"
)

// SetTyping records the local typing state toward a peer immediately,
// then informs the server. Typing indicators are a soft feature: any
// failure is swallowed so it can never interrupt messaging; permission
// denials are only logged.
func (s *Store) SetTyping(ctx context.Context, peerID int64, isTyping bool) {
	s.mu.Lock()
	changed := s.typing[peerID] != isTyping
	s.typing[peerID] = isTyping
	s.mu.Unlock()
	if changed {
		s.emit(EventTyping)
	}

	if err := s.api.SetTyping(ctx, peerID, isTyping); err != nil {
		if api.KindOf(err) == api.KindPermission {
			s.log.Debug("typing update denied", "peer", peerID, "error", err)
		}
	}
}

// PollTyping fetches the server-reported typing state for the active
// direct peer. State (and subscribers) only change when the value
// actually flipped, so a steady answer causes no re-renders.
func (s *Store) PollTyping(ctx context.Context) {
	sel := s.ActiveDirect()
	if sel == nil {
		return
	}

	status, err := s.api.TypingStatus(ctx, sel.ID)
	if err != nil {
		return
	}

	s.mu.Lock()
	changed := s.typing[sel.ID] != status.IsTyping
	if changed {
		s.typing[sel.ID] = status.IsTyping
	}
	s.mu.Unlock()
	if changed {
		s.emit(EventTyping)
	}
}

// PeerTyping reports the last known typing state for a peer.
func (s *Store) PeerTyping(peerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing[peerID]
}
