package chat

import (
	"context"
	"sort"
	"time"

	"github.com/ovaskevich/campuschat/internal/api"
)

// RefreshDirectory fetches the full conversation list (direct peers plus
// course groups) and replaces the stored directory wholesale. Failures
// never blank previously loaded data: polling runs every few seconds
// against an imperfect network, and a flickering empty list on every
// hiccup is a correctness bug, not a cosmetic one.
func (s *Store) RefreshDirectory(ctx context.Context) error {
	directs, err := s.api.Conversations(ctx)
	if err != nil {
		s.recordDirectoryError(err)
		return err
	}
	groups, err := s.api.Groups(ctx)
	if err != nil {
		s.recordDirectoryError(err)
		return err
	}

	merged := make([]api.Conversation, 0, len(directs)+len(groups))
	merged = append(merged, directs...)
	for _, g := range groups {
		conv := api.Conversation{
			ID:          g.ID,
			Type:        api.ConversationGroup,
			Name:        g.Name,
			LastPreview: g.LastPreview,
			UnreadCount: g.UnreadCount,
		}
		if g.LastTime != nil {
			conv.LastTime = *g.LastTime
		}
		merged = append(merged, conv)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].LastTime.After(merged[j].LastTime)
	})

	total := 0
	for _, c := range merged {
		total += c.UnreadCount
	}

	s.mu.Lock()
	s.conversations = merged
	s.totalUnread = total
	s.authErr = false
	s.loadErr = ""
	s.mu.Unlock()
	s.emit(EventDirectory)
	return nil
}

// recordDirectoryError applies the failure taxonomy without touching the
// loaded list: auth errors raise the login flag, server faults are logged
// and retried by the next tick, anything else sets a recoverable message.
func (s *Store) recordDirectoryError(err error) {
	kind := api.KindOf(err)
	s.mu.Lock()
	switch kind {
	case api.KindAuth:
		s.authErr = true
	case api.KindServer:
		// Recoverable on the next poll; never surfaced.
	default:
		s.loadErr = "Couldn't refresh conversations. Retrying…"
	}
	s.mu.Unlock()
	if kind == api.KindServer {
		s.log.Warn("directory refresh hit server fault", "error", err)
	} else {
		s.log.Debug("directory refresh failed", "kind", kind.String(), "error", err)
	}
	s.emit(EventDirectory)
}

// RequestDirectoryRefresh schedules a debounced background refresh. Calls
// arriving while one is armed coalesce into the single pending refresh.
func (s *Store) RequestDirectoryRefresh() {
	s.mu.Lock()
	if s.dirRefreshArmed {
		s.mu.Unlock()
		return
	}
	s.dirRefreshArmed = true
	delay := s.directoryDebounce
	s.mu.Unlock()

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.dirRefreshArmed = false
		s.mu.Unlock()
		if _, ok := s.sess.Token(); !ok {
			return
		}
		if err := s.RefreshDirectory(context.Background()); err != nil {
			s.log.Debug("debounced directory refresh failed", "error", err)
		}
	})
}

// Select makes the given conversation active, exclusively: any previous
// selection of either type is replaced. Transient errors clear and the
// timeline resets before its initial load kicks off in the background.
func (s *Store) Select(conv api.Conversation) {
	sel := Selection{Type: conv.Type, ID: conv.ID, Name: conv.Name}

	s.mu.Lock()
	s.active = &sel
	s.messages = nil
	s.page = 1
	s.hasMore = false
	s.loading = true
	s.sending = false
	s.loadErr = ""
	s.notice = ""
	s.mu.Unlock()
	s.emit(EventTimeline)

	go func() {
		if err := s.Load(context.Background(), sel, 1, true); err != nil {
			s.log.Debug("initial timeline load failed", "error", err)
		}
	}()
}

// ClearSelection returns the store to the no-conversation state.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.active = nil
	s.messages = nil
	s.page = 1
	s.hasMore = false
	s.loading = false
	s.sending = false
	s.mu.Unlock()
	s.emit(EventTimeline)
}
