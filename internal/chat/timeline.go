package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/session"
)

// ErrNoSelection is returned by send and pagination operations when no
// conversation (or one of the wrong type) is active.
var ErrNoSelection = errors.New("no conversation selected")

// Load fetches one page of messages for the given conversation and merges
// it into the timeline.
//
// Modes:
//   - replace: the page wholesale replaces the timeline (initial load
//     after selection) and the cursor resets to page 1;
//   - page > 1: older history, prepended after id de-duplication;
//   - page 1, non-replace: silent background poll, appended after id
//     de-duplication.
//
// A fetch whose target no longer matches the active selection when the
// response arrives is discarded: a reply racing in from a just-abandoned
// conversation must never corrupt the new conversation's view.
func (s *Store) Load(ctx context.Context, target Selection, page int, replace bool) error {
	if !replace {
		s.mu.Lock()
		stale := s.active == nil || *s.active != target
		s.mu.Unlock()
		if stale {
			return nil
		}
	}

	var (
		fetched api.ListPage[api.Message]
		err     error
	)
	switch target.Type {
	case api.ConversationDirect:
		me, _ := s.sess.Identity()
		fetched, err = s.api.Conversation(ctx, me.UserID, target.ID, page)
	case api.ConversationGroup:
		fetched, err = s.api.GroupMessages(ctx, target.ID, page)
	default:
		return nil
	}
	if err != nil {
		s.recordTimelineError(err)
		return err
	}

	s.mu.Lock()
	// Stale-response guard: evaluated at resolution time, not issue time.
	if s.active == nil || *s.active != target {
		s.mu.Unlock()
		return nil
	}

	switch {
	case replace:
		s.messages = mergeMessages(nil, fetched.Items, false)
		s.page = 1
	case page > 1:
		s.messages = mergeMessages(s.messages, fetched.Items, true)
		s.page = page
	default:
		s.messages = mergeMessages(s.messages, fetched.Items, false)
	}
	s.hasMore = fetched.HasNext
	s.loading = false
	s.authErr = false
	s.loadErr = ""

	var toMark []int64
	if page == 1 && target.Type == api.ConversationDirect {
		me, _ := s.sess.Identity()
		for _, m := range s.messages {
			if !m.Pending && !m.IsRead && m.Receiver.ID == me.UserID && me.UserID != 0 {
				toMark = append(toMark, m.ID)
			}
		}
	}
	s.mu.Unlock()
	s.emit(EventTimeline)

	if len(toMark) > 0 {
		s.markReadBatch(ctx, target, toMark)
	}
	return nil
}

// LoadOlder pulls the next page of history for the active conversation.
// No-op when nothing is selected or no further pages exist.
func (s *Store) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	if s.active == nil || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	target := *s.active
	next := s.page + 1
	s.mu.Unlock()
	return s.Load(ctx, target, next, false)
}

// markReadBatch issues one mark-as-read call per message, concurrently;
// an individual failure never blocks the rest of the batch. Local flags
// flip per confirmation and the directory refresh is debounced so the
// unread badge converges without a refresh per call. Paginating older
// history never reaches here: viewing old messages must not re-trigger
// unread transitions.
func (s *Store) markReadBatch(ctx context.Context, target Selection, ids []int64) {
	var wg sync.WaitGroup
	confirmed := make([]bool, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			if err := s.api.MarkMessageRead(ctx, id); err != nil {
				s.log.Debug("mark-as-read failed", "message_id", id, "error", err)
				return
			}
			confirmed[i] = true
		}(i, id)
	}
	wg.Wait()

	any := false
	s.mu.Lock()
	if s.active != nil && *s.active == target {
		for i, ok := range confirmed {
			if !ok {
				continue
			}
			for j := range s.messages {
				if !s.messages[j].Pending && s.messages[j].ID == ids[i] {
					s.messages[j].IsRead = true
					any = true
				}
			}
		}
	}
	s.mu.Unlock()

	if any {
		s.emit(EventTimeline)
		s.RequestDirectoryRefresh()
	}
}

// SendMessage appends an optimistic entry for the active direct peer and
// reconciles it against the server's response: replaced in place on
// success, removed entirely on failure.
func (s *Store) SendMessage(ctx context.Context, content string, courseID int64) error {
	s.mu.Lock()
	if s.active == nil || s.active.Type != api.ConversationDirect {
		s.mu.Unlock()
		return ErrNoSelection
	}
	target := *s.active

	me, ok := s.sess.Identity()
	if !ok {
		// The server attributes the sender from its own session; the
		// placeholder only labels the optimistic entry locally.
		me = session.Identity{FullName: "You"}
	}

	s.pendingSeq++
	pending := Message{
		Message: api.Message{
			ID:       -s.pendingSeq,
			Sender:   api.User{ID: me.UserID, FullName: me.FullName},
			Receiver: api.User{ID: target.ID, FullName: target.Name},
			Content:  content,
			SentAt:   s.now(),
			CourseID: courseID,
		},
		Pending:    true,
		pendingTag: uuid.NewString(),
	}
	tag := pending.pendingTag
	s.messages = append(s.messages, pending)
	s.sending = true
	s.mu.Unlock()
	s.emit(EventTimeline)

	created, err := s.api.SendMessage(ctx, target.ID, content, courseID)
	if err != nil {
		s.removePending(tag)
		s.recordSendError(err)
		return err
	}

	s.mu.Lock()
	s.confirmPendingLocked(tag, created)
	s.sending = false
	s.typing[target.ID] = false
	s.mu.Unlock()
	s.emit(EventTimeline)

	go func() {
		if err := s.api.SetTyping(context.Background(), target.ID, false); err != nil {
			s.log.Debug("typing stop after send failed", "error", err)
		}
	}()
	s.RequestDirectoryRefresh()
	return nil
}

// SendGroupMessage is the group analogue of SendMessage.
func (s *Store) SendGroupMessage(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.active == nil || s.active.Type != api.ConversationGroup {
		s.mu.Unlock()
		return ErrNoSelection
	}
	target := *s.active

	me, ok := s.sess.Identity()
	if !ok {
		me = session.Identity{FullName: "You"}
	}

	s.pendingSeq++
	pending := Message{
		Message: api.Message{
			ID:      -s.pendingSeq,
			Sender:  api.User{ID: me.UserID, FullName: me.FullName},
			Content: content,
			SentAt:  s.now(),
		},
		Pending:    true,
		pendingTag: uuid.NewString(),
	}
	tag := pending.pendingTag
	s.messages = append(s.messages, pending)
	s.sending = true
	s.mu.Unlock()
	s.emit(EventTimeline)

	created, err := s.api.SendGroupMessage(ctx, target.ID, content)
	if err != nil {
		s.removePending(tag)
		s.recordSendError(err)
		return err
	}

	s.mu.Lock()
	s.confirmPendingLocked(tag, created)
	s.sending = false
	s.mu.Unlock()
	s.emit(EventTimeline)

	s.RequestDirectoryRefresh()
	return nil
}

// confirmPendingLocked swaps a pending entry for its server-issued record.
// When a background poll already merged the server echo, the pending entry
// is dropped instead so the confirmed id appears exactly once.
func (s *Store) confirmPendingLocked(tag string, created api.Message) {
	echoed := false
	for i := range s.messages {
		if !s.messages[i].Pending && s.messages[i].ID == created.ID {
			echoed = true
			break
		}
	}

	for i := range s.messages {
		if s.messages[i].pendingTag != tag {
			continue
		}
		if echoed {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
		} else {
			s.messages[i] = Message{Message: created}
			sortMessages(s.messages)
		}
		return
	}
}

func (s *Store) removePending(tag string) {
	s.mu.Lock()
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.pendingTag != tag {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	s.sending = false
	s.mu.Unlock()
	s.emit(EventTimeline)
}

func (s *Store) recordSendError(err error) {
	switch api.KindOf(err) {
	case api.KindAuth:
		s.mu.Lock()
		s.authErr = true
		s.mu.Unlock()
		s.emit(EventDirectory)
	case api.KindPermission:
		s.setNotice(friendlyDenial(api.Reason(err)))
	default:
		s.mu.Lock()
		s.loadErr = "Couldn't send your message. Please try again."
		s.mu.Unlock()
		s.emit(EventTimeline)
	}
	s.log.Debug("send failed", "kind", api.KindOf(err).String(), "error", err)
}

func (s *Store) recordTimelineError(err error) {
	kind := api.KindOf(err)
	s.mu.Lock()
	switch kind {
	case api.KindAuth:
		s.authErr = true
	case api.KindServer:
		// Next poll retries; keep quiet.
	default:
		s.loadErr = "Couldn't load messages. Retrying…"
	}
	s.loading = false
	s.mu.Unlock()
	if kind == api.KindServer {
		s.log.Warn("timeline load hit server fault", "error", err)
	}
	s.emit(EventTimeline)
}

// friendlyDenial maps the backend's permission-denial text onto the short
// messages the views show. The raw reasons embed ids and role details the
// user has no use for.
func friendlyDenial(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "enrolled"):
		return "You can only message teachers of courses you are enrolled in."
	case strings.Contains(lower, "teacher"):
		return "Only the teacher of this course can receive this message."
	default:
		return "You don't have permission to send this message."
	}
}

// mergeMessages folds a fetched page into the timeline. Confirmed ids
// already present are dropped, pending entries are left untouched (their
// synthetic negative ids can never match a server id), and the result is
// re-sorted ascending by send time.
func mergeMessages(existing []Message, incoming []api.Message, prepend bool) []Message {
	seen := make(map[int64]struct{}, len(existing))
	for _, m := range existing {
		if !m.Pending {
			seen[m.ID] = struct{}{}
		}
	}

	fresh := make([]Message, 0, len(incoming))
	for _, m := range incoming {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		fresh = append(fresh, Message{Message: m})
	}

	var merged []Message
	if prepend {
		merged = append(fresh, existing...)
	} else {
		merged = append(append([]Message{}, existing...), fresh...)
	}
	sortMessages(merged)
	return merged
}

func sortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}
