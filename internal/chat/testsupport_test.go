package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/session"
)

type fakeSession struct {
	mu    sync.Mutex
	token string
	id    session.Identity
}

func (f *fakeSession) Token() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeSession) Identity() (session.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.id.UserID != 0
}

func (f *fakeSession) setToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

// fakeAPI is a scriptable backend. Message pages are keyed by
// conversation type, id, and page number. Optional gates block individual
// calls so tests can interleave responses deterministically.
type fakeAPI struct {
	mu sync.Mutex

	conversations    []api.Conversation
	conversationsErr error
	directoryCalls   int

	groups    []api.Group
	groupsErr error

	pages    map[string]api.ListPage[api.Message]
	pageErr  error
	pageGate map[string]chan struct{}

	sendResult api.Message
	sendErr    error
	sendGate   chan struct{}

	marked    []int64
	markErr   error
	markCalls int

	typingStatus api.TypingStatus
	typingErr    error
	typingSet    []bool
	statusCalls  int

	contacts []api.User
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:    make(map[string]api.ListPage[api.Message]),
		pageGate: make(map[string]chan struct{}),
	}
}

func pageKey(t api.ConversationType, id int64, page int) string {
	return fmt.Sprintf("%s:%d:%d", t, id, page)
}

func (f *fakeAPI) setPage(t api.ConversationType, id int64, page int, msgs []api.Message, hasNext bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[pageKey(t, id, page)] = api.ListPage[api.Message]{Items: msgs, HasNext: hasNext}
}

func (f *fakeAPI) gatePage(t api.ConversationType, id int64, page int) chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.pageGate[pageKey(t, id, page)] = gate
	f.mu.Unlock()
	return gate
}

func (f *fakeAPI) Conversations(ctx context.Context) ([]api.Conversation, error) {
	f.mu.Lock()
	f.directoryCalls++
	convs, err := f.conversations, f.conversationsErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]api.Conversation, len(convs))
	copy(out, convs)
	return out, nil
}

func (f *fakeAPI) Groups(ctx context.Context) ([]api.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups, f.groupsErr
}

func (f *fakeAPI) fetchPage(key string) (api.ListPage[api.Message], error) {
	f.mu.Lock()
	gate := f.pageGate[key]
	page := f.pages[key]
	err := f.pageErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return api.ListPage[api.Message]{}, err
	}
	out := api.ListPage[api.Message]{HasNext: page.HasNext}
	out.Items = append(out.Items, page.Items...)
	return out, nil
}

func (f *fakeAPI) Conversation(ctx context.Context, user1, user2 int64, page int) (api.ListPage[api.Message], error) {
	return f.fetchPage(pageKey(api.ConversationDirect, user2, page))
}

func (f *fakeAPI) GroupMessages(ctx context.Context, groupID int64, page int) (api.ListPage[api.Message], error) {
	return f.fetchPage(pageKey(api.ConversationGroup, groupID, page))
}

func (f *fakeAPI) SendMessage(ctx context.Context, receiverID int64, content string, courseID int64) (api.Message, error) {
	f.mu.Lock()
	gate := f.sendGate
	result, err := f.sendResult, f.sendErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return api.Message{}, err
	}
	if result.Content == "" {
		result.Content = content
	}
	return result, nil
}

func (f *fakeAPI) SendGroupMessage(ctx context.Context, groupID int64, content string) (api.Message, error) {
	return f.SendMessage(ctx, groupID, content, 0)
}

func (f *fakeAPI) MarkMessageRead(ctx context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, messageID)
	return nil
}

func (f *fakeAPI) SetTyping(ctx context.Context, receiverID int64, isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typingSet = append(f.typingSet, isTyping)
	return f.typingErr
}

func (f *fakeAPI) TypingStatus(ctx context.Context, peerID int64) (api.TypingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.typingStatus, f.typingErr
}

func (f *fakeAPI) Contacts(ctx context.Context) ([]api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contacts, nil
}

func (f *fakeAPI) markedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.marked))
	copy(out, f.marked)
	return out
}

func (f *fakeAPI) directoryCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.directoryCalls
}

func newTestStore(t *testing.T, backend API, sess Session) *Store {
	t.Helper()
	if sess == nil {
		sess = &fakeSession{token: "tok", id: session.Identity{UserID: 1, FullName: "Me"}}
	}
	return NewStore(backend, sess, Options{
		DirectoryDebounce: 10 * time.Millisecond,
		NoticeTTL:         time.Minute,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func msg(id int64, senderID, receiverID int64, content string, at time.Time) api.Message {
	return api.Message{
		ID:       id,
		Sender:   api.User{ID: senderID},
		Receiver: api.User{ID: receiverID},
		Content:  content,
		SentAt:   at,
	}
}

func directConv(id int64, name string, unread int) api.Conversation {
	return api.Conversation{ID: id, Type: api.ConversationDirect, Name: name, UnreadCount: unread}
}
