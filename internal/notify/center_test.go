package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ovaskevich/campuschat/internal/api"
)

type fakeBackend struct {
	mu            sync.Mutex
	notifications []api.Notification
	listErr       error
	markErr       error
	markAllErr    error
	count         int
	countErr      error
	countCalls    atomic.Int64
	listCalls     atomic.Int64
	marked        []int64
}

func (f *fakeBackend) Notifications(ctx context.Context) ([]api.Notification, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]api.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeBackend) MarkAllNotificationsRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markAllErr
}

func (f *fakeBackend) UnreadNotificationCount(ctx context.Context) (int, error) {
	f.countCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

type tokens struct{ present atomic.Bool }

func (t *tokens) Token() (string, bool) {
	if t.present.Load() {
		return "tok", true
	}
	return "", false
}

func notice(id int64, read bool) api.Notification {
	return api.Notification{ID: id, Title: "n", IsRead: read, CreatedAt: time.Now()}
}

func newTestCenter(backend *fakeBackend) (*Center, *tokens) {
	toks := &tokens{}
	toks.present.Store(true)
	center := NewCenter(backend, toks, Options{
		PollInterval: 25 * time.Millisecond,
		ResyncDelay:  10 * time.Millisecond,
	})
	return center, toks
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

func TestLoadReplacesListAndCountsUnread(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notice(1, false), notice(2, true), notice(3, false),
	}}
	center, _ := newTestCenter(backend)

	if err := center.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap := center.State()
	if len(snap.Notifications) != 3 || snap.Unread != 2 {
		t.Fatalf("unexpected state: %d items, %d unread", len(snap.Notifications), snap.Unread)
	}
}

func TestLoadFailureKeepsPriorData(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false)}}
	center, _ := newTestCenter(backend)
	if err := center.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	backend.mu.Lock()
	backend.listErr = &api.Error{Kind: api.KindServer, StatusCode: 500}
	backend.mu.Unlock()

	if err := center.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	snap := center.State()
	if len(snap.Notifications) != 1 {
		t.Fatal("server fault must not blank the list")
	}
	if snap.LoadError != "" || snap.AuthError {
		t.Fatalf("server faults are silent, got %+v", snap)
	}
}

func TestLoadAuthFailureFlags(t *testing.T) {
	backend := &fakeBackend{listErr: &api.Error{Kind: api.KindAuth, StatusCode: 401}}
	center, _ := newTestCenter(backend)
	if err := center.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if !center.State().AuthError {
		t.Fatal("auth failure must set the auth flag")
	}
}

func TestMarkReadOptimisticThenResync(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false), notice(2, false)}}
	backend.count = 1
	center, _ := newTestCenter(backend)
	if err := center.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := center.MarkRead(context.Background(), 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	snap := center.State()
	if !snap.Notifications[0].IsRead || snap.Unread != 1 {
		t.Fatalf("optimistic flip missing: %+v", snap)
	}

	waitFor(t, "unread-count resync", func() bool { return backend.countCalls.Load() > 0 })
}

func TestMarkReadRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false)}}
	backend.markErr = errors.New("boom")
	center, _ := newTestCenter(backend)
	if err := center.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := center.MarkRead(context.Background(), 1); err == nil {
		t.Fatal("expected the mark failure to propagate")
	}
	snap := center.State()
	if snap.Notifications[0].IsRead || snap.Unread != 1 {
		t.Fatalf("rollback missing: %+v", snap)
	}
}

func TestMarkAllReadRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false), notice(2, true)}}
	backend.markAllErr = errors.New("boom")
	center, _ := newTestCenter(backend)
	if err := center.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := center.MarkAllRead(context.Background()); err == nil {
		t.Fatal("expected the bulk failure to propagate")
	}
	snap := center.State()
	if snap.Notifications[0].IsRead || !snap.Notifications[1].IsRead || snap.Unread != 1 {
		t.Fatalf("per-entry rollback missing: %+v", snap)
	}
}

func TestResyncOverridesOptimisticCount(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false), notice(2, false)}}
	backend.count = 5 // server disagrees with the local arithmetic
	center, _ := newTestCenter(backend)
	if err := center.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := center.MarkRead(context.Background(), 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	waitFor(t, "authoritative badge", func() bool { return center.State().Unread == 5 })
}

func TestStartPollingIsIdempotent(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false)}}
	center, _ := newTestCenter(backend)

	center.StartPolling()
	center.StartPolling()
	center.StartPolling()
	defer center.StopPolling()

	time.Sleep(110 * time.Millisecond)
	center.StopPolling()

	calls := backend.listCalls.Load()
	if calls < 2 || calls > 6 {
		t.Fatalf("expected a single ~25ms loop, observed %d loads", calls)
	}
	if center.Polling() {
		t.Fatal("stopped center still reports polling")
	}
}

func TestPollingRefusesWithoutCredential(t *testing.T) {
	backend := &fakeBackend{}
	center, toks := newTestCenter(backend)
	toks.present.Store(false)

	center.StartPolling()
	if center.Polling() {
		t.Fatal("polling must not start without a credential")
	}
}

func TestPollingStopsWhenCredentialDisappears(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{notice(1, false)}}
	center, toks := newTestCenter(backend)

	center.StartPolling()
	waitFor(t, "first poll", func() bool { return backend.listCalls.Load() > 0 })

	toks.present.Store(false)
	waitFor(t, "self-stop", func() bool { return !center.Polling() })
}
