// Package notify keeps the system-notification list and unread badge in
// sync with the backend. It mirrors the conversation directory's
// replace-and-reconcile pattern but runs a fully independent poll loop:
// a stall or failure on the messaging side never touches notifications,
// and vice versa.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ovaskevich/campuschat/internal/api"
)

// API is the backend slice the center consumes; *api.Client satisfies it.
type API interface {
	Notifications(ctx context.Context) ([]api.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
	UnreadNotificationCount(ctx context.Context) (int, error)
}

// TokenSource gates polling on credential presence.
type TokenSource interface {
	Token() (string, bool)
}

// Center holds notification state.
type Center struct {
	mu   sync.Mutex
	api  API
	toks TokenSource
	log  *slog.Logger

	notifications []api.Notification
	unread        int
	authErr       bool
	loadErr       string

	onChange func()

	resyncDelay time.Duration

	pollMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	ticker time.Duration
}

// Options tunes the center; zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	ResyncDelay  time.Duration
	Logger       *slog.Logger
}

// NewCenter builds a center over the backend client.
func NewCenter(backend API, toks TokenSource, opts Options) *Center {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.ResyncDelay <= 0 {
		opts.ResyncDelay = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Center{
		api:         backend,
		toks:        toks,
		log:         opts.Logger,
		ticker:      opts.PollInterval,
		resyncDelay: opts.ResyncDelay,
	}
}

// Subscribe registers the change listener, invoked outside the lock.
func (c *Center) Subscribe(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Center) emit() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Snapshot is a copy of notification state safe to render from.
type Snapshot struct {
	Notifications []api.Notification
	Unread        int
	AuthError     bool
	LoadError     string
}

// State returns the current snapshot.
func (c *Center) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Notifications: make([]api.Notification, len(c.notifications)),
		Unread:        c.unread,
		AuthError:     c.authErr,
		LoadError:     c.loadErr,
	}
	copy(snap.Notifications, c.notifications)
	return snap
}

// Load replaces the stored list and recomputes the unread count from the
// entries themselves. Failures keep prior data, same taxonomy as the
// conversation directory: a populated list is never blanked by an error.
func (c *Center) Load(ctx context.Context) error {
	notifications, err := c.api.Notifications(ctx)
	if err != nil {
		c.recordError(err)
		return err
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}

	c.mu.Lock()
	c.notifications = notifications
	c.unread = unread
	c.authErr = false
	c.loadErr = ""
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Center) recordError(err error) {
	kind := api.KindOf(err)
	c.mu.Lock()
	switch kind {
	case api.KindAuth:
		c.authErr = true
	case api.KindServer:
		// Next poll retries; not shown.
	default:
		c.loadErr = "Couldn't refresh notifications. Retrying…"
	}
	c.mu.Unlock()
	if kind == api.KindServer {
		c.log.Warn("notification load hit server fault", "error", err)
	}
	c.emit()
}

// MarkRead optimistically flips one entry, confirms it server-side, then
// schedules an authoritative unread-count re-sync. The optimistic flip
// exists for perceived responsiveness; the delayed count fetch is what
// the badge ultimately trusts.
func (c *Center) MarkRead(ctx context.Context, id int64) error {
	c.mu.Lock()
	flipped := false
	for i := range c.notifications {
		if c.notifications[i].ID == id && !c.notifications[i].IsRead {
			c.notifications[i].IsRead = true
			c.unread--
			flipped = true
			break
		}
	}
	c.mu.Unlock()
	if flipped {
		c.emit()
	}

	if err := c.api.MarkNotificationRead(ctx, id); err != nil {
		c.mu.Lock()
		for i := range c.notifications {
			if c.notifications[i].ID == id && flipped {
				c.notifications[i].IsRead = false
				c.unread++
				break
			}
		}
		c.mu.Unlock()
		c.emit()
		return err
	}

	c.scheduleResync()
	return nil
}

// MarkAllRead is the bulk analogue of MarkRead.
func (c *Center) MarkAllRead(ctx context.Context) error {
	c.mu.Lock()
	prior := make([]bool, len(c.notifications))
	for i := range c.notifications {
		prior[i] = c.notifications[i].IsRead
		c.notifications[i].IsRead = true
	}
	priorUnread := c.unread
	c.unread = 0
	c.mu.Unlock()
	c.emit()

	if err := c.api.MarkAllNotificationsRead(ctx); err != nil {
		c.mu.Lock()
		for i := range c.notifications {
			if i < len(prior) {
				c.notifications[i].IsRead = prior[i]
			}
		}
		c.unread = priorUnread
		c.mu.Unlock()
		c.emit()
		return err
	}

	c.scheduleResync()
	return nil
}

// scheduleResync fetches the authoritative unread count after a short
// delay, letting the backend settle before the badge is corrected.
func (c *Center) scheduleResync() {
	time.AfterFunc(c.resyncDelay, func() {
		if _, ok := c.toks.Token(); !ok {
			return
		}
		count, err := c.api.UnreadNotificationCount(context.Background())
		if err != nil {
			c.log.Debug("unread-count resync failed", "error", err)
			return
		}
		c.mu.Lock()
		changed := c.unread != count
		c.unread = count
		c.mu.Unlock()
		if changed {
			c.emit()
		}
	})
}

// StartPolling launches the center's single poll loop. Idempotent: a
// running loop is stopped before the new one starts. No-op without a
// credential.
func (c *Center) StartPolling() {
	c.StopPolling()

	if _, ok := c.toks.Token(); !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.pollMu.Lock()
	c.cancel = cancel
	c.pollMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.ticker)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, ok := c.toks.Token(); !ok {
					go c.StopPolling()
					return
				}
				if err := c.Load(ctx); err != nil {
					c.log.Debug("notification poll failed", "error", err)
				}
			}
		}
	}()
}

// StopPolling cancels the loop and waits for it to exit.
func (c *Center) StopPolling() {
	c.pollMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.pollMu.Unlock()
	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}

// Polling reports whether the loop is live.
func (c *Center) Polling() bool {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	return c.cancel != nil
}
