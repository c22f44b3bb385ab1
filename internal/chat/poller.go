package chat

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Poller owns the recurring refresh loops for the messaging subsystem:
// a fixed-interval main loop (directory plus silent page-1 poll of the
// active timeline) and a typing loop whose interval is drawn from a band
// each tick so that many open clients never synchronize.
//
// Start is idempotent: a running poller is stopped first, so at most one
// live loop of each kind exists at any time. Every tick re-checks the
// credential and the poller shuts itself down when it disappears.
type Poller struct {
	store *Store
	log   *slog.Logger

	mainInterval time.Duration
	typingMin    time.Duration
	typingMax    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PollerOptions tunes the loop intervals; zero values fall back to the
// defaults matching the backend's staleness windows.
type PollerOptions struct {
	MainInterval time.Duration
	TypingMin    time.Duration
	TypingMax    time.Duration
	Logger       *slog.Logger
}

// NewPoller builds a poller over a store.
func NewPoller(store *Store, opts PollerOptions) *Poller {
	if opts.MainInterval <= 0 {
		opts.MainInterval = 4 * time.Second
	}
	if opts.TypingMin <= 0 {
		opts.TypingMin = 6 * time.Second
	}
	if opts.TypingMax <= opts.TypingMin {
		opts.TypingMax = opts.TypingMin + 2*time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		store:        store,
		log:          opts.Logger,
		mainInterval: opts.MainInterval,
		typingMin:    opts.TypingMin,
		typingMax:    opts.TypingMax,
	}
}

// Start launches the loops. Calling it while running restarts cleanly
// rather than stacking a second set of timers. It is a no-op when no
// credential is present: polling never runs unauthenticated.
func (p *Poller) Start() {
	p.Stop()

	if _, ok := p.store.sess.Token(); !ok {
		p.log.Debug("polling not started: no credential")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(2)
	go p.mainLoop(ctx)
	go p.typingLoop(ctx)
}

// Stop cancels the loops and waits for them to exit. Safe to call at any
// time, including when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// Running reports whether the loops are live.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// mainLoop refreshes the directory every tick and, when a conversation is
// selected, silently merges page 1 of its timeline. Tick work runs inline
// in the loop goroutine, which is what makes each loop single-flight: a
// slow refresh delays the next tick instead of overlapping it.
func (p *Poller) mainLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.mainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.authorized() {
				return
			}
			if err := p.store.RefreshDirectory(ctx); err != nil {
				p.log.Debug("poll: directory refresh failed", "error", err)
			}
			p.store.mu.Lock()
			var target *Selection
			if p.store.active != nil {
				sel := *p.store.active
				target = &sel
			}
			p.store.mu.Unlock()
			if target != nil {
				if err := p.store.Load(ctx, *target, 1, false); err != nil {
					p.log.Debug("poll: timeline merge failed", "error", err)
				}
			}
		}
	}
}

// typingLoop polls typing state for the active direct peer, sleeping a
// random duration inside the configured band between polls.
func (p *Poller) typingLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		delay := p.typingMin + time.Duration(rand.Int63n(int64(p.typingMax-p.typingMin)))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if !p.authorized() {
				return
			}
			p.store.PollTyping(ctx)
		}
	}
}

// authorized re-checks the credential; on loss it tears down every loop
// the poller owns rather than waiting for a caller to notice.
func (p *Poller) authorized() bool {
	if _, ok := p.store.sess.Token(); ok {
		return true
	}
	p.log.Info("credential gone, stopping polling")
	go p.Stop()
	return false
}
