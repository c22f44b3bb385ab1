package chat

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ovaskevich/campuschat/internal/api"
)

// Event identifies which slice of store state changed. Subscribers use it
// to avoid re-rendering unrelated views.
type Event int

const (
	EventDirectory Event = iota
	EventTimeline
	EventTyping
	EventNotice
)

// Selection identifies the active conversation. The store holds at most
// one Selection at a time: selecting a direct peer clears any active group
// and vice versa.
type Selection struct {
	Type api.ConversationType
	ID   int64
	Name string
}

// Message is a timeline entry. Pending entries are optimistic sends that
// the server has not yet confirmed; they carry a synthetic negative ID
// (never issued by the server) plus a local tag used to replace them in
// place when the confirmation arrives.
type Message struct {
	api.Message
	Pending    bool
	pendingTag string
}

// Store is the single in-memory state container for the messaging
// subsystem: conversation directory, active timeline, typing map, and the
// error flags the views render. All mutation happens behind its mutex;
// change notification goes through the registered subscriber.
type Store struct {
	mu   sync.Mutex
	api  API
	sess Session
	log  *slog.Logger

	now func() time.Time

	onEvent func(Event)

	// Directory.
	conversations []api.Conversation
	totalUnread   int
	authErr       bool
	loadErr       string

	// Active timeline.
	active   *Selection
	messages []Message
	page     int
	hasMore  bool
	loading  bool
	sending  bool

	// Typing, keyed by peer user id.
	typing map[int64]bool

	// Transient permission notice, auto-expiring.
	notice       string
	noticeExpiry time.Time

	// Debounced directory refresh.
	dirRefreshArmed   bool
	directoryDebounce time.Duration

	noticeTTL  time.Duration
	pendingSeq int64
}

// Options tunes store behavior; zero values fall back to defaults.
type Options struct {
	DirectoryDebounce time.Duration
	NoticeTTL         time.Duration
	Now               func() time.Time
	Logger            *slog.Logger
}

// NewStore wires a store against the backend client and session source.
func NewStore(backend API, sess Session, opts Options) *Store {
	if opts.DirectoryDebounce <= 0 {
		opts.DirectoryDebounce = 2 * time.Second
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		api:               backend,
		sess:              sess,
		log:               opts.Logger,
		now:               opts.Now,
		typing:            make(map[int64]bool),
		directoryDebounce: opts.DirectoryDebounce,
		noticeTTL:         opts.NoticeTTL,
	}
}

// Subscribe registers the single change listener. The listener is invoked
// outside the store lock and may re-enter the store.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.onEvent = fn
	s.mu.Unlock()
}

func (s *Store) emit(e Event) {
	s.mu.Lock()
	fn := s.onEvent
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

// DirectorySnapshot is a copy of directory state safe to render from.
type DirectorySnapshot struct {
	Conversations []api.Conversation
	TotalUnread   int
	AuthError     bool
	LoadError     string
}

// Directory returns the current directory snapshot.
func (s *Store) Directory() DirectorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := DirectorySnapshot{
		Conversations: make([]api.Conversation, len(s.conversations)),
		TotalUnread:   s.totalUnread,
		AuthError:     s.authErr,
		LoadError:     s.loadErr,
	}
	copy(snap.Conversations, s.conversations)
	return snap
}

// TimelineSnapshot is a copy of the active conversation's state.
type TimelineSnapshot struct {
	Active     *Selection
	Messages   []Message
	Page       int
	HasMore    bool
	Loading    bool
	Sending    bool
	Notice     string
	PeerTyping bool
}

// Timeline returns the current timeline snapshot. The transient notice is
// omitted once expired.
func (s *Store) Timeline() TimelineSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := TimelineSnapshot{
		Messages: make([]Message, len(s.messages)),
		Page:     s.page,
		HasMore:  s.hasMore,
		Loading:  s.loading,
		Sending:  s.sending,
	}
	copy(snap.Messages, s.messages)
	if s.active != nil {
		sel := *s.active
		snap.Active = &sel
		if sel.Type == api.ConversationDirect {
			snap.PeerTyping = s.typing[sel.ID]
		}
	}
	if s.notice != "" && s.now().Before(s.noticeExpiry) {
		snap.Notice = s.notice
	}
	return snap
}

// ActiveDirect returns the active direct peer selection, or nil.
func (s *Store) ActiveDirect() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.Type == api.ConversationDirect {
		sel := *s.active
		return &sel
	}
	return nil
}

// ActiveGroup returns the active group selection, or nil.
func (s *Store) ActiveGroup() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.Type == api.ConversationGroup {
		sel := *s.active
		return &sel
	}
	return nil
}

func (s *Store) setNotice(text string) {
	s.mu.Lock()
	s.notice = text
	s.noticeExpiry = s.now().Add(s.noticeTTL)
	ttl := s.noticeTTL
	s.mu.Unlock()
	s.emit(EventNotice)
	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		expired := s.notice == text && !s.now().Before(s.noticeExpiry)
		if expired {
			s.notice = ""
		}
		s.mu.Unlock()
		if expired {
			s.emit(EventNotice)
		}
	})
}
