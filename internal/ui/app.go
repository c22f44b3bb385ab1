package ui

import (
	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/chat"
	"github.com/ovaskevich/campuschat/internal/notify"
	"github.com/ovaskevich/campuschat/internal/session"
)

// App bundles the shared services every view needs. Views keep no state
// of their own beyond presentation concerns; conversation and message
// state lives in the stores and is re-read on every change event.
type App struct {
	Client  *api.Client
	Store   *chat.Store
	Notify  *notify.Center
	Session *session.Store
	Poller  *chat.Poller
}

// StoreChangedMsg arrives whenever the messaging store mutates; the
// program forwards store events into the bubbletea loop.
type StoreChangedMsg struct {
	Event chat.Event
}

// NotifyChangedMsg arrives whenever the notification center mutates.
type NotifyChangedMsg struct{}
