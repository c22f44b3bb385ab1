package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ovaskevich/campuschat/internal/api"
)

type notificationItem struct {
	notification api.Notification
}

func (i notificationItem) Title() string {
	title := i.notification.Title
	if title == "" {
		title = i.notification.Type
	}
	if !i.notification.IsRead {
		title = "● " + title
	}
	return title
}

func (i notificationItem) Description() string {
	text := i.notification.MessageText
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	return fmt.Sprintf("%s • %s", formatTimeAgo(i.notification.CreatedAt), text)
}

func (i notificationItem) FilterValue() string {
	return i.notification.Title
}

type notificationsLoadedMsg struct {
	err error
}

type notificationMarkedMsg struct {
	err error
}

type NotificationsModel struct {
	app          *App
	list         list.Model
	loading      bool
	spinner      spinner.Model
	windowWidth  int
	windowHeight int
}

// NewNotificationsModel creates the notification view over the center's
// snapshots.
func NewNotificationsModel(app *App) NotificationsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New(nil, delegate, 80, 20)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	m := NotificationsModel{
		app:          app,
		list:         l,
		loading:      len(app.Notify.State().Notifications) == 0,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
	m.refreshItems()
	return m
}

func (m NotificationsModel) withSize(w, h int) NotificationsModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(NotificationsModel)
}

func (m NotificationsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m NotificationsModel) loadCmd() tea.Cmd {
	center := m.app.Notify
	return func() tea.Msg {
		return notificationsLoadedMsg{err: center.Load(context.Background())}
	}
}

func (m *NotificationsModel) refreshItems() {
	state := m.app.Notify.State()
	items := make([]list.Item, len(state.Notifications))
	for i, n := range state.Notifications {
		items[i] = notificationItem{notification: n}
	}
	m.list.SetItems(items)
	title := "Notifications"
	if state.Unread > 0 {
		title = fmt.Sprintf("Notifications (%d unread)", state.Unread)
	}
	m.list.Title = title
}

func (m NotificationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case notificationsLoadedMsg, notificationMarkedMsg:
		m.loading = false
		m.refreshItems()
		return m, nil

	case NotifyChangedMsg:
		m.loading = false
		m.refreshItems()
		return m, nil

	case StoreChangedMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "esc" {
			menu := NewMenuModel(m.app)
			return menu, menu.Init()
		}

		if msg.String() == "r" && !m.loading {
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		}

		if msg.String() == "enter" && !m.loading {
			if item, ok := m.list.SelectedItem().(notificationItem); ok && !item.notification.IsRead {
				center := m.app.Notify
				id := item.notification.ID
				return m, func() tea.Msg {
					return notificationMarkedMsg{err: center.MarkRead(context.Background(), id)}
				}
			}
			return m, nil
		}

		if msg.String() == "a" && !m.loading {
			center := m.app.Notify
			return m, func() tea.Msg {
				return notificationMarkedMsg{err: center.MarkAllRead(context.Background())}
			}
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m NotificationsModel) View() string {
	state := m.app.Notify.State()

	if m.loading && len(state.Notifications) == 0 {
		return fmt.Sprintf("\n  %s Loading notifications...\n", m.spinner.View())
	}

	if len(state.Notifications) == 0 {
		s := titleStyle.Render("Notifications") + "\n\n"
		s += normalStyle.Render("  Nothing here yet.") + "\n"
		s += "\n" + helpStyle.Render("r: refresh • esc: back • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	if state.LoadError != "" {
		s += errorStyle.Render(state.LoadError) + "\n"
	}
	s += helpStyle.Render("↑↓/jk: navigate • enter: mark read • a: mark all read • r: refresh • esc: back • q: quit")
	return s
}
