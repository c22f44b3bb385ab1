package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/chat"
)

type conversationItem struct {
	conv api.Conversation
}

func (i conversationItem) Title() string {
	title := i.conv.Name
	if i.conv.Type == api.ConversationGroup {
		title = "👥 " + title
	}
	if i.conv.UnreadCount > 0 {
		title += " " + unreadBadgeStyle.Render(fmt.Sprintf("%d", i.conv.UnreadCount))
	}
	return title
}

func (i conversationItem) Description() string {
	timeAgo := formatTimeAgo(i.conv.LastTime)
	preview := i.conv.LastPreview
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	if preview == "" {
		return timeAgo
	}
	return fmt.Sprintf("%s • %s", timeAgo, preview)
}

func (i conversationItem) FilterValue() string {
	return i.conv.Name
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "no messages"
	}

	now := time.Now()
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	}
	if duration < 2*time.Minute {
		return "1 min ago"
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	}
	if duration < 2*time.Hour {
		return "1h ago"
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	if duration < 48*time.Hour {
		return "yesterday"
	}
	if duration < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("Jan 2")
}

type ConversationsModel struct {
	app          *App
	list         list.Model
	loading      bool
	spinner      spinner.Model
	windowWidth  int
	windowHeight int
}

type directoryRefreshedMsg struct {
	err error
}

// NewConversationsModel creates the directory view. The list renders from
// store snapshots; poll failures leave the last good snapshot in place so
// the view never flashes empty.
func NewConversationsModel(app *App) ConversationsModel {
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
	l.Title = "Messages"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	m := ConversationsModel{
		app:          app,
		list:         l,
		loading:      len(app.Store.Directory().Conversations) == 0,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
	m.refreshItems()
	return m
}

func (m ConversationsModel) withSize(w, h int) ConversationsModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(ConversationsModel)
}

func (m ConversationsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refreshDirectoryCmd())
}

func (m ConversationsModel) refreshDirectoryCmd() tea.Cmd {
	return func() tea.Msg {
		return directoryRefreshedMsg{err: m.app.Store.RefreshDirectory(context.Background())}
	}
}

func (m *ConversationsModel) refreshItems() {
	directory := m.app.Store.Directory()
	items := make([]list.Item, len(directory.Conversations))
	for i, conv := range directory.Conversations {
		items[i] = conversationItem{conv: conv}
	}
	m.list.SetItems(items)
	title := fmt.Sprintf("Messages - %d conversations", len(directory.Conversations))
	if directory.TotalUnread > 0 {
		title += fmt.Sprintf(" (%d unread)", directory.TotalUnread)
	}
	m.list.Title = title
}

func (m ConversationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case directoryRefreshedMsg:
		m.loading = false
		m.refreshItems()
		return m, nil

	case StoreChangedMsg:
		if msg.Event == chat.EventDirectory {
			m.loading = false
			m.refreshItems()
		}
		return m, nil

	case NotifyChangedMsg:
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
			return m, tea.Batch(m.spinner.Tick, m.refreshDirectoryCmd())
		}

		if msg.String() == "enter" && !m.loading {
			if item, ok := m.list.SelectedItem().(conversationItem); ok {
				m.app.Store.Select(item.conv)
				next := NewMessagesModel(m.app)
				return next.withSize(m.windowWidth, m.windowHeight), next.Init()
			}
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ConversationsModel) View() string {
	directory := m.app.Store.Directory()

	if m.loading && len(directory.Conversations) == 0 {
		return fmt.Sprintf("\n  %s Loading conversations...\n", m.spinner.View())
	}

	if directory.AuthError && len(directory.Conversations) == 0 {
		s := titleStyle.Render("Messages") + "\n\n"
		s += errorStyle.Render("Session expired. Run `campuschat login` and restart.") + "\n\n"
		s += helpStyle.Render("esc: back • q: quit")
		return s
	}

	if len(directory.Conversations) == 0 {
		s := titleStyle.Render("Messages") + "\n\n"
		s += normalStyle.Render("  No conversations yet.") + "\n"
		s += "\n" + helpStyle.Render("r: refresh • esc: back • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	if directory.LoadError != "" {
		s += errorStyle.Render(directory.LoadError) + "\n"
	}
	s += helpStyle.Render("↑↓/jk: navigate • enter: open • /: search • r: refresh • esc: back • q: quit")
	return s
}
