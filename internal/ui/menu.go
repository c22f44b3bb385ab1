package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type menuItem struct {
	title string
	desc  string
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

type MenuModel struct {
	app          *App
	list         list.Model
	windowWidth  int
	windowHeight int
}

// NewMenuModel creates the main menu.
func NewMenuModel(app *App) MenuModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New(nil, delegate, 80, 14)
	l.Title = "Campuschat"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	m := MenuModel{
		app:          app,
		list:         l,
		windowWidth:  80,
		windowHeight: 30,
	}
	m.refreshItems()
	return m
}

func (m *MenuModel) refreshItems() {
	directory := m.app.Store.Directory()
	notifications := m.app.Notify.State()

	messagesDesc := "Direct and group conversations"
	if directory.TotalUnread > 0 {
		messagesDesc = fmt.Sprintf("Direct and group conversations • %d unread", directory.TotalUnread)
	}
	notifyDesc := "Course and system notifications"
	if notifications.Unread > 0 {
		notifyDesc = fmt.Sprintf("Course and system notifications • %d unread", notifications.Unread)
	}

	m.list.SetItems([]list.Item{
		menuItem{title: "💬 Messages", desc: messagesDesc},
		menuItem{title: "👥 Contacts", desc: "Start a new conversation"},
		menuItem{title: "🔔 Notifications", desc: notifyDesc},
	})
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case StoreChangedMsg, NotifyChangedMsg:
		m.refreshItems()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

		if msg.String() == "enter" {
			selectedItem, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}

			switch selectedItem.title {
			case "💬 Messages":
				next := NewConversationsModel(m.app)
				return next.withSize(m.windowWidth, m.windowHeight), next.Init()
			case "👥 Contacts":
				next := NewContactsModel(m.app)
				return next.withSize(m.windowWidth, m.windowHeight), next.Init()
			case "🔔 Notifications":
				next := NewNotificationsModel(m.app)
				return next.withSize(m.windowWidth, m.windowHeight), next.Init()
			}
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m MenuModel) View() string {
	s := m.list.View() + "\n"
	if directory := m.app.Store.Directory(); directory.AuthError {
		s += errorStyle.Render("Session expired. Run `campuschat login` and restart.") + "\n"
	}
	s += helpStyle.Render("↑↓/jk: navigate • enter: select • q: quit")
	return s
}
