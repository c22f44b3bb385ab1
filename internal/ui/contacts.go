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

type contactItem struct {
	user api.User
}

func (i contactItem) Title() string {
	return i.user.FullName
}

func (i contactItem) Description() string {
	if i.user.Role != "" {
		return i.user.Role
	}
	return i.user.Email
}

func (i contactItem) FilterValue() string {
	return i.user.FullName
}

type contactsFetchedMsg struct {
	contacts []api.User
	err      error
}

type ContactsModel struct {
	app          *App
	contacts     []api.User
	list         list.Model
	loading      bool
	err          error
	spinner      spinner.Model
	windowWidth  int
	windowHeight int
}

// NewContactsModel lists the users the backend allows a new direct
// conversation with (teachers of enrolled courses, or enrolled students).
func NewContactsModel(app *App) ContactsModel {
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
	l.Title = "Contacts"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return ContactsModel{
		app:          app,
		list:         l,
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m ContactsModel) withSize(w, h int) ContactsModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(ContactsModel)
}

func (m ContactsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchContactsCmd())
}

func (m ContactsModel) fetchContactsCmd() tea.Cmd {
	client := m.app.Client
	return func() tea.Msg {
		contacts, err := client.Contacts(context.Background())
		return contactsFetchedMsg{contacts: contacts, err: err}
	}
}

func (m ContactsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case contactsFetchedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.contacts = msg.contacts
		items := make([]list.Item, len(m.contacts))
		for i, user := range m.contacts {
			items[i] = contactItem{user: user}
		}
		m.list.SetItems(items)
		m.list.Title = fmt.Sprintf("Contacts - %d available", len(m.contacts))
		return m, nil

	case StoreChangedMsg, NotifyChangedMsg:
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
			return m, tea.Batch(m.spinner.Tick, m.fetchContactsCmd())
		}

		if msg.String() == "enter" && len(m.contacts) > 0 && !m.loading {
			if item, ok := m.list.SelectedItem().(contactItem); ok {
				m.app.Store.Select(api.Conversation{
					ID:   item.user.ID,
					Type: api.ConversationDirect,
					Name: item.user.FullName,
				})
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

func (m ContactsModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading contacts...\n", m.spinner.View())
	}

	if m.err != nil {
		s := titleStyle.Render("Contacts") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back • q: quit")
		return s
	}

	if len(m.contacts) == 0 {
		s := titleStyle.Render("Contacts") + "\n\n"
		s += normalStyle.Render("  No one to message yet. Enroll in a course first.") + "\n"
		s += "\n" + helpStyle.Render("r: refresh • esc: back • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: message • /: search • r: refresh • esc: back • q: quit")
	return s
}
