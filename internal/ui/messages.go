package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/chat"
)

type messageSentMsg struct {
	err error
}

type olderLoadedMsg struct {
	err error
}

type typingSentMsg struct{}

type membersFetchedMsg struct {
	groupID int64
	members []api.User
}

type MessagesModel struct {
	app           *App
	viewport      viewport.Model
	textarea      textarea.Model
	composing     bool
	spinner       spinner.Model
	memberCount   int
	windowWidth   int
	windowHeight  int
	viewportReady bool
}

// NewMessagesModel creates the timeline view for the store's active
// conversation. The store was already pointed at it by Select; this model
// only renders snapshots and forwards input.
func NewMessagesModel(app *App) MessagesModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	vp := viewport.New(80, 20)
	vp.HighPerformanceRendering = false

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	return MessagesModel{
		app:           app,
		viewport:      vp,
		textarea:      ta,
		spinner:       s,
		windowWidth:   80,
		windowHeight:  30,
		viewportReady: true,
	}
}

func (m MessagesModel) withSize(w, h int) MessagesModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(MessagesModel)
}

func (m MessagesModel) Init() tea.Cmd {
	if sel := m.app.Store.ActiveGroup(); sel != nil {
		return tea.Batch(m.spinner.Tick, m.fetchMembersCmd(sel.ID))
	}
	return m.spinner.Tick
}

func (m MessagesModel) fetchMembersCmd(groupID int64) tea.Cmd {
	client := m.app.Client
	return func() tea.Msg {
		members, err := client.GroupMembers(context.Background(), groupID)
		if err != nil {
			return membersFetchedMsg{groupID: groupID}
		}
		return membersFetchedMsg{groupID: groupID, members: members}
	}
}

func (m MessagesModel) sendCmd(content string) tea.Cmd {
	store := m.app.Store
	return func() tea.Msg {
		var err error
		if store.ActiveGroup() != nil {
			err = store.SendGroupMessage(context.Background(), content)
		} else {
			err = store.SendMessage(context.Background(), content, 0)
		}
		return messageSentMsg{err: err}
	}
}

func (m MessagesModel) loadOlderCmd() tea.Cmd {
	store := m.app.Store
	return func() tea.Msg {
		return olderLoadedMsg{err: store.LoadOlder(context.Background())}
	}
}

func (m MessagesModel) typingCmd(isTyping bool) tea.Cmd {
	store := m.app.Store
	sel := store.ActiveDirect()
	if sel == nil {
		return nil
	}
	peerID := sel.ID
	return func() tea.Msg {
		store.SetTyping(context.Background(), peerID, isTyping)
		return typingSentMsg{}
	}
}

func (m MessagesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

		headerHeight := 6
		textareaHeight := 5
		helpHeight := 2
		availableHeight := msg.Height - headerHeight - helpHeight

		if m.composing {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = availableHeight - textareaHeight
			m.textarea.SetWidth(msg.Width - 4)
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = availableHeight
		}

		m.updateViewportContent()
		return m, nil

	case StoreChangedMsg:
		if msg.Event == chat.EventTimeline || msg.Event == chat.EventTyping || msg.Event == chat.EventNotice {
			atBottom := m.viewport.AtBottom()
			m.updateViewportContent()
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
		return m, nil

	case messageSentMsg:
		if msg.err == nil {
			m.textarea.Reset()
			m.composing = false
			m.textarea.Blur()
		}
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case olderLoadedMsg:
		m.updateViewportContent()
		return m, nil

	case typingSentMsg:
		return m, nil

	case membersFetchedMsg:
		if sel := m.app.Store.ActiveGroup(); sel != nil && sel.ID == msg.groupID {
			m.memberCount = len(msg.members)
		}
		return m, nil

	case spinner.TickMsg:
		timeline := m.app.Store.Timeline()
		if timeline.Loading || timeline.Sending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "esc" {
			if m.composing {
				m.composing = false
				m.textarea.Reset()
				m.textarea.Blur()
				return m, m.typingCmd(false)
			}
			m.app.Store.ClearSelection()
			next := NewConversationsModel(m.app)
			return next.withSize(m.windowWidth, m.windowHeight), next.Init()
		}

		timeline := m.app.Store.Timeline()

		if m.composing {
			switch msg.String() {
			case "ctrl+s":
				content := strings.TrimSpace(m.textarea.Value())
				if content != "" && !timeline.Sending {
					return m, tea.Batch(m.spinner.Tick, m.sendCmd(content))
				}
				return m, nil
			default:
				wasEmpty := strings.TrimSpace(m.textarea.Value()) == ""
				var cmd tea.Cmd
				m.textarea, cmd = m.textarea.Update(msg)
				// First keystrokes flip the typing indicator on
				// optimistically; the stop is sent on send or cancel.
				if wasEmpty && strings.TrimSpace(m.textarea.Value()) != "" {
					return m, tea.Batch(cmd, m.typingCmd(true))
				}
				return m, cmd
			}
		}

		if timeline.Loading || timeline.Sending {
			return m, nil
		}

		switch msg.String() {
		case "n", "c":
			m.composing = true
			m.textarea.Focus()
			return m, textarea.Blink

		case "o":
			if timeline.HasMore {
				return m, tea.Batch(m.spinner.Tick, m.loadOlderCmd())
			}
			return m, nil

		case "r":
			if sel := timeline.Active; sel != nil {
				store := m.app.Store
				target := *sel
				return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
					return olderLoadedMsg{err: store.Load(context.Background(), target, 1, false)}
				})
			}
			return m, nil

		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m *MessagesModel) updateViewportContent() {
	timeline := m.app.Store.Timeline()
	if !m.viewportReady || len(timeline.Messages) == 0 {
		m.viewport.SetContent("")
		return
	}

	me, _ := m.app.Session.Identity()

	var content strings.Builder
	wrapWidth := m.viewport.Width
	if wrapWidth <= 0 {
		wrapWidth = 80
	}

	if timeline.HasMore {
		content.WriteString(helpStyle.Render("… older messages available (press o)") + "\n\n")
	}

	now := time.Now()
	for gi, group := range chat.GroupByDay(timeline.Messages, time.Local) {
		if gi > 0 {
			content.WriteString("\n")
		}
		separator := fmt.Sprintf("── %s ──", chat.DayLabel(group.Date, now))
		content.WriteString(lipgloss.NewStyle().Align(lipgloss.Center).Width(wrapWidth).Render(daySeparatorStyle.Render(separator)) + "\n\n")

		for _, message := range group.Messages {
			m.renderMessage(&content, message, me.UserID, wrapWidth)
		}
	}

	m.viewport.SetContent(content.String())
}

func (m *MessagesModel) renderMessage(content *strings.Builder, message chat.Message, myID int64, wrapWidth int) {
	timestamp := message.SentAt.Format("3:04 PM")
	fromMe := message.Pending || (myID != 0 && message.Sender.ID == myID)

	if fromMe {
		header := fmt.Sprintf("You • %s", timestamp)
		if message.Pending {
			header += " • sending…"
		}
		rendered := messageHeaderStyle.Render(header)
		if message.Pending {
			rendered = pendingStyle.Render(header)
		}
		content.WriteString(lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth).Render(rendered) + "\n")

		wrapped := wordwrap.String(message.Content, wrapWidth-10)
		styled := messageFromMeStyle.Render(wrapped)
		if message.Pending {
			styled = pendingStyle.Render(wrapped)
		}
		content.WriteString(lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth).Render(styled) + "\n")
		return
	}

	sender := message.Sender.FullName
	if sender == "" {
		sender = "Unknown"
	}
	header := fmt.Sprintf("%s • %s", sender, timestamp)
	if message.CourseTitle != "" {
		header += fmt.Sprintf(" • %s", message.CourseTitle)
	}
	content.WriteString(messageHeaderStyle.Render(header) + "\n")
	content.WriteString(messageFromOtherStyle.Render(wordwrap.String(message.Content, wrapWidth-10)) + "\n")
}

func (m MessagesModel) View() string {
	timeline := m.app.Store.Timeline()

	name := "Messages"
	if timeline.Active != nil {
		name = timeline.Active.Name
		if timeline.Active.Type == api.ConversationGroup {
			name = "👥 " + name
			if m.memberCount > 0 {
				name += fmt.Sprintf(" (%d members)", m.memberCount)
			}
		}
	}

	if timeline.Loading && len(timeline.Messages) == 0 {
		return fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View())
	}

	s := titleStyle.Render(fmt.Sprintf("💬 %s", name)) + "\n\n"

	if timeline.Notice != "" {
		s += noticeStyle.Render(timeline.Notice) + "\n\n"
	}
	if directory := m.app.Store.Directory(); directory.LoadError != "" {
		s += errorStyle.Render(directory.LoadError) + "\n\n"
	}

	if timeline.Sending {
		s += fmt.Sprintf("  %s Sending message...\n", m.spinner.View())
	} else if len(timeline.Messages) == 0 && !timeline.Loading {
		s += normalStyle.Render("  No messages in this conversation.") + "\n"
	} else {
		s += m.viewport.View() + "\n"
	}

	if timeline.PeerTyping && timeline.Active != nil {
		s += typingStyle.Render(fmt.Sprintf("%s is typing…", timeline.Active.Name)) + "\n"
	}

	if m.composing {
		s += "\n" + inputStyle.Render("New Message:") + "\n"
		s += m.textarea.View() + "\n"
		s += helpStyle.Render("ctrl+s: send • esc: cancel")
	} else {
		scrollPercent := int(m.viewport.ScrollPercent() * 100)
		helpText := fmt.Sprintf("↑↓/jk: scroll • n: new message • o: older • r: refresh • esc: back • %d%%", scrollPercent)
		s += "\n" + helpStyle.Render(helpText)
	}

	return s
}
