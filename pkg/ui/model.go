package ui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chefbot/pkg/generation"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

// Controller is the part of generation.Controller the chat surfaces use.
type Controller interface {
	Submit(ctx context.Context, text string) (generation.Result, error)
	Cancel() bool
	NewChat() error
	Open(id string) (chatstore.Session, error)
	Delete(ctx context.Context, id string) error
	Sessions() []chatstore.Summary
	CurrentSessionID() string
}

var _ Controller = &generation.Controller{}

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const inputHeight = 3

type turn struct {
	role    chatstore.Role
	content string
	live    bool
}

// cycleDoneMsg is returned by the command running Submit.
type cycleDoneMsg struct {
	result generation.Result
	err    error
}

type Options struct {
	// Markdown renders finished replies through glamour.
	Markdown bool
	// CopyFunc replaces the system clipboard, mostly for tests.
	CopyFunc func(string) error
}

type Model struct {
	ctx  context.Context
	ctrl Controller

	keys     keyMap
	styles   styles
	help     help.Model
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	sidebar  sidebar

	confirm       *huh.Form
	confirmed     *bool
	pendingDelete string

	turns    []turn
	working  bool
	busy     bool
	focus    focusArea
	status   string
	width    int
	height   int
	markdown bool
	renderer *glamour.TermRenderer
	copy     func(string) error
}

func NewModel(ctx context.Context, ctrl Controller, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask ChefBot about cooking..."
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	copyFn := opts.CopyFunc
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		keys:     defaultKeyMap(),
		styles:   defaultStyles(),
		help:     help.New(),
		input:    ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		markdown: opts.Markdown,
		copy:     copyFn,
	}
	m.sidebar.setItems(ctrl.Sessions())
	m.sidebar.current = ctrl.CurrentSessionID()
	m.refreshViewport()
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case generation.Event:
		return m.handleEvent(msg)
	case cycleDoneMsg:
		return m.handleCycleDone(msg)
	case spinner.TickMsg:
		if !m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}

	if m.confirm != nil {
		return m.updateConfirm(msg)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Stop):
		if m.busy && m.ctrl.Cancel() {
			m.status = "Stopping..."
		}
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		if err := m.ctrl.NewChat(); err != nil {
			m.status = "Stop the current reply before starting a new chat"
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		m.copyLastAnswer()
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		if !m.busy {
			return m, m.input.Focus()
		}
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		text := m.input.Value()
		if m.busy || strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.busy = true
		m.status = ""
		return m, m.submit(text)
	}
	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.up()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.down()
	case key.Matches(msg, m.keys.Open):
		sel, ok := m.sidebar.selected()
		if !ok {
			return m, nil
		}
		if _, err := m.ctrl.Open(sel.ID); err != nil {
			m.status = openErrorText(err)
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Delete):
		sel, ok := m.sidebar.selected()
		if !ok {
			return m, nil
		}
		m.pendingDelete = sel.ID
		m.confirmed = new(bool)
		m.confirm = newDeleteForm(m.confirmed)
		return m, m.confirm.Init()
	}
	return m, nil
}

func openErrorText(err error) string {
	if errors.Is(err, generation.ErrBusy) {
		return "Stop the current reply before switching chats"
	}
	return "Could not open chat"
}

func newDeleteForm(confirmed *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete conversation?").
				Description("This action cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(confirmed),
		),
	).WithShowHelp(false)
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, m.keys.Stop) {
		m.confirm = nil
		m.pendingDelete = ""
		return m, nil
	}
	fm, cmd := m.confirm.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.confirm = f
	}
	switch m.confirm.State {
	case huh.StateCompleted:
		if *m.confirmed {
			if err := m.ctrl.Delete(m.ctx, m.pendingDelete); err != nil {
				m.status = "Stop the current reply before deleting this chat"
			}
		}
		m.confirm = nil
		m.pendingDelete = ""
		return m, nil
	case huh.StateAborted:
		m.confirm = nil
		m.pendingDelete = ""
		return m, nil
	}
	return m, cmd
}

func (m Model) submit(text string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Submit(ctx, text)
		return cycleDoneMsg{result: res, err: err}
	}
}

func (m Model) handleCycleDone(msg cycleDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.working = false
	if msg.err != nil {
		if !errors.Is(msg.err, generation.ErrEmptyPrompt) {
			m.status = msg.err.Error()
		}
	} else if msg.result.Outcome == generation.OutcomeStopped {
		m.status = "Generation stopped"
	}
	if m.focus == focusInput {
		return m, m.input.Focus()
	}
	return m, nil
}

func (m Model) handleEvent(ev generation.Event) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch ev.Type {
	case generation.EventSessions:
		m.sidebar.setItems(ev.Sessions)
		m.sidebar.current = m.ctrl.CurrentSessionID()
	case generation.EventNewChat:
		m.turns = nil
		m.sidebar.current = ""
		m.status = ""
	case generation.EventSessionOpened:
		m.turns = nil
		for _, msg := range ev.Messages {
			m.turns = append(m.turns, turn{role: msg.Role, content: msg.Content})
		}
		m.sidebar.current = ev.SessionID
		m.status = ""
	case generation.EventUserMessage:
		m.turns = append(m.turns, turn{role: chatstore.RoleUser, content: ev.Text})
		m.sidebar.current = ev.SessionID
	case generation.EventInput:
		if ev.Enabled {
			m.busy = false
			if m.focus == focusInput {
				cmd = m.input.Focus()
			}
		} else {
			m.busy = true
			m.input.Reset()
			m.input.Blur()
		}
	case generation.EventWorking:
		m.working = ev.Working
		if ev.Working {
			cmd = m.spinner.Tick
		}
	case generation.EventAssistantStart:
		m.turns = append(m.turns, turn{role: chatstore.RoleAssistant, content: ev.Text, live: true})
	case generation.EventReveal:
		if t := m.lastAssistant(); t != nil {
			t.content = ev.Text
		}
	case generation.EventCycleDone:
		if t := m.lastAssistant(); t != nil {
			t.content = ev.Text
			t.live = false
		}
	}
	m.refreshViewport()
	return m, cmd
}

func (m *Model) lastAssistant() *turn {
	if len(m.turns) == 0 {
		return nil
	}
	t := &m.turns[len(m.turns)-1]
	if t.role != chatstore.RoleAssistant {
		return nil
	}
	return t
}

func (m *Model) copyLastAnswer() {
	for i := len(m.turns) - 1; i >= 0; i-- {
		t := m.turns[i]
		if t.role != chatstore.RoleAssistant || t.live {
			continue
		}
		if err := m.copy(t.content); err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("clipboard write failed")
			m.status = "Could not copy to clipboard"
			return
		}
		m.status = "Copied last answer"
		return
	}
	m.status = "Nothing to copy yet"
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	chatWidth := m.chatWidth()
	m.input.SetWidth(chatWidth)
	m.viewport.Width = chatWidth
	m.viewport.Height = max(height-inputHeight-3, 3)
	m.help.Width = chatWidth
	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(chatWidth-4, 20)),
		)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("markdown renderer unavailable")
		} else {
			m.renderer = r
		}
	}
	m.refreshViewport()
}

func (m Model) chatWidth() int {
	if m.width == 0 {
		return 80
	}
	return max(m.width-sidebarWidth-3, 20)
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	body := m.styles.Body.Width(max(m.chatWidth()-2, 10))
	if len(m.turns) == 0 {
		return m.styles.BotLabel.Render("ChefBot") + "\n" + body.Render(Greeting)
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if t.role == chatstore.RoleUser {
			b.WriteString(m.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(body.Render(t.content))
			continue
		}
		b.WriteString(m.styles.BotLabel.Render("ChefBot"))
		b.WriteString("\n")
		if !t.live && m.renderer != nil {
			if out, err := m.renderer.Render(t.content); err == nil {
				b.WriteString(strings.TrimRight(out, "\n"))
				continue
			}
		}
		b.WriteString(body.Render(t.content))
	}
	return b.String()
}

func (m Model) View() string {
	left := m.sidebar.view(m.styles, m.focus == focusSidebar, max(m.viewport.Height+inputHeight+2, 5))

	var status string
	switch {
	case m.working:
		status = m.spinner.View() + " ChefBot is thinking..."
	case m.status != "":
		status = m.status
	}
	bindings := m.keys.chatHelp()
	if m.focus == focusSidebar {
		bindings = m.keys.sidebarHelp()
	}
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.styles.Status.Render(status),
		m.input.View(),
		m.styles.Help.Render(m.help.ShortHelpView(bindings)),
	)
	view := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)

	if m.confirm != nil && m.width > 0 && m.height > 0 {
		dialog := m.styles.Dialog.Render(m.confirm.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	}
	if m.confirm != nil {
		return view + "\n\n" + m.styles.Dialog.Render(m.confirm.View())
	}
	return view
}
