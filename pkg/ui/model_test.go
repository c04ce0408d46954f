package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chefbot/pkg/generation"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

type fakeController struct {
	sessions  []chatstore.Summary
	current   string
	cancelled int
	opened    []string
	deleted   []string
	newChats  int
	busy      bool
}

func (f *fakeController) Submit(context.Context, string) (generation.Result, error) {
	return generation.Result{Outcome: generation.OutcomeFinished}, nil
}

func (f *fakeController) Cancel() bool {
	f.cancelled++
	return f.busy
}

func (f *fakeController) NewChat() error {
	if f.busy {
		return generation.ErrBusy
	}
	f.newChats++
	f.current = ""
	return nil
}

func (f *fakeController) Open(id string) (chatstore.Session, error) {
	f.opened = append(f.opened, id)
	f.current = id
	return chatstore.Session{ID: id}, nil
}

func (f *fakeController) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeController) Sessions() []chatstore.Summary { return f.sessions }
func (f *fakeController) CurrentSessionID() string      { return f.current }

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func newTestModel(ctrl *fakeController) Model {
	return NewModel(context.Background(), ctrl, Options{CopyFunc: func(string) error { return nil }})
}

func TestModel_GreetingInNewChat(t *testing.T) {
	m := newTestModel(&fakeController{})
	require.Contains(t, m.renderTranscript(), "What would you like to cook today?")
}

func TestModel_LifecycleEvents(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	m = update(t, m, generation.Event{Type: generation.EventUserMessage, SessionID: "chat_1", Text: "Crispy tofu?"})
	m = update(t, m, generation.Event{Type: generation.EventInput, Enabled: false})
	require.True(t, m.busy)
	require.Equal(t, "", m.input.Value())

	m = update(t, m, generation.Event{Type: generation.EventWorking, Working: true})
	require.True(t, m.working)
	m = update(t, m, generation.Event{Type: generation.EventWorking, Working: false})
	m = update(t, m, generation.Event{Type: generation.EventAssistantStart, SessionID: "chat_1"})
	m = update(t, m, generation.Event{Type: generation.EventReveal, Index: 0, Text: "P"})
	m = update(t, m, generation.Event{Type: generation.EventReveal, Index: 1, Text: "Pr"})
	require.Len(t, m.turns, 2)
	require.Equal(t, "Pr", m.turns[1].content)
	require.True(t, m.turns[1].live)

	m = update(t, m, generation.Event{Type: generation.EventCycleDone, Outcome: generation.OutcomeStopped, Text: "Pr"})
	m = update(t, m, generation.Event{Type: generation.EventInput, Enabled: true})
	require.False(t, m.busy)
	require.False(t, m.turns[1].live)
	require.Contains(t, m.renderTranscript(), "Crispy tofu?")
}

func TestModel_SessionOpenedReplacesTranscript(t *testing.T) {
	m := newTestModel(&fakeController{})
	m = update(t, m, generation.Event{Type: generation.EventUserMessage, Text: "old"})
	m = update(t, m, generation.Event{
		Type:      generation.EventSessionOpened,
		SessionID: "chat_2",
		Messages: []chatstore.Message{
			{Role: chatstore.RoleUser, Content: "Risotto?"},
			{Role: chatstore.RoleAssistant, Content: "Stir often."},
		},
	})
	require.Len(t, m.turns, 2)
	require.Equal(t, "chat_2", m.sidebar.current)

	m = update(t, m, generation.Event{Type: generation.EventNewChat})
	require.Empty(t, m.turns)
}

func TestModel_StopKeyCancelsOnlyWhenBusy(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, 0, ctrl.cancelled)

	m = update(t, m, generation.Event{Type: generation.EventInput, Enabled: false})
	ctrl.busy = true
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, 1, ctrl.cancelled)
	require.Equal(t, "Stopping...", m.status)
}

func TestModel_SidebarOpenAndDeleteConfirm(t *testing.T) {
	ctrl := &fakeController{sessions: []chatstore.Summary{
		{ID: "chat_b", Title: "B"},
		{ID: "chat_a", Title: "A"},
	}}
	m := newTestModel(ctrl)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusSidebar, m.focus)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"chat_a"}, ctrl.opened)
	require.Equal(t, focusInput, m.focus)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, m.confirm)
	require.Equal(t, "chat_a", m.pendingDelete)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Nil(t, m.confirm)
	require.Empty(t, ctrl.deleted)
}

func TestModel_NewChatWhileBusyShowsStatus(t *testing.T) {
	ctrl := &fakeController{busy: true}
	m := newTestModel(ctrl)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.NotEmpty(t, m.status)
	require.Equal(t, 0, ctrl.newChats)
}

func TestModel_CopyLastAnswer(t *testing.T) {
	var copied string
	m := NewModel(context.Background(), &fakeController{}, Options{CopyFunc: func(s string) error {
		copied = s
		return nil
	}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "Nothing to copy yet", m.status)

	m = update(t, m, generation.Event{Type: generation.EventSessionOpened, Messages: []chatstore.Message{
		{Role: chatstore.RoleUser, Content: "q"},
		{Role: chatstore.RoleAssistant, Content: "Use a hot pan."},
	}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "Use a hot pan.", copied)
	require.Equal(t, "Copied last answer", m.status)
}

func TestModel_ViewRenders(t *testing.T) {
	m := newTestModel(&fakeController{sessions: []chatstore.Summary{{ID: "chat_1", Title: "A very long title that will not fit in the sidebar"}}})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	require.Contains(t, view, "Recent chats")
	require.Contains(t, view, "ChefBot")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
