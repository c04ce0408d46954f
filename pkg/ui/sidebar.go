package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

// sidebar lists stored sessions, most recent first.
type sidebar struct {
	items   []chatstore.Summary
	cursor  int
	current string
}

func (s *sidebar) setItems(items []chatstore.Summary) {
	s.items = items
	if s.cursor >= len(items) {
		s.cursor = len(items) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *sidebar) up() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *sidebar) down() {
	if s.cursor < len(s.items)-1 {
		s.cursor++
	}
}

func (s sidebar) selected() (chatstore.Summary, bool) {
	if len(s.items) == 0 {
		return chatstore.Summary{}, false
	}
	return s.items[s.cursor], true
}

func (s sidebar) view(st styles, focused bool, height int) string {
	var b strings.Builder
	b.WriteString(st.SidebarTitle.Render("Recent chats"))
	b.WriteString("\n")
	if len(s.items) == 0 {
		b.WriteString(st.Empty.Render("No recent chats"))
	}
	for i, it := range s.items {
		title := truncate(it.Title, sidebarWidth-3)
		style := st.Item
		switch {
		case focused && i == s.cursor:
			style = st.ItemSelected
		case it.ID == s.current:
			style = st.ItemCurrent
		}
		b.WriteString(style.Render(title))
		b.WriteString("\n")
	}
	box := st.Sidebar
	if focused {
		box = st.SidebarFocused
	}
	return box.Height(height).MaxHeight(height).Render(b.String())
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)+"…") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
