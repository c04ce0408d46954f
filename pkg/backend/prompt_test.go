package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_NoHistory(t *testing.T) {
	p := BuildPrompt(nil, "How do I poach an egg?")
	require.True(t, strings.HasPrefix(p, SystemPrompt+"\n\n"))
	require.NotContains(t, p, "Previous conversation:")
	require.True(t, strings.HasSuffix(p, "User: How do I poach an egg?\n\nChefBot:"))
}

func TestBuildPrompt_WithHistory(t *testing.T) {
	p := BuildPrompt([]Turn{{Role: "User", Content: "hi"}, {Role: "ChefBot", Content: "Hello cook!"}}, "next")
	require.Contains(t, p, "Previous conversation:\nUser: hi\nChefBot: Hello cook!\n\nUser: next\n\nChefBot:")
}

func TestMemory_BoundedHistory(t *testing.T) {
	m := NewMemory(4)
	m.Save("s", "q1", "a1")
	m.Save("s", "q2", "a2")
	m.Save("s", "q3", "a3")

	h := m.History("s")
	require.Len(t, h, 4)
	require.Equal(t, Turn{Role: "User", Content: "q2"}, h[0])
	require.Equal(t, Turn{Role: "ChefBot", Content: "a3"}, h[3])
	require.Equal(t, 1, m.Sessions())

	require.True(t, m.Clear("s"))
	require.False(t, m.Clear("s"))
	require.Empty(t, m.History("s"))
}

func TestNewMemory_DefaultLimit(t *testing.T) {
	m := NewMemory(0)
	for i := 0; i < 15; i++ {
		m.Save("s", "q", "a")
	}
	require.Len(t, m.History("s"), DefaultHistoryLimit)
}
