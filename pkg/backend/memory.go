package backend

import "sync"

const (
	DefaultHistoryLimit = 20
	DefaultSessionID    = "default"
)

// Memory is the bounded per-session conversation history used to build
// prompts. It lives only as long as the process.
type Memory struct {
	mu            sync.Mutex
	limit         int
	conversations map[string][]Turn
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Memory{limit: limit, conversations: map[string][]Turn{}}
}

func (m *Memory) History(sessionID string) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.conversations[sessionID]...)
}

// Save records one exchange and drops the oldest turns beyond the limit.
func (m *Memory) Save(sessionID, userInput, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := append(m.conversations[sessionID],
		Turn{Role: roleUser, Content: userInput},
		Turn{Role: roleBot, Content: reply},
	)
	if len(h) > m.limit {
		h = append([]Turn(nil), h[len(h)-m.limit:]...)
	}
	m.conversations[sessionID] = h
}

// Clear forgets a session and reports whether it existed.
func (m *Memory) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.conversations[sessionID]
	delete(m.conversations, sessionID)
	return ok
}

func (m *Memory) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}
