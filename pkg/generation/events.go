package generation

import (
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

type EventType string

const (
	// EventSessions carries the refreshed, recency ordered session list.
	EventSessions EventType = "sessions"
	// EventSessionOpened carries the full history of a session being shown.
	EventSessionOpened EventType = "session_opened"
	EventNewChat       EventType = "new_chat"
	EventUserMessage   EventType = "user_message"
	// EventInput toggles the input surface. Disabling also clears it.
	EventInput   EventType = "input"
	EventWorking EventType = "working"
	// EventAssistantStart opens a new assistant turn. Text is its initial
	// content, which is only non-empty for the stopped placeholder.
	EventAssistantStart EventType = "assistant_start"
	EventReveal         EventType = "reveal"
	// EventCycleDone carries the outcome and the content that was persisted.
	EventCycleDone EventType = "cycle_done"
)

// Event is a JSON friendly notification emitted by the Controller.
type Event struct {
	Type      EventType           `json:"type"`
	SessionID string              `json:"session_id,omitempty"`
	Sessions  []chatstore.Summary `json:"sessions,omitempty"`
	Messages  []chatstore.Message `json:"messages,omitempty"`
	Text      string              `json:"text,omitempty"`
	Index     int                 `json:"index,omitempty"`
	Enabled   bool                `json:"enabled,omitempty"`
	Working   bool                `json:"working,omitempty"`
	Outcome   Outcome             `json:"outcome,omitempty"`
}

// Observer receives Controller events on the goroutine that produced them.
// Implementations must not block for long and must not call back into the
// Controller except for Cancel.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Observers fans an event out to several observers in order.
type Observers []Observer

func (o Observers) OnEvent(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEvent(ev)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}
