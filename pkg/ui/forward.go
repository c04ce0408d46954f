package ui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chefbot/pkg/generation"
)

// ForwardFunc turns lifecycle messages from the bus back into
// generation.Event values and injects them into the program. The message is
// acked by the router once Send returned, so the next event is only
// delivered after this one reached the program.
func ForwardFunc(p *tea.Program) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev generation.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload)).Msg("failed to parse lifecycle event")
			return nil
		}
		log.Trace().Str("type", string(ev.Type)).Msg("dispatching lifecycle event to UI")
		p.Send(ev)
		return nil
	}
}

type publisher interface {
	Publish(payload []byte) error
}

// BusObserver publishes controller events on the event bus.
type BusObserver struct {
	pub publisher
}

var _ generation.Observer = &BusObserver{}

func NewBusObserver(pub publisher) *BusObserver {
	return &BusObserver{pub: pub}
}

func (o *BusObserver) OnEvent(ev generation.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("failed to encode lifecycle event")
		return
	}
	if err := o.pub.Publish(payload); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("failed to publish lifecycle event")
	}
}
