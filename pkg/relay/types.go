package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FallbackErrorText is shown whenever a failure carries no usable message.
const FallbackErrorText = "Sorry, I encountered an error. Please try again."

// Request is the body posted to the relay.
type Request struct {
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the relay's JSON reply. Only Response is used on success; on
// failure Error carries the human readable reason.
type Response struct {
	Response  string         `json:"response,omitempty"`
	Error     string         `json:"error,omitempty"`
	Message   string         `json:"message,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Debug     map[string]any `json:"debug,omitempty"`
}

// Client sends one prompt and waits for the complete reply. Implementations
// must return promptly once ctx is cancelled.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// TransportFailure is any reason other than a user abort for which no usable
// reply arrived.
type TransportFailure struct {
	Status  int
	Message string
	Cause   error
}

func (e *TransportFailure) Error() string {
	parts := []string{"relay: request failed"}
	if e.Status > 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.Status))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *TransportFailure) Unwrap() error { return e.Cause }

// DisplayText picks the text rendered in place of a reply after a failure.
func DisplayText(err error) string {
	var tf *TransportFailure
	if errors.As(err, &tf) && tf != nil && strings.TrimSpace(tf.Message) != "" {
		return tf.Message
	}
	return FallbackErrorText
}
