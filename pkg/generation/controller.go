package generation

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
	"github.com/go-go-golems/chefbot/pkg/relay"
	"github.com/go-go-golems/chefbot/pkg/reveal"
)

// StoppedPlaceholder is persisted when a cycle is stopped before any
// character of the reply was shown.
const StoppedPlaceholder = "[Generation stopped]"

var (
	ErrEmptyPrompt = errors.New("generation: empty prompt")
	ErrBusy        = errors.New("generation: a generation cycle is in flight")
)

type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateRevealing
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateRevealing:
		return "revealing"
	case StateCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

type Outcome string

const (
	OutcomeFinished Outcome = "finished"
	OutcomeStopped  Outcome = "stopped"
	OutcomeFailed   Outcome = "failed"
)

// Result is the persisted outcome of one cycle.
type Result struct {
	SessionID string
	Outcome   Outcome
	Content   string
}

// Controller drives the generation cycle for one chat surface: submit,
// await the relay, reveal, and stop on request.
type Controller struct {
	store     *chatstore.Store
	client    relay.Client
	scheduler *reveal.Scheduler
	observer  Observer

	mu        sync.Mutex
	state     State
	sessionID string
	token     *reveal.Token
	abort     context.CancelFunc
	inflight  sync.WaitGroup
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithScheduler(s *reveal.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

func NewController(store *chatstore.Store, client relay.Client, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("generation: store is nil")
	}
	if client == nil {
		return nil, errors.New("generation: relay client is nil")
	}
	c := &Controller{
		store:     store,
		client:    client,
		scheduler: reveal.NewScheduler(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentSessionID is empty while in a new chat that has not been
// submitted to yet.
func (c *Controller) CurrentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) Sessions() []chatstore.Summary {
	return c.store.List()
}

// Refresh republishes the session list.
func (c *Controller) Refresh() {
	c.emit(Event{Type: EventSessions, Sessions: c.store.List()})
}

// Submit runs one whole generation cycle in the calling goroutine and
// returns once the reply is fully revealed, stopped or failed.
func (c *Controller) Submit(ctx context.Context, text string) (Result, error) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Result{}, ErrBusy
	}
	token := reveal.NewToken()
	reqCtx, abort := context.WithCancel(ctx)
	c.state = StateAwaitingResponse
	c.token = token
	c.abort = abort
	sessionID := c.sessionID
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	// store writes must land even when the caller's context is gone
	storeCtx := context.WithoutCancel(ctx)

	sessionID = c.appendUserMessage(storeCtx, sessionID, prompt)
	c.emit(Event{Type: EventUserMessage, SessionID: sessionID, Text: prompt})
	c.emit(Event{Type: EventSessions, Sessions: c.store.List()})
	c.emit(Event{Type: EventInput, Enabled: false})
	c.emit(Event{Type: EventWorking, Working: true})

	reply, err := c.client.Generate(reqCtx, relay.Request{UserInput: prompt, SessionID: sessionID})
	c.emit(Event{Type: EventWorking, Working: false})

	var res Result
	switch {
	case token.Cancelled() || errors.Is(err, context.Canceled) || ctx.Err() != nil:
		if err == nil {
			log.Debug().Str("component", "generation").Str("session_id", sessionID).Msg("discarding reply that arrived after stop")
		}
		res = c.stopWhileWaiting(storeCtx, sessionID)
	case err != nil:
		log.Warn().Err(err).Str("component", "generation").Str("session_id", sessionID).Msg("relay request failed")
		res = c.revealReply(ctx, storeCtx, sessionID, relay.DisplayText(err), token, OutcomeFailed)
	default:
		res = c.revealReply(ctx, storeCtx, sessionID, reply, token, OutcomeFinished)
	}

	c.emit(Event{Type: EventCycleDone, SessionID: sessionID, Outcome: res.Outcome, Text: res.Content})
	c.emit(Event{Type: EventSessions, Sessions: c.store.List()})
	c.finish()
	c.emit(Event{Type: EventInput, Enabled: true})
	return res, nil
}

// Cancel asks the in-flight cycle to stop. It reports whether a cycle was
// running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle || c.token == nil {
		return false
	}
	c.token.Cancel()
	if c.abort != nil {
		c.abort()
	}
	c.state = StateCancelling
	return true
}

// Wait blocks until the cycle in flight, if any, has written its last
// message to the store and returned. Call it after Cancel before closing the
// store.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// NewChat leaves the current session. The next submission creates a new one.
func (c *Controller) NewChat() error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sessionID = ""
	c.mu.Unlock()
	c.emit(Event{Type: EventNewChat})
	return nil
}

// Open makes id the current session and publishes its history.
func (c *Controller) Open(id string) (chatstore.Session, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return chatstore.Session{}, ErrBusy
	}
	sess, err := c.store.Get(id)
	if err != nil {
		c.mu.Unlock()
		return chatstore.Session{}, err
	}
	c.sessionID = id
	c.mu.Unlock()
	c.emit(Event{Type: EventSessionOpened, SessionID: id, Messages: sess.Messages, Text: sess.Title})
	return sess, nil
}

// Delete removes a session. Callers are expected to have asked the user for
// confirmation. Deleting the current session starts a new chat.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state != StateIdle && c.sessionID == id {
		c.mu.Unlock()
		return ErrBusy
	}
	wasCurrent := c.sessionID == id
	if wasCurrent {
		c.sessionID = ""
	}
	c.mu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("component", "generation").Str("session_id", id).Msg("persisting deletion failed")
	}
	if wasCurrent {
		c.emit(Event{Type: EventNewChat})
	}
	c.emit(Event{Type: EventSessions, Sessions: c.store.List()})
	return nil
}

func (c *Controller) appendUserMessage(ctx context.Context, sessionID, prompt string) string {
	msg := chatstore.Message{Role: chatstore.RoleUser, Content: prompt}
	if sessionID != "" {
		err := c.store.Append(ctx, sessionID, msg)
		if err == nil {
			return sessionID
		}
		if !errors.Is(err, chatstore.ErrUnknownSession) {
			logPersistFailure(err, sessionID)
			return sessionID
		}
		log.Info().Str("component", "generation").Str("session_id", sessionID).Msg("current session vanished, starting a new one")
	}

	sessionID = c.store.Create(prompt)
	if err := c.store.Append(ctx, sessionID, msg); err != nil {
		logPersistFailure(err, sessionID)
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	return sessionID
}

func (c *Controller) stopWhileWaiting(ctx context.Context, sessionID string) Result {
	c.setState(StateCancelling)
	if err := c.store.Append(ctx, sessionID, chatstore.Message{Role: chatstore.RoleAssistant, Content: StoppedPlaceholder}); err != nil {
		logPersistFailure(err, sessionID)
	}
	c.emit(Event{Type: EventAssistantStart, SessionID: sessionID, Text: StoppedPlaceholder})
	return Result{SessionID: sessionID, Outcome: OutcomeStopped, Content: StoppedPlaceholder}
}

// revealReply persists text eagerly, then reveals it. A stop during the
// reveal truncates the persisted message to what was shown.
func (c *Controller) revealReply(ctx, storeCtx context.Context, sessionID, text string, token *reveal.Token, outcome Outcome) Result {
	if err := c.store.Append(storeCtx, sessionID, chatstore.Message{Role: chatstore.RoleAssistant, Content: text}); err != nil {
		logPersistFailure(err, sessionID)
	}
	c.setState(StateRevealing)
	c.emit(Event{Type: EventAssistantStart, SessionID: sessionID})

	res, err := c.scheduler.Reveal(ctx, text, func(i int, prefix string) {
		c.emit(Event{Type: EventReveal, SessionID: sessionID, Index: i, Text: prefix})
	}, token)
	if err != nil {
		log.Error().Err(err).Str("component", "generation").Msg("reveal could not start")
		c.emit(Event{Type: EventReveal, SessionID: sessionID, Index: len([]rune(text)) - 1, Text: text})
		return Result{SessionID: sessionID, Outcome: outcome, Content: text}
	}
	if res.Outcome == reveal.OutcomeFinished {
		return Result{SessionID: sessionID, Outcome: outcome, Content: text}
	}

	c.setState(StateCancelling)
	content := res.Prefix
	if content == "" {
		content = StoppedPlaceholder
	}
	if err := c.store.PatchLast(storeCtx, sessionID, content); err != nil {
		logPersistFailure(err, sessionID)
	}
	return Result{SessionID: sessionID, Outcome: OutcomeStopped, Content: content}
}

// setState never leaves Cancelling once a stop was requested.
func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCancelling && s != StateIdle {
		return
	}
	c.state = s
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abort != nil {
		c.abort()
	}
	c.abort = nil
	c.token = nil
	c.state = StateIdle
}

func (c *Controller) emit(ev Event) {
	c.observer.OnEvent(ev)
}

func logPersistFailure(err error, sessionID string) {
	log.Warn().Err(err).Str("component", "generation").Str("session_id", sessionID).Msg("persisting chat failed")
}
