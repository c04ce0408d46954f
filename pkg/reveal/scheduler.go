package reveal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// DefaultDelay is the pause between two revealed characters.
const DefaultDelay = 15 * time.Millisecond

var ErrRevealActive = errors.New("reveal: a reveal is already active on this scheduler")

type Outcome int

const (
	OutcomeFinished Outcome = iota
	OutcomeStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result describes how a reveal ended. Prefix is exactly what was delivered
// to the character callback.
type Result struct {
	Outcome   Outcome
	Delivered int
	Prefix    string
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scheduler reveals a text character by character at a fixed pace. Only one
// reveal may run on a Scheduler at a time.
type Scheduler struct {
	delay  time.Duration
	sleep  Sleeper
	active atomic.Bool
}

type Option func(*Scheduler)

func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.delay = d
		}
	}
}

func WithSleeper(sleep Sleeper) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{delay: DefaultDelay, sleep: sleepContext}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Reveal delivers text one character at a time to onCharacter, pausing
// between characters. It blocks until the text is exhausted (finished) or
// until token is cancelled or ctx is done (stopped). The stop flag is
// checked before every character; once observed, no further character is
// delivered. An empty text finishes immediately even if token is already
// cancelled.
func (s *Scheduler) Reveal(ctx context.Context, text string, onCharacter func(index int, prefix string), token *Token) (Result, error) {
	if !s.active.CompareAndSwap(false, true) {
		return Result{}, ErrRevealActive
	}
	defer s.active.Store(false)

	cur := NewCursor(text)
	if cur.Done() {
		return Result{Outcome: OutcomeFinished}, nil
	}

	for {
		if token.Cancelled() || ctx.Err() != nil {
			return Result{Outcome: OutcomeStopped, Delivered: cur.Delivered(), Prefix: cur.Prefix()}, nil
		}
		idx, prefix, _ := cur.Next()
		if onCharacter != nil {
			onCharacter(idx, prefix)
		}
		if cur.Done() {
			return Result{Outcome: OutcomeFinished, Delivered: cur.Delivered(), Prefix: prefix}, nil
		}
		// a cancelled sleep is picked up by the check at the top of the loop
		_ = s.sleep(ctx, s.delay)
	}
}
