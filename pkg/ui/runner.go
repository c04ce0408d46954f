package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chefbot/pkg/generation"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
	"github.com/go-go-golems/chefbot/pkg/redisstream"
	"github.com/go-go-golems/chefbot/pkg/relay"
	"github.com/go-go-golems/chefbot/pkg/reveal"
)

type RunOptions struct {
	Bus       *redisstream.Bus
	Scheduler *reveal.Scheduler
	Markdown  bool
}

// RunTUI runs the full screen chat. Controller events travel over the bus
// and are forwarded into the bubbletea program by a router handler.
func RunTUI(ctx context.Context, store *chatstore.Store, client relay.Client, opts RunOptions) error {
	if opts.Bus == nil {
		return errors.New("ui: event bus is nil")
	}
	ctrl, err := generation.NewController(store, client,
		generation.WithObserver(NewBusObserver(opts.Bus)),
		generation.WithScheduler(opts.Scheduler),
	)
	if err != nil {
		return err
	}

	model := NewModel(ctx, ctrl, Options{Markdown: opts.Markdown})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	opts.Bus.AddForwarder("ui-forward", ForwardFunc(p))

	eg, groupCtx := errgroup.WithContext(ctx)
	routerCtx, cancelRouter := context.WithCancel(groupCtx)
	defer cancelRouter()

	eg.Go(func() error {
		return opts.Bus.Run(routerCtx)
	})
	eg.Go(func() error {
		defer cancelRouter()
		select {
		case <-opts.Bus.Running():
		case <-routerCtx.Done():
			return nil
		}
		_, err := p.Run()
		ctrl.Cancel()
		// the router stays up so the cycle's last events can still be published
		ctrl.Wait()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		log.Debug().Err(err).Str("component", "ui").Msg("chat program exited")
		return err
	})
	return eg.Wait()
}

// RunPlain runs the line oriented chat on the given runner.
func RunPlain(ctx context.Context, store *chatstore.Store, client relay.Client, runner *PlainRunner, scheduler *reveal.Scheduler) error {
	ctrl, err := generation.NewController(store, client,
		generation.WithObserver(runner),
		generation.WithScheduler(scheduler),
	)
	if err != nil {
		return err
	}
	return runner.Run(ctx, ctrl)
}
