package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chefbot/pkg/generation"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

const plainHelp = `Commands:
  /new          start a new chat
  /list         list stored chats
  /open <n>     open chat number n from /list
  /delete <n>   delete chat number n from /list
  /help         show this help
  /quit         leave
Press Ctrl+C while ChefBot is answering to stop it.`

type lineResult struct {
	line string
	err  error
}

// PlainRunner is the line oriented chat surface used when stdout is not a
// terminal or when the TUI is disabled. It is also the controller's observer
// in that mode.
type PlainRunner struct {
	in  io.Reader
	out io.Writer

	// Interrupts overrides os.Interrupt delivery, mostly for tests.
	Interrupts <-chan os.Signal

	mu      sync.Mutex
	printed int
	lines   chan lineResult
}

var _ generation.Observer = &PlainRunner{}

func NewPlainRunner(in io.Reader, out io.Writer) *PlainRunner {
	return &PlainRunner{in: in, out: out}
}

func (r *PlainRunner) OnEvent(ev generation.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Type {
	case generation.EventWorking:
		if ev.Working {
			fmt.Fprintln(r.out, "(ChefBot is thinking... press Ctrl+C to stop)")
		}
	case generation.EventAssistantStart:
		fmt.Fprint(r.out, "ChefBot: "+ev.Text)
		r.printed = len(ev.Text)
	case generation.EventReveal:
		if len(ev.Text) >= r.printed {
			fmt.Fprint(r.out, ev.Text[r.printed:])
			r.printed = len(ev.Text)
		}
	case generation.EventCycleDone:
		switch {
		case r.printed == 0:
			fmt.Fprint(r.out, ev.Text)
		case ev.Outcome == generation.OutcomeStopped && ev.Text != generation.StoppedPlaceholder:
			fmt.Fprint(r.out, " [stopped]")
		}
		fmt.Fprint(r.out, "\n\n")
		r.printed = 0
	case generation.EventSessionOpened:
		fmt.Fprintf(r.out, "--- %s ---\n", ev.Text)
		for _, m := range ev.Messages {
			fmt.Fprintf(r.out, "%s: %s\n\n", speaker(m.Role), m.Content)
		}
	case generation.EventNewChat:
		fmt.Fprintln(r.out, "ChefBot: "+Greeting)
		fmt.Fprintln(r.out)
	}
}

func speaker(role chatstore.Role) string {
	if role == chatstore.RoleUser {
		return "You"
	}
	return "ChefBot"
}

// Run reads prompts and commands until EOF, /quit or ctx is done.
func (r *PlainRunner) Run(ctx context.Context, ctrl Controller) error {
	interrupts := r.Interrupts
	if interrupts == nil {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		defer signal.Stop(sig)
		interrupts = sig
	}

	done := make(chan struct{})
	defer close(done)
	r.lines = make(chan lineResult)
	go r.readLines(done)

	r.printf("ChefBot: %s\n\nType /help for commands.\n\n", Greeting)
	for {
		r.printf("You: ")
		var lr lineResult
		select {
		case <-ctx.Done():
			return nil
		case <-interrupts:
			r.printf("\n")
			return nil
		case lr = <-r.lines:
		}
		if lr.err != nil {
			if errors.Is(lr.err, io.EOF) {
				r.printf("\n")
				return nil
			}
			return lr.err
		}

		line := strings.TrimSpace(lr.line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, ctrl, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}
		r.submit(ctx, ctrl, line, interrupts)
	}
}

func (r *PlainRunner) submit(ctx context.Context, ctrl Controller, line string, interrupts <-chan os.Signal) {
	type outcome struct {
		res generation.Result
		err error
	}
	finished := make(chan outcome, 1)
	go func() {
		res, err := ctrl.Submit(ctx, line)
		finished <- outcome{res: res, err: err}
	}()
	for {
		select {
		case o := <-finished:
			if o.err != nil {
				r.printf("error: %v\n", o.err)
			}
			return
		case <-interrupts:
			ctrl.Cancel()
		case <-ctx.Done():
			ctrl.Cancel()
			<-finished
			return
		}
	}
}

func (r *PlainRunner) command(ctx context.Context, ctrl Controller, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.printf("%s\n\n", plainHelp)
	case "/new":
		if err := ctrl.NewChat(); err != nil {
			r.printf("error: %v\n", err)
		}
	case "/list":
		r.printList(ctrl.Sessions(), ctrl.CurrentSessionID())
	case "/open", "/delete":
		sum, ok := r.pick(ctrl, fields)
		if !ok {
			return false, nil
		}
		if fields[0] == "/open" {
			if _, err := ctrl.Open(sum.ID); err != nil {
				r.printf("error: %v\n", err)
			}
			return false, nil
		}
		yes, err := r.confirm(ctx, fmt.Sprintf("Delete conversation %q? This action cannot be undone. [y/N] ", sum.Title))
		if errors.Is(err, io.EOF) {
			// input is gone, readLines has exited
			r.printf("\nKept.\n")
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if !yes {
			r.printf("Kept.\n")
			return false, nil
		}
		if err := ctrl.Delete(ctx, sum.ID); err != nil {
			r.printf("error: %v\n", err)
			return false, nil
		}
		r.printf("Deleted.\n")
	default:
		r.printf("unknown command %s, try /help\n", fields[0])
	}
	return false, nil
}

func (r *PlainRunner) pick(ctrl Controller, fields []string) (chatstore.Summary, bool) {
	sessions := ctrl.Sessions()
	if len(fields) < 2 {
		r.printf("usage: %s <n>\n", fields[0])
		return chatstore.Summary{}, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(sessions) {
		r.printf("no chat number %s, try /list\n", fields[1])
		return chatstore.Summary{}, false
	}
	return sessions[n-1], true
}

func (r *PlainRunner) confirm(ctx context.Context, question string) (bool, error) {
	r.printf("%s", question)
	select {
	case <-ctx.Done():
		return false, nil
	case lr := <-r.lines:
		if lr.err != nil {
			return false, lr.err
		}
		answer := strings.ToLower(strings.TrimSpace(lr.line))
		return answer == "y" || answer == "yes", nil
	}
}

func (r *PlainRunner) printList(sessions []chatstore.Summary, current string) {
	if len(sessions) == 0 {
		r.printf("No recent chats\n")
		return
	}
	for i, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		r.printf("%s %d. %s  (%d messages, %s)\n", marker, i+1, s.Title, s.MessageCount,
			time.UnixMilli(s.LastActivity).Format("2006-01-02 15:04"))
	}
}

func (r *PlainRunner) readLines(done <-chan struct{}) {
	reader := bufio.NewReader(r.in)
	for {
		line, err := reader.ReadString('\n')
		if line != "" || err == nil {
			select {
			case r.lines <- lineResult{line: line}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case r.lines <- lineResult{err: err}:
			case <-done:
			}
			return
		}
	}
}

func (r *PlainRunner) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
