package cmds

import (
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-go-golems/chefbot/pkg/config"
	"github.com/go-go-golems/chefbot/pkg/redisstream"
	"github.com/go-go-golems/chefbot/pkg/relay"
	"github.com/go-go-golems/chefbot/pkg/reveal"
	"github.com/go-go-golems/chefbot/pkg/ui"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with ChefBot",
		Long: "Chat with ChefBot through the relay service. A full screen interface is used " +
			"when stdout is a terminal, a line oriented one otherwise or with --plain.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd); err != nil {
				return err
			}
			s, err := config.LoadChat(viper.GetViper())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			isOutputTerminal := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
			plain := s.Plain || !isOutputTerminal
			if !plain && viper.GetString("log-file") == "" {
				redirectLogs(filepath.Join(s.Dir, config.AppName+".log"))
			}

			store, err := openStore(ctx, s.BackendSettings)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Warn().Err(err).Str("component", "chat").Msg("failed to close chat store")
				}
			}()

			client := newRelayClient(s)
			scheduler := reveal.NewScheduler(reveal.WithDelay(s.RevealDelay))

			if plain {
				return ui.RunPlain(ctx, store, client, ui.NewPlainRunner(os.Stdin, os.Stdout), scheduler)
			}

			bus, err := redisstream.BuildBus(ctx, s.Events)
			if err != nil {
				return err
			}
			defer func() {
				if err := bus.Close(); err != nil {
					log.Warn().Err(err).Str("component", "chat").Msg("failed to close event bus")
				}
			}()
			return ui.RunTUI(ctx, store, client, ui.RunOptions{
				Bus:       bus,
				Scheduler: scheduler,
				Markdown:  s.Markdown,
			})
		},
	}

	f := cmd.Flags()
	f.String("relay-url", config.DefaultRelayURL, "URL of the relay chat endpoint")
	f.String("transport", config.TransportHTTP, "Relay transport (http or ws)")
	f.Duration("timeout", 0, "Timeout for a single relay request, 0 waits until stopped")
	f.Duration("reveal-delay", reveal.DefaultDelay, "Delay between revealed characters")
	f.Bool("plain", false, "Use the line oriented interface")
	f.Bool("markdown", true, "Render finished replies as markdown")
	f.Bool("events-redis", false, "Carry lifecycle events over Redis Streams instead of in process")
	f.String("events-redis-addr", "", "Redis address for lifecycle events")
	f.String("events-redis-group", redisstream.DefaultGroup, "Consumer group for lifecycle events")
	f.String("events-redis-consumer", redisstream.DefaultConsumer, "Consumer name for lifecycle events")
	f.String("events-topic", redisstream.DefaultTopic, "Topic for lifecycle events")
	addStoreFlags(cmd)
	return cmd
}

func newRelayClient(s config.Chat) relay.Client {
	if s.Transport == config.TransportWS {
		return relay.NewWSClient(s.RelayURL, nil)
	}
	return relay.NewHTTPClient(s.RelayURL, relay.WithTimeout(s.Timeout))
}

// redirectLogs sends log output to a rotated file, since the full screen
// interface owns the terminal.
func redirectLogs(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
