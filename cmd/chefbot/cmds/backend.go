package cmds

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chefbot/pkg/backend"
	"github.com/go-go-golems/chefbot/pkg/config"
)

func NewBackendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the cooking assistant backend",
		Long: "Run the cooking assistant backend. The API key is read from --api-key, " +
			"CHEFBOT_API_KEY or OPENAI_API_KEY.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd); err != nil {
				return err
			}
			s, err := config.LoadBackend(viper.GetViper())
			if err != nil {
				return err
			}
			if s.APIKey == "" {
				s.APIKey = os.Getenv("OPENAI_API_KEY")
			}

			var engine backend.Engine
			if s.APIKey != "" {
				e, err := backend.NewOpenAIEngine(s.EngineSettings)
				if err != nil {
					return err
				}
				engine = e
			} else {
				log.Warn().Str("component", "backend").Msg("no api key configured, chat requests will fail")
			}

			srv := backend.NewServer(engine,
				backend.WithMemory(backend.NewMemory(s.HistoryLimit)),
				backend.WithModelName(s.Model),
			)
			return serveHTTP(cmd.Context(), "backend", s.Addr, srv.Handler())
		},
	}
	f := cmd.Flags()
	f.String("addr", config.DefaultBackendAddr, "Address to listen on")
	f.Int("history-limit", backend.DefaultHistoryLimit, "Messages of history kept per session")
	f.String("api-key", "", "API key for the OpenAI compatible endpoint")
	f.String("base-url", "", "Base URL of the OpenAI compatible endpoint")
	f.String("model", backend.DefaultModel, "Model name")
	f.Float64("temperature", backend.DefaultTemperature, "Sampling temperature")
	f.Float64("top-p", backend.DefaultTopP, "Nucleus sampling probability")
	f.Int64("max-tokens", backend.DefaultMaxTokens, "Maximum tokens per reply")
	return cmd
}
