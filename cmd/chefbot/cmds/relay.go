package cmds

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chefbot/pkg/config"
	"github.com/go-go-golems/chefbot/pkg/relay"
)

func NewRelayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the relay service between chat clients and the cooking backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd); err != nil {
				return err
			}
			s, err := config.LoadRelay(viper.GetViper())
			if err != nil {
				return err
			}

			f := relay.NewForwarder(s.BackendURL, &http.Client{Timeout: s.Timeout})
			upgrader := websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool { return true },
			}
			return serveHTTP(cmd.Context(), "relay", s.Addr, relay.NewServeMux(f, upgrader))
		},
	}
	f := cmd.Flags()
	f.String("addr", config.DefaultRelayAddr, "Address to listen on")
	f.String("backend-url", config.DefaultBackendURL, "Base URL of the cooking backend")
	f.Duration("timeout", config.DefaultRelayTimeout, "Timeout for backend requests")
	return cmd
}
