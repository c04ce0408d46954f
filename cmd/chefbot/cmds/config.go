package cmds

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/chefbot/pkg/config"
)

var durationKeys = map[string]bool{
	"timeout":      true,
	"reveal-delay": true,
}

func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "config [chat|relay|backend]",
		Short:     "Print the effective settings of a command as YAML",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"chat", "relay", "backend"},
		RunE: func(cmd *cobra.Command, args []string) error {
			section := "chat"
			if len(args) == 1 {
				section = args[0]
			}
			v := viper.GetViper()

			var settings any
			switch section {
			case "chat":
				config.SetChatDefaults(v)
				s, err := config.LoadChat(v)
				if err != nil {
					return err
				}
				settings = s
			case "relay":
				config.SetRelayDefaults(v)
				s, err := config.LoadRelay(v)
				if err != nil {
					return err
				}
				settings = s
			case "backend":
				config.SetBackendDefaults(v)
				s, err := config.LoadBackend(v)
				if err != nil {
					return err
				}
				s.APIKey = maskSecret(s.APIKey)
				settings = s
			default:
				return errors.Errorf("unknown section %q", section)
			}
			return printSettings(cmd.OutOrStdout(), settings)
		},
	}
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// printSettings writes settings as YAML with durations in their readable form.
func printSettings(w io.Writer, settings any) error {
	var node yaml.Node
	if err := node.Encode(settings); err != nil {
		return errors.Wrap(err, "could not encode settings")
	}
	humanizeDurations(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return errors.Wrap(err, "could not encode settings")
	}
	_, err = fmt.Fprint(w, string(out))
	return err
}

func humanizeDurations(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if durationKeys[k.Value] && v.Kind == yaml.ScalarNode {
				if ns, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
					v.Value = time.Duration(ns).String()
					v.Tag = "!!str"
				}
			}
		}
	}
	for _, c := range n.Content {
		humanizeDurations(c)
	}
}
