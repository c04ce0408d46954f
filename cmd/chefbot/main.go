package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chefbot/cmd/chefbot/cmds"
	"github.com/go-go-golems/chefbot/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "chefbot",
	Short: "chefbot is a cooking assistant chat client, along with its relay and backend services",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		err := clay.InitLogger()
		cobra.CheckErr(err)
	},
}

func main() {
	err := clay.InitViper(config.AppName, rootCmd)
	cobra.CheckErr(err)
	err = clay.InitLogger()
	cobra.CheckErr(err)

	rootCmd.AddCommand(
		cmds.NewChatCommand(),
		cmds.NewSessionsCommand(),
		cmds.NewRelayCommand(),
		cmds.NewBackendCommand(),
		cmds.NewConfigCommand(),
	)

	err = rootCmd.Execute()
	cobra.CheckErr(err)
}
