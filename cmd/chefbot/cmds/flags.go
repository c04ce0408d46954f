package cmds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chefbot/pkg/config"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

// addStoreFlags registers the chat store flags shared by chat and sessions.
func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("store", chatstore.BackendFile, "Chat store backend (file, sqlite, redis, memory)")
	f.String("store-dir", config.DefaultStoreDir(), "Directory for the file and sqlite stores")
	f.String("sqlite-path", "", "SQLite database path (defaults to <store-dir>/chefbot.db)")
	f.String("redis-addr", "", "Redis address for the redis store")
	f.String("redis-password", "", "Redis password for the redis store")
	f.Int("redis-db", 0, "Redis database for the redis store")
	f.String("redis-prefix", "", "Key prefix for the redis store")
}

// bindFlags makes the flags of the running command visible to viper, so they
// layer over the config file and CHEFBOT_* environment variables.
func bindFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "could not bind flags")
	}
	return nil
}

func openStore(ctx context.Context, s chatstore.BackendSettings) (*chatstore.Store, error) {
	backend, err := chatstore.OpenBackend(s)
	if err != nil {
		return nil, err
	}
	store, err := chatstore.Open(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}
