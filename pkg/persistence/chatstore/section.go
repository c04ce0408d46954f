package chatstore

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// SectionSlug names the store section on commands that read the store.
const SectionSlug = "chat-store"

// NewSection returns the glazed section carrying BackendSettings.
func NewSection(defaultDir string) (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Chat store configuration",
		schema.WithFields(
			fields.New("store", fields.TypeChoice,
				fields.WithChoices(BackendFile, BackendSQLite, BackendRedis, BackendMemory),
				fields.WithDefault(BackendFile),
				fields.WithHelp("Chat store backend")),
			fields.New("store-dir", fields.TypeString,
				fields.WithDefault(defaultDir),
				fields.WithHelp("Directory for the file and sqlite stores")),
			fields.New("sqlite-path", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("SQLite database path (defaults to <store-dir>/chefbot.db)")),
			fields.New("redis-addr", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Redis address for the redis store")),
			fields.New("redis-password", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Redis password for the redis store")),
			fields.New("redis-db", fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Redis database for the redis store")),
			fields.New("redis-prefix", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Key prefix for the redis store")),
		),
	)
}
