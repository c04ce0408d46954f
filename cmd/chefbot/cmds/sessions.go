package cmds

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chefbot/pkg/config"
	"github.com/go-go-golems/chefbot/pkg/persistence/chatstore"
)

const activityLayout = "2006-01-02 15:04:05"

func NewSessionsCommand() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored chats",
		Long:  "Read the chat store without the chat interface. Sessions are addressed by id or by their position in the list output.",
	}

	listCmd, err := NewSessionsListCommand()
	cobra.CheckErr(err)
	showCmd, err := NewSessionsShowCommand()
	cobra.CheckErr(err)
	exportCmd, err := NewSessionsExportCommand()
	cobra.CheckErr(err)

	for _, c := range []cmds.GlazeCommand{listCmd, showCmd, exportCmd} {
		cobraCmd, err := cli.BuildCobraCommand(c, cli.WithCobraMiddlewaresFunc(sessionsMiddlewares))
		cobra.CheckErr(err)
		sessionsCmd.AddCommand(cobraCmd)
	}
	sessionsCmd.AddCommand(newSessionsDeleteCommand())
	return sessionsCmd
}

func sessionsMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv("CHEFBOT",
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}

func openStoreFromValues(ctx context.Context, parsedValues *values.Values) (*chatstore.Store, error) {
	s := chatstore.BackendSettings{}
	if err := parsedValues.DecodeSectionInto(chatstore.SectionSlug, &s); err != nil {
		return nil, err
	}
	return openStore(ctx, config.ResolveStore(s))
}

func addRows(ctx context.Context, gp middlewares.Processor, rows []types.Row) error {
	for _, row := range rows {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type SessionsListCommand struct {
	*cmds.CommandDescription
}

type SessionsListSettings struct {
	Limit int `glazed:"limit"`
}

func NewSessionsListCommand() (*SessionsListCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	storeSection, err := chatstore.NewSection(config.DefaultStoreDir())
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"list",
		cmds.WithShort("List stored chats, most recent first"),
		cmds.WithFlags(
			fields.New(
				"limit",
				fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Limit number of chats (0 = no limit)"),
			),
		),
		cmds.WithSections(glazedSection, commandSettingsSection, storeSection),
	)
	return &SessionsListCommand{CommandDescription: desc}, nil
}

func (c *SessionsListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedValues *values.Values,
	gp middlewares.Processor,
) error {
	s := &SessionsListSettings{}
	if err := parsedValues.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	store, err := openStoreFromValues(ctx, parsedValues)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return addRows(ctx, gp, summaryRows(store.List(), s.Limit))
}

var _ cmds.GlazeCommand = &SessionsListCommand{}

// summaryRows numbers the summaries the way show and delete accept them.
func summaryRows(list []chatstore.Summary, limit int) []types.Row {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	rows := make([]types.Row, 0, len(list))
	for i, s := range list {
		rows = append(rows, types.NewRow(
			types.MRP("n", i+1),
			types.MRP("title", s.Title),
			types.MRP("message_count", s.MessageCount),
			types.MRP("last_activity", time.UnixMilli(s.LastActivity).Format(activityLayout)),
			types.MRP("last_activity_ms", s.LastActivity),
			types.MRP("id", s.ID),
		))
	}
	return rows
}

type SessionsShowCommand struct {
	*cmds.CommandDescription
}

type SessionsShowSettings struct {
	Session string `glazed:"session"`
}

func NewSessionsShowCommand() (*SessionsShowCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	storeSection, err := chatstore.NewSection(config.DefaultStoreDir())
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"show",
		cmds.WithShort("Show the messages of a stored chat"),
		cmds.WithArguments(
			fields.New(
				"session",
				fields.TypeString,
				fields.WithHelp("Session id, or its number in the list output"),
			),
		),
		cmds.WithSections(glazedSection, commandSettingsSection, storeSection),
	)
	return &SessionsShowCommand{CommandDescription: desc}, nil
}

func (c *SessionsShowCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedValues *values.Values,
	gp middlewares.Processor,
) error {
	s := &SessionsShowSettings{}
	if err := parsedValues.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	if s.Session == "" {
		return errors.New("missing session id or number")
	}
	store, err := openStoreFromValues(ctx, parsedValues)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := resolveSession(store, s.Session)
	if err != nil {
		return err
	}
	sess, err := store.Get(id)
	if err != nil {
		return err
	}
	return addRows(ctx, gp, messageRows(sess))
}

var _ cmds.GlazeCommand = &SessionsShowCommand{}

func messageRows(sess chatstore.Session) []types.Row {
	rows := make([]types.Row, 0, len(sess.Messages))
	for i, m := range sess.Messages {
		rows = append(rows, types.NewRow(
			types.MRP("index", i),
			types.MRP("role", string(m.Role)),
			types.MRP("content", m.Content),
		))
	}
	return rows
}

type SessionsExportCommand struct {
	*cmds.CommandDescription
}

func NewSessionsExportCommand() (*SessionsExportCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	storeSection, err := chatstore.NewSection(config.DefaultStoreDir())
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"export",
		cmds.WithShort("Export every stored message, one row per message"),
		cmds.WithLong("Export every stored chat, most recent first. Use --output json or yaml for a machine readable dump."),
		cmds.WithSections(glazedSection, commandSettingsSection, storeSection),
	)
	return &SessionsExportCommand{CommandDescription: desc}, nil
}

func (c *SessionsExportCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedValues *values.Values,
	gp middlewares.Processor,
) error {
	store, err := openStoreFromValues(ctx, parsedValues)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	all := store.LoadAll(ctx)
	sessions := make([]chatstore.Session, 0, len(all))
	for _, sess := range all {
		sessions = append(sessions, sess)
	}
	return addRows(ctx, gp, exportRows(sessions))
}

var _ cmds.GlazeCommand = &SessionsExportCommand{}

// exportRows flattens sessions into message rows, most recent session first.
// Sessions without messages are skipped, as they are never persisted.
func exportRows(sessions []chatstore.Session) []types.Row {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Timestamp != sessions[j].Timestamp {
			return sessions[i].Timestamp > sessions[j].Timestamp
		}
		return sessions[i].ID < sessions[j].ID
	})
	var rows []types.Row
	for _, sess := range sessions {
		for i, m := range sess.Messages {
			rows = append(rows, types.NewRow(
				types.MRP("session_id", sess.ID),
				types.MRP("title", sess.Title),
				types.MRP("timestamp", sess.Timestamp),
				types.MRP("index", i),
				types.MRP("role", string(m.Role)),
				types.MRP("content", m.Content),
			))
		}
	}
	return rows
}

// resolveSession accepts a session id or a 1-based position in List.
func resolveSession(store *chatstore.Store, ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		list := store.List()
		if n < 1 || n > len(list) {
			return "", errors.Errorf("no chat number %d", n)
		}
		return list[n-1].ID, nil
	}
	return ref, nil
}
