package chatstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now int64
}

func (c *stepClock) Now() time.Time {
	c.now++
	return time.UnixMilli(c.now)
}

func (c *stepClock) Freeze() func() time.Time {
	return func() time.Time { return time.UnixMilli(c.now) }
}

func openMemoryStore(t *testing.T, backend Backend, opts ...StoreOption) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend, opts...)
	require.NoError(t, err)
	return s
}

func userMsg(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func botMsg(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func TestDeriveTitle(t *testing.T) {
	require.Equal(t, "Pasta tips", DeriveTitle("Pasta tips"))
	exact := strings.Repeat("a", 30)
	require.Equal(t, exact, DeriveTitle(exact))
	require.Equal(t, "How do I make a fluffy omelett...", DeriveTitle("How do I make a fluffy omelette with cheese?"))
	require.Equal(t, strings.Repeat("é", 30)+"...", DeriveTitle(strings.Repeat("é", 31)))
}

func TestStore_CreateIsNotPersistedUntilAppend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := openMemoryStore(t, backend)

	id := s.Create("How long to boil an egg?")
	require.True(t, strings.HasPrefix(id, "chat_"))
	require.Empty(t, s.List())
	_, ok, err := backend.Load(ctx, StorageKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Append(ctx, id, userMsg("How long to boil an egg?")))
	list := s.List()
	require.Len(t, list, 1)
	require.Equal(t, "How long to boil an egg?", list[0].Title)

	reopened := openMemoryStore(t, backend)
	sess, err := reopened.Get(id)
	require.NoError(t, err)
	require.Equal(t, []Message{userMsg("How long to boil an egg?")}, sess.Messages)
}

func TestStore_AppendUnknownSession(t *testing.T) {
	s := openMemoryStore(t, NewMemoryBackend())
	err := s.Append(context.Background(), "chat_missing", userMsg("hi"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownSession))
}

func TestStore_PatchLast(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{}
	s := openMemoryStore(t, NewMemoryBackend(), WithClock(clock.Now))

	id := s.Create("salt?")
	err := s.PatchLast(ctx, id, "x")
	require.True(t, errors.Is(err, ErrNoMessages))

	require.NoError(t, s.Append(ctx, id, userMsg("salt?")))
	require.NoError(t, s.Append(ctx, id, botMsg("Add salt to taste")))
	before, err := s.Get(id)
	require.NoError(t, err)

	require.NoError(t, s.PatchLast(ctx, id, "Add "))
	after, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "Add ", after.Messages[1].Content)
	require.Equal(t, before.Timestamp, after.Timestamp)

	err = s.PatchLast(ctx, "chat_missing", "x")
	require.True(t, errors.Is(err, ErrUnknownSession))
}

func TestStore_ListOrdersByRecency(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{}
	s := openMemoryStore(t, NewMemoryBackend(), WithClock(clock.Now))

	a := s.Create("A")
	require.NoError(t, s.Append(ctx, a, userMsg("A")))
	b := s.Create("B")
	require.NoError(t, s.Append(ctx, b, userMsg("B")))
	c := s.Create("C")
	require.NoError(t, s.Append(ctx, c, userMsg("C")))
	require.NoError(t, s.Append(ctx, b, botMsg("b reply")))

	var ids []string
	for _, sum := range s.List() {
		ids = append(ids, sum.ID)
	}
	require.Equal(t, []string{b, c, a}, ids)
}

func TestStore_ListTiesKeepInsertionOrderAcrossReload(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	clock := &stepClock{now: 1000}
	s := openMemoryStore(t, backend, WithClock(clock.Freeze()))

	var want []string
	for _, title := range []string{"one", "two", "three", "four"} {
		id := s.Create(title)
		require.NoError(t, s.Append(ctx, id, userMsg(title)))
		want = append(want, id)
	}

	reopened := openMemoryStore(t, backend)
	var got []string
	for _, sum := range reopened.List() {
		got = append(got, sum.ID)
	}
	require.Equal(t, want, got)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := openMemoryStore(t, backend)

	id := s.Create("soup")
	require.NoError(t, s.Append(ctx, id, userMsg("soup")))
	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))
	require.Empty(t, s.List())

	_, err := s.Get(id)
	require.True(t, errors.Is(err, ErrUnknownSession))
	require.Empty(t, openMemoryStore(t, backend).List())
}

func TestStore_TitleSurvivesLaterMessages(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t, NewMemoryBackend())
	id := s.Create("first question")
	require.NoError(t, s.Append(ctx, id, userMsg("first question")))
	require.NoError(t, s.Append(ctx, id, botMsg("answer")))
	require.NoError(t, s.Append(ctx, id, userMsg("a completely different follow up question")))

	sess, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "first question", sess.Title)
}

func TestStore_CorruptedCollectionLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	for _, payload := range []string{"{not json", "null", "[1,2]", `{"chat_x":{"id":"chat_x","messages":[{"role":"system","content":"x"}]}}`} {
		backend := NewMemoryBackend()
		require.NoError(t, backend.Save(ctx, StorageKey, []byte(payload)))
		s := openMemoryStore(t, backend)
		require.Empty(t, s.List(), payload)
		require.Empty(t, s.LoadAll(ctx), payload)
	}
}

type failingBackend struct {
	*MemoryBackend
	saveErr error
}

func (b *failingBackend) Save(ctx context.Context, key string, data []byte) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.MemoryBackend.Save(ctx, key, data)
}

func TestStore_PersistFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(), saveErr: errors.New("disk full")}
	s := openMemoryStore(t, backend)

	id := s.Create("bread")
	err := s.Append(ctx, id, userMsg("bread"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnknownSession))

	sess, err := s.Get(id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
}

func TestStore_LoadAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t, NewMemoryBackend())
	id := s.Create("rice")
	require.NoError(t, s.Append(ctx, id, userMsg("rice")))

	all := s.LoadAll(ctx)
	require.Len(t, all, 1)
	sess := all[id]
	sess.Messages[0].Content = "mutated"

	fresh, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "rice", fresh.Messages[0].Content)
}
