package chatstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession = errors.New("chatstore: unknown session")
	ErrNoMessages     = errors.New("chatstore: session has no messages")
)

// Store is the authoritative collection of sessions. Every mutation is
// written through to the backend as a full snapshot.
type Store struct {
	backend Backend
	key     string
	now     func() time.Time

	mu       sync.RWMutex
	order    []string
	sessions map[string]*Session

	// saveMu keeps backend writes in the order their snapshots were taken.
	saveMu sync.Mutex
}

type StoreOption func(*Store)

func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open builds a Store over backend and loads the persisted collection. A
// missing or unreadable collection yields an empty store.
func Open(ctx context.Context, backend Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, errors.New("chatstore: backend is nil")
	}
	s := &Store{
		backend:  backend,
		key:      StorageKey,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reload(ctx)
	return s, nil
}

func (s *Store) reload(ctx context.Context) {
	order, sessions := s.load(ctx)
	s.mu.Lock()
	s.order = order
	s.sessions = sessions
	s.mu.Unlock()
}

func (s *Store) load(ctx context.Context) ([]string, map[string]*Session) {
	empty := func() ([]string, map[string]*Session) { return []string{}, map[string]*Session{} }
	data, ok, err := s.backend.Load(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("component", "chatstore").Msg("loading sessions failed, starting empty")
		return empty()
	}
	if !ok || len(data) == 0 {
		return empty()
	}
	order, sessions, err := decodeSessions(data)
	if err != nil {
		log.Warn().Err(err).Str("component", "chatstore").Msg("persisted sessions are corrupted, starting empty")
		return empty()
	}
	return order, sessions
}

// LoadAll re-reads the backend and returns a copy of every session.
func (s *Store) LoadAll(ctx context.Context) map[string]Session {
	s.reload(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Session, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = sess.clone()
	}
	return out
}

// Create registers a new session titled after firstMessage. Nothing is
// persisted until the first Append.
func (s *Store) Create(firstMessage string) string {
	id := NewSessionID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &Session{
		ID:        id,
		Title:     DeriveTitle(firstMessage),
		Messages:  []Message{},
		Timestamp: s.now().UnixMilli(),
	}
	s.order = append(s.order, id)
	return id
}

// Append adds message to the session, refreshes its activity timestamp and
// persists. Persistence failures are returned after the in-memory change has
// been applied.
func (s *Store) Append(ctx context.Context, id string, message Message) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrUnknownSession, id)
	}
	sess.Messages = append(sess.Messages, message)
	sess.Timestamp = s.now().UnixMilli()
	return s.commitLocked(ctx)
}

// PatchLast replaces the content of the most recent message. The activity
// timestamp is left untouched.
func (s *Store) PatchLast(ctx context.Context, id string, content string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrUnknownSession, id)
	}
	if len(sess.Messages) == 0 {
		s.mu.Unlock()
		return errors.Wrap(ErrNoMessages, id)
	}
	sess.Messages[len(sess.Messages)-1].Content = content
	return s.commitLocked(ctx)
}

// Delete removes the session. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return s.commitLocked(ctx)
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, errors.Wrap(ErrUnknownSession, id)
	}
	return sess.clone(), nil
}

// List returns summaries of every session holding at least one message, most
// recent first. Ties keep insertion order.
func (s *Store) List() []Summary {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		sess := s.sessions[id]
		if sess == nil || len(sess.Messages) == 0 {
			continue
		}
		out = append(out, sess.summary())
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity > out[j].LastActivity
	})
	return out
}

func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// commitLocked snapshots the collection and writes it out. It must be called
// with mu held and releases it.
func (s *Store) commitLocked(ctx context.Context) error {
	data, err := encodeSessions(s.order, s.sessions)
	s.saveMu.Lock()
	s.mu.Unlock()
	defer s.saveMu.Unlock()
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return errors.Wrap(err, "chatstore: persist sessions")
	}
	return nil
}
