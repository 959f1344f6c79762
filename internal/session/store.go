// Package session keeps per-conversation history in memory.
//
// Sessions are keyed by "channel:chat_id", created on first message, and
// evicted after an inactivity timeout by a periodic sweep. Nothing is
// persisted: a restarted gateway starts with fresh conversations.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/doclantern/doclantern/internal/schema"
)

// Session holds the conversation history for one chat.
type Session struct {
	Key string

	mu         sync.Mutex
	messages   schema.Messages
	lastActive time.Time
}

// AddExchange appends one user/assistant turn and bumps the activity clock.
func (s *Session) AddExchange(user, assistant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages.AddUser(user)
	s.messages.AddAssistant(assistant)
	s.lastActive = time.Now()
}

// History returns the last window messages (all when window <= 0).
func (s *Session) History(window int) schema.Messages {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Tail(window)
}

// Clear drops all history, keeping the session alive.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = schema.NewMessages()
	s.lastActive = time.Now()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}

// Store owns all live sessions and their eviction lifecycle.
type Store struct {
	sessions    sync.Map // key → *Session
	idleTimeout time.Duration
	sweeper     *cron.Cron
}

// NewStore creates a Store. idleTimeout defaults to 30 minutes when
// non-positive.
func NewStore(idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Store{
		idleTimeout: idleTimeout,
		sweeper:     cron.New(),
	}
}

// GetOrCreate returns the session for key, creating it on first use.
func (st *Store) GetOrCreate(key string) *Session {
	if v, ok := st.sessions.Load(key); ok {
		return v.(*Session)
	}
	s := &Session{
		Key:        key,
		messages:   schema.NewMessages(),
		lastActive: time.Now(),
	}
	actual, _ := st.sessions.LoadOrStore(key, s)
	return actual.(*Session)
}

// Invalidate removes a session entirely (used by /new).
func (st *Store) Invalidate(key string) {
	st.sessions.Delete(key)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	n := 0
	st.sessions.Range(func(any, any) bool { n++; return true })
	return n
}

// Start arms the eviction sweep and blocks until ctx is cancelled.
func (st *Store) Start(ctx context.Context) error {
	if _, err := st.sweeper.AddFunc("@every 1m", st.Sweep); err != nil {
		return err
	}
	st.sweeper.Start()
	slog.Info("session store started", "idleTimeout", st.idleTimeout)

	<-ctx.Done()
	<-st.sweeper.Stop().Done()
	slog.Info("session store stopped")
	return ctx.Err()
}

// Sweep evicts every session idle for longer than the timeout.
func (st *Store) Sweep() {
	now := time.Now()
	st.sessions.Range(func(k, v any) bool {
		s := v.(*Session)
		if s.idleSince(now) > st.idleTimeout {
			st.sessions.Delete(k)
			slog.Debug("session evicted", "key", s.Key)
		}
		return true
	})
}
