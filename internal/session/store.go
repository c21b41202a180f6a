package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xjasper/relaybot/internal/log"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// AcquireTimeout bounds how long WithSession waits for exclusive access
	// to a conversation. Zero waits until context cancellation.
	AcquireTimeout time.Duration

	// IdleTTL is the idle threshold for eviction. Sessions whose last
	// activity is older than this are reclaimed by Sweep. Zero disables
	// eviction.
	IdleTTL time.Duration

	// Logger receives eviction and contention diagnostics. Defaults to a
	// no-op logger when nil.
	Logger log.Logger
}

// Store owns all sessions, keyed by conversation. See the package
// documentation for the locking model.
type Store struct {
	acquireTimeout time.Duration
	idleTTL        time.Duration
	logger         log.Logger

	mu      sync.Mutex // guards entries and entry.pins
	entries map[Key]*entry
}

// entry pairs a session with its exclusive-access semaphore.
//
// sem has capacity 1: holding the token means holding the session. pins
// counts in-flight plus waiting acquirers and is guarded by Store.mu; a
// pinned entry is never evicted.
type entry struct {
	sem     chan struct{}
	pins    int
	session *Session
}

// NewStore creates an empty session store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		acquireTimeout: cfg.AcquireTimeout,
		idleTTL:        cfg.IdleTTL,
		logger:         logger,
		entries:        make(map[Key]*entry),
	}
}

// WithSession runs fn with exclusive access to the session for key, creating
// the session if this is the first command for the conversation. Access is
// released when fn returns, including on error; fn's error propagates
// unchanged. At most one fn runs against a given key at any time, while
// different keys never block one another.
//
// Returns ErrBusy when access cannot be acquired within the configured
// timeout, or the context error when ctx is done first. In either case no
// session state was touched.
func (s *Store) WithSession(ctx context.Context, key Key, fn func(*Session) error) error {
	e := s.pin(key)
	defer s.unpin(e)

	if err := s.acquire(ctx, e); err != nil {
		return err
	}
	defer func() { <-e.sem }()

	return fn(e.session)
}

// pin looks up or atomically creates the entry for key and marks it in use.
// Two concurrent first accesses observe the same session: creation happens
// under the store mutex exactly once.
func (s *Store) pin(key Key) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{
			sem:     make(chan struct{}, 1),
			session: newSession(time.Now()),
		}
		s.entries[key] = e
		s.logger.Debug("session created",
			"user_id", key.UserID,
			"channel_id", key.ChannelID,
			"sessions", len(s.entries),
		)
	}
	e.pins++
	return e
}

func (s *Store) unpin(e *entry) {
	s.mu.Lock()
	e.pins--
	s.mu.Unlock()
}

// acquire takes the entry semaphore, bounded by the store's acquire timeout
// and the caller's context.
func (s *Store) acquire(ctx context.Context, e *entry) error {
	// Fast path: uncontended.
	select {
	case e.sem <- struct{}{}:
		return nil
	default:
	}

	if s.acquireTimeout <= 0 {
		select {
		case e.sem <- struct{}{}:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("acquiring session: %w", ctx.Err())
		}
	}

	timer := time.NewTimer(s.acquireTimeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquiring session: %w", ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: still handling a previous command", ErrBusy)
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts sessions idle longer than the configured TTL and reports how
// many were removed. Entries with in-flight or waiting access are pinned and
// skipped, so a sweep never races WithSession for the same key.
func (s *Store) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range s.entries {
		if e.pins > 0 {
			continue
		}
		if now.Sub(e.session.lastActivity) > s.idleTTL {
			delete(s.entries, key)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("idle sessions evicted",
			"removed", removed,
			"remaining", len(s.entries),
		)
	}
	return removed
}

// Run sweeps on the given interval until ctx is canceled. Intended to be
// started as a goroutine by the serving command.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.idleTTL <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
