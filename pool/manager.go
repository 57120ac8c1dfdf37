// Package pool implements the process-wide connection manager: a registry
// of live SessionActors keyed by (user, host, port, sys), idle eviction,
// a global concurrency cap, and connect coalescing for concurrent lookups
// of the same key.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/netauto/core/fsm"
	"github.com/netauto/core/internal/logging"
	"github.com/netauto/core/record"
	"github.com/netauto/core/session"
	"github.com/netauto/core/transport"
)

// JobSender is the handle a caller uses to run commands against a pooled
// session. session.Actor satisfies it.
type JobSender interface {
	Submit(ctx context.Context, cmd session.Command) (session.Output, error)
}

// HandlerFactory builds a fresh fsm.Handler for a newly dialed connection,
// typically a closure over a catalog template.
type HandlerFactory func() (*fsm.Handler, error)

const (
	defaultMaxSessions   = 100
	defaultIdleTimeout   = 5 * time.Minute
	defaultSweepInterval = 30 * time.Second
)

// Manager is the process-wide connection registry.
type Manager struct {
	dialer transport.Dialer
	retry  RetryStrategy

	idleTimeout   time.Duration
	sweepInterval time.Duration

	sem *semaphore.Weighted
	sf  singleflight.Group

	mu       sync.Mutex
	sessions map[ConnectionKey]*PooledSession
	closed   bool

	rootCtx context.Context
	cancel  context.CancelFunc
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

func WithMaxSessions(n int64) ManagerOption {
	return func(m *Manager) { m.sem = semaphore.NewWeighted(n) }
}

func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTimeout = d }
}

func WithSweepInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.sweepInterval = d }
}

func WithRetryStrategy(r RetryStrategy) ManagerOption {
	return func(m *Manager) { m.retry = r }
}

// NewManager builds a Manager dialing through d and starts its idle
// eviction janitor.
func NewManager(d transport.Dialer, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		dialer:        d,
		retry:         NoRetry{},
		idleTimeout:   defaultIdleTimeout,
		sweepInterval: defaultSweepInterval,
		sem:           semaphore.NewWeighted(defaultMaxSessions),
		sessions:      make(map[ConnectionKey]*PooledSession),
		rootCtx:       ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor()
	return m
}

// Get returns a job sender for (username, host, port, sys), reusing a
// healthy pooled session or dialing a new one with the secure_default
// security profile and no recording.
func (m *Manager) Get(ctx context.Context, username, host string, port int, auth transport.Auth, sys string, handler HandlerFactory) (JobSender, error) {
	return m.GetWithSecurity(ctx, username, host, port, auth, sys, handler, transport.SecureDefault())
}

// GetWithSecurity is Get with an explicit security profile.
func (m *Manager) GetWithSecurity(ctx context.Context, username, host string, port int, auth transport.Auth, sys string, handler HandlerFactory, security transport.Profile) (JobSender, error) {
	ps, err := m.getOrConnect(ctx, ConnectionKey{Username: username, Host: host, Port: port, SysContext: sys}, auth, handler, security, record.Off)
	if err != nil {
		return nil, err
	}
	return ps, nil
}

// GetWithRecording is Get but also returns the session's recorder
// alongside the sender. A session dialed by this call gets a recorder at
// the given verbosity; a session already in the pool is returned with the
// recorder it was created with, and level is not applied to it.
func (m *Manager) GetWithRecording(ctx context.Context, username, host string, port int, auth transport.Auth, sys string, handler HandlerFactory, level record.Verbosity) (JobSender, *record.Recorder, error) {
	ps, err := m.getOrConnect(ctx, ConnectionKey{Username: username, Host: host, Port: port, SysContext: sys}, auth, handler, transport.SecureDefault(), level)
	if err != nil {
		return nil, nil, err
	}
	return ps, ps.Recorder, nil
}

func (m *Manager) getOrConnect(ctx context.Context, key ConnectionKey, auth transport.Auth, handler HandlerFactory, security transport.Profile, level record.Verbosity) (*PooledSession, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if ps, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		ps.touch()
		return ps, nil
	}
	m.mu.Unlock()

	v, err, _ := m.sf.Do(key.String(), func() (any, error) {
		// Re-check after winning the coalesced call: another caller may
		// have installed the session while we waited on the lock above.
		m.mu.Lock()
		if ps, ok := m.sessions[key]; ok {
			m.mu.Unlock()
			return ps, nil
		}
		m.mu.Unlock()
		return m.connect(ctx, key, auth, handler, security, level)
	})
	if err != nil {
		return nil, err
	}
	ps := v.(*PooledSession)
	ps.touch()
	return ps, nil
}

func (m *Manager) connect(ctx context.Context, key ConnectionKey, auth transport.Auth, handler HandlerFactory, security transport.Profile, level record.Verbosity) (*PooledSession, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var semReleased bool
	releaseSem := func() {
		if !semReleased {
			semReleased = true
			m.sem.Release(1)
		}
	}

	shell, err := m.dialWithRetry(ctx, key, auth, security)
	if err != nil {
		releaseSem()
		return nil, err
	}

	h, err := handler()
	if err != nil {
		shell.Close()
		releaseSem()
		return nil, fmt.Errorf("%w: %v", ErrHandlerFactory, err)
	}

	rec := record.New(level)
	runCtx, cancel := context.WithCancel(m.rootCtx)
	actor := session.NewActor(shell, h, session.WithRecorder(rec), session.WithSysContext(key.SysContext))
	go actor.Run(runCtx)

	ps := &PooledSession{
		ID:              uuid.NewString(),
		Key:             key,
		Actor:           actor,
		SecurityProfile: security,
		Recorder:        rec,
		release: func() {
			cancel()
			releaseSem()
		},
	}
	ps.touch()

	m.mu.Lock()
	m.sessions[key] = ps
	m.mu.Unlock()

	go m.watch(ps)

	return ps, nil
}

func (m *Manager) dialWithRetry(ctx context.Context, key ConnectionKey, auth transport.Auth, security transport.Profile) (transport.Shell, error) {
	addr := transport.Address{Host: key.Host, Port: key.Port}
	auth.Username = key.Username

	logger := logging.FromContext(ctx)
	for attempt := 0; ; attempt++ {
		shell, err := m.dialer.Dial(ctx, addr, auth, security)
		if err == nil {
			return shell, nil
		}
		delay, giveUp := m.retry.Next(attempt)
		if giveUp {
			return nil, err
		}
		logger.Warn().Str("key", key.String()).Int("attempt", attempt).Dur("delay", delay).Err(err).Msg("pool: connect attempt failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// watch removes a session from the registry once its actor stops serving
// jobs, whatever the reason (disconnect, timeout-poisoning, Close).
func (m *Manager) watch(ps *PooledSession) {
	<-ps.Actor.Done()
	m.evict(ps)
}

// Discard evicts the currently registered session at key, if any,
// immediately, without waiting for its queue to drain gracefully,
// rejecting any job still queued with ErrChannelDisconnect: used by idle
// eviction, where the caller's command never actually failed, the channel
// just went away under it. A session whose actor stops on a transport
// error is evicted through watch instead.
func (m *Manager) Discard(key ConnectionKey) {
	m.mu.Lock()
	ps, ok := m.sessions[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.evict(ps)
}

// evict tears down ps, removing it from the registry only if it is still
// the session currently registered under its key — a reconnect may already
// have installed a newer session there after ps's actor died, in which
// case the registry entry is left alone but ps's own resources (semaphore
// slot, queued jobs) are still released, since ps itself is going away
// either way.
func (m *Manager) evict(ps *PooledSession) {
	m.mu.Lock()
	if cur, ok := m.sessions[ps.Key]; ok && cur == ps {
		delete(m.sessions, ps.Key)
	}
	m.mu.Unlock()

	ps.Actor.CloseWithReason(session.ErrChannelDisconnect)
	ps.release()
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.rootCtx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTimeout)
	m.mu.Lock()
	var stale []ConnectionKey
	for key, ps := range m.sessions {
		if ps.LastActivity().Before(cutoff) {
			stale = append(stale, key)
		}
	}
	m.mu.Unlock()

	for _, key := range stale {
		m.Discard(key)
	}
}

// Shutdown stops the janitor, closes every pooled session, and rejects any
// future Get calls with ErrClosed.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*PooledSession, 0, len(m.sessions))
	for _, ps := range m.sessions {
		sessions = append(sessions, ps)
	}
	m.sessions = make(map[ConnectionKey]*PooledSession)
	m.mu.Unlock()

	m.cancel()
	for _, ps := range sessions {
		ps.Actor.Close()
	}
}
