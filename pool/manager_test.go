package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/netauto/core/fsm"
	"github.com/netauto/core/session"
	"github.com/netauto/core/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleStateHandler(t *testing.T) HandlerFactory {
	t.Helper()
	return func() (*fsm.Handler, error) {
		return fsm.New(
			[]fsm.StateSpec{{Name: "ready", Prompts: []string{`R1>\s*$`}}},
			nil,
			"",
		)
	}
}

func echoShell(addr transport.Address) *fakeShell {
	return newFakeShell("R1>\r\n", func(received string) (string, bool) {
		return received + "\r\nR1>\r\n", true
	})
}

func testAuth() transport.Auth { return transport.Auth{Password: "secret"} }

func TestManager_GetDialsAndReusesSession(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	ctx := context.Background()
	sender1, err := m.Get(ctx, "admin", "r1.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	sender2, err := m.Get(ctx, "admin", "r1.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	assert.Same(t, sender1, sender2)
	assert.Equal(t, 1, dialer.dialCount("r1.example"))
}

func TestManager_ConcurrentGetsOnSameKeyCoalesceToOneDial(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	ctx := context.Background()
	const n = 20
	var wg sync.WaitGroup
	results := make([]JobSender, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get(ctx, "admin", "dup.example", 22, testAuth(), "", singleStateHandler(t))
			if err == nil {
				results[i] = s
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, dialer.dialCount("dup.example"))
	for i := 1; i < n; i++ {
		if results[0] != nil && results[i] != nil {
			assert.Same(t, results[0], results[i])
		}
	}
}

func TestManager_DifferentKeysGetDistinctSessions(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	ctx := context.Background()
	a, err := m.Get(ctx, "admin", "host-a", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)
	b, err := m.Get(ctx, "admin", "host-b", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, len(m.sessions))
}

func TestManager_IdleSessionIsEvictedBySweep(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithIdleTimeout(10*time.Millisecond), WithSweepInterval(5*time.Millisecond))
	defer m.Shutdown()

	ctx := context.Background()
	_, err := m.Get(ctx, "admin", "idle.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, ok := m.sessions[ConnectionKey{Username: "admin", Host: "idle.example", Port: 22}]
		return !ok
	}, time.Second, time.Millisecond)
}

func TestManager_DiscardRemovesSessionAfterActorDisconnect(t *testing.T) {
	var shell *fakeShell
	dialer := newFakeDialer(func(addr transport.Address) *fakeShell {
		shell = echoShell(addr)
		return shell
	})
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	ctx := context.Background()
	sender, err := m.Get(ctx, "admin", "drop.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	// Bootstraps the actor's FSM state. The actor reads the pump only while
	// serving a job, so the disconnect below is noticed by the next Submit.
	_, err = sender.Submit(ctx, session.Command{Mode: "ready", Command: "show version"})
	require.NoError(t, err)

	shell.disconnect()

	_, err = sender.Submit(ctx, session.Command{Mode: "ready", Command: "show version"})
	assert.Error(t, err)

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, ok := m.sessions[ConnectionKey{Username: "admin", Host: "drop.example", Port: 22}]
		return !ok
	}, time.Second, time.Millisecond)
}

func TestManager_DialFailureGivesUpImmediatelyWithNoRetry(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	dialer.failFirstN = 99
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	_, err := m.Get(context.Background(), "admin", "down.example", 22, testAuth(), "", singleStateHandler(t))
	require.Error(t, err)
	assert.Equal(t, 1, dialer.dialCount("down.example"))
}

func TestManager_RetryStrategyRetriesThenSucceeds(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	dialer.failFirstN = 2
	m := NewManager(dialer, WithSweepInterval(time.Hour), WithRetryStrategy(NewLinearBackoff(time.Millisecond, 5)))
	defer m.Shutdown()

	_, err := m.Get(context.Background(), "admin", "flaky.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)
	assert.Equal(t, 3, dialer.dialCount("flaky.example"))
}

func TestManager_ShutdownRejectsFurtherGets(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithSweepInterval(time.Hour))

	_, err := m.Get(context.Background(), "admin", "closing.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	m.Shutdown()

	_, err = m.Get(context.Background(), "admin", "after-close.example", 22, testAuth(), "", singleStateHandler(t))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_DiscardRejectsFutureSubmitsWithChannelDisconnectNotClosed(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	key := ConnectionKey{Username: "admin", Host: "evicted.example", Port: 22}
	sender, err := m.Get(context.Background(), key.Username, key.Host, key.Port, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	// Simulates the janitor sweeping this session for being idle: the
	// caller's command never actually failed, so it gets ErrChannelDisconnect
	// rather than the ErrClosed a deliberate Shutdown would produce.
	m.Discard(key)

	_, err = sender.Submit(context.Background(), session.Command{Mode: "ready", Command: "show version"})
	assert.ErrorIs(t, err, session.ErrChannelDisconnect)
}

func TestManager_JobSenderSubmitsCommands(t *testing.T) {
	dialer := newFakeDialer(echoShell)
	m := NewManager(dialer, WithSweepInterval(time.Hour))
	defer m.Shutdown()

	sender, err := m.Get(context.Background(), "admin", "cmd.example", 22, testAuth(), "", singleStateHandler(t))
	require.NoError(t, err)

	out, err := sender.Submit(context.Background(), session.Command{Mode: "ready", Command: "show version"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Contains(t, out.All, "show version")
}
