package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/netauto/core/record"
	"github.com/netauto/core/session"
	"github.com/netauto/core/transport"
)

// ConnectionKey identifies a pooled session. Password is deliberately not
// part of the key: only one pooled connection exists per
// (username, host, port, sys_context), regardless of how many distinct
// passwords a caller has supplied for it over time.
type ConnectionKey struct {
	Username   string
	Host       string
	Port       int
	SysContext string
}

func (k ConnectionKey) String() string {
	return fmt.Sprintf("%s@%s:%d#%s", k.Username, k.Host, k.Port, k.SysContext)
}

// PooledSession is a cached, live connection: its job sender, when it was
// last used, and the security profile it was dialed with.
type PooledSession struct {
	ID              string
	Key             ConnectionKey
	Actor           *session.Actor
	SecurityProfile transport.Profile
	Recorder        *record.Recorder

	mu           sync.Mutex
	lastActivity time.Time
	release      func()
}

// LastActivity reports the last time this session was handed out by the
// manager or completed a job submitted through Submit without error.
func (p *PooledSession) LastActivity() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActivity
}

func (p *PooledSession) touch() {
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()
}

// Sender returns the job-submission handle callers use to run commands
// against this session.
func (p *PooledSession) Sender() JobSender { return p.Actor }

// Submit runs cmd on the session's actor and, when the job returns no
// error, refreshes the session's last-activity time.
func (p *PooledSession) Submit(ctx context.Context, cmd session.Command) (session.Output, error) {
	out, err := p.Actor.Submit(ctx, cmd)
	if err == nil {
		p.touch()
	}
	return out, err
}
