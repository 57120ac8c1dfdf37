package pool

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/netauto/core/transport"
)

// fakeShell is an in-memory transport.Shell driven by a scripted device
// goroutine, mirroring the fake used by the session package's own tests.
type fakeShell struct {
	toDeviceW   *io.PipeWriter
	fromDeviceR *io.PipeReader
	fromDeviceW *io.PipeWriter
}

func newFakeShell(initial string, script func(received string) (response string, ok bool)) *fakeShell {
	toDeviceR, toDeviceW := io.Pipe()
	fromDeviceR, fromDeviceW := io.Pipe()

	fs := &fakeShell{toDeviceW: toDeviceW, fromDeviceR: fromDeviceR, fromDeviceW: fromDeviceW}

	go func() {
		if initial != "" {
			if _, err := fromDeviceW.Write([]byte(initial)); err != nil {
				return
			}
		}
		scanner := bufio.NewScanner(toDeviceR)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if resp, ok := script(line); ok {
				if _, err := fromDeviceW.Write([]byte(resp)); err != nil {
					return
				}
			}
		}
		fromDeviceW.Close()
	}()

	return fs
}

func (f *fakeShell) Read(p []byte) (int, error)  { return f.fromDeviceR.Read(p) }
func (f *fakeShell) Write(p []byte) (int, error) { return f.toDeviceW.Write(p) }
func (f *fakeShell) Close() error {
	f.toDeviceW.Close()
	return nil
}
func (f *fakeShell) disconnect() { f.fromDeviceW.Close() }

// fakeDialer hands out scripted fakeShells keyed by address, counting
// dial attempts and optionally failing the first N attempts per key.
type fakeDialer struct {
	mu         sync.Mutex
	newShell   func(addr transport.Address) *fakeShell
	failFirstN int
	attempts   map[string]int
	dialed     []transport.Address
}

func newFakeDialer(newShell func(addr transport.Address) *fakeShell) *fakeDialer {
	return &fakeDialer{newShell: newShell, attempts: make(map[string]int)}
}

func (d *fakeDialer) Dial(ctx context.Context, addr transport.Address, auth transport.Auth, security transport.Profile) (transport.Shell, error) {
	d.mu.Lock()
	key := addr.Host
	d.attempts[key]++
	n := d.attempts[key]
	d.dialed = append(d.dialed, addr)
	d.mu.Unlock()

	if n <= d.failFirstN {
		return nil, errors.New("fake dial refused")
	}
	return d.newShell(addr), nil
}

func (d *fakeDialer) dialCount(host string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[host]
}
