package session

import (
	"bufio"
	"io"
	"strings"
)

// fakeShell is an in-memory transport.Shell backed by a pair of pipes and a
// scripted device goroutine, used to exercise SessionActor without a real
// SSH connection.
type fakeShell struct {
	toDeviceW  *io.PipeWriter
	fromDeviceR *io.PipeReader
	fromDeviceW *io.PipeWriter
}

// newFakeShell starts a device goroutine that first emits initial (a login
// banner/prompt), then for each newline-terminated line written by the
// actor, looks it up via script and writes back whatever script returns.
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

// disconnect simulates the remote end dropping the connection.
func (f *fakeShell) disconnect() {
	f.fromDeviceW.Close()
}
