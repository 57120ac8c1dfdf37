package transport

import (
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// ptyShell is a Shell backed by an ssh.Session with an interactive PTY and
// a running shell. It exposes raw stdin/stdout; prompt detection and the
// read loop live in the session package, not here.
type ptyShell struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func newPTYShell(client *ssh.Client) (*ptyShell, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 80, 40, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	return &ptyShell{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

func (s *ptyShell) Read(p []byte) (int, error)  { return s.stdout.Read(p) }
func (s *ptyShell) Write(p []byte) (int, error) { return s.stdin.Write(p) }

func (s *ptyShell) Close() error {
	err := s.session.Close()
	if closeErr := s.client.Close(); err == nil {
		err = closeErr
	}
	return err
}
