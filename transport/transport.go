// Package transport implements the SSH transport the rest of the library
// treats as an external collaborator: authenticated session establishment,
// a PTY-backed interactive shell channel, and security-profile selection.
package transport

import (
	"context"
	"io"
)

// Shell is a bidirectional byte stream bound to a PTY-backed interactive
// shell on a remote device. Writes are commands (including the trailing
// newline); reads are whatever the device writes back, including echoed
// commands and prompts. Close releases the underlying channel and
// connection.
type Shell interface {
	io.Reader
	io.Writer
	Close() error
}

// Dialer establishes an authenticated shell on a device. Implementations
// must detect abrupt disconnects on subsequent Shell reads/writes rather
// than at dial time.
type Dialer interface {
	Dial(ctx context.Context, addr Address, auth Auth, security Profile) (Shell, error)
}

// Address identifies the device to connect to.
type Address struct {
	Host string
	Port int
}

// Auth carries the credentials used to authenticate the SSH session.
// Password-based and key-based auth may both be populated; the dialer
// tries them in a fixed priority order (private key, agent, password), and
// uses the agent only when no private key is configured.
type Auth struct {
	Username             string
	Password             string
	PrivateKey           string
	PrivateKeyFile       string
	PrivateKeyPassphrase string
}
