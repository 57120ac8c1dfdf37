package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/netauto/core/internal/logging"
)

// SSHDialer is the production Dialer: a real TCP connection upgraded to an
// authenticated SSH session with a PTY-backed shell channel.
type SSHDialer struct {
	// ConnectTimeout bounds the TCP dial and SSH handshake. Defaults to
	// 10s when zero.
	ConnectTimeout time.Duration

	// KnownHostsFile enables StrictKnownHosts/AcceptNew verification
	// against a known_hosts-formatted file. Required by SecureDefault and
	// Balanced; Permissive ignores it.
	KnownHostsFile string
}

// Dial implements Dialer.
func (d *SSHDialer) Dial(ctx context.Context, addr Address, auth Auth, security Profile) (Shell, error) {
	logger := logging.FromContext(ctx)

	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hostKeyCallback, err := d.hostKeyCallback(security)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            auth.Username,
		Auth:            d.authMethods(auth, security),
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}
	security.apply(cfg)

	address := fmt.Sprintf("%s:%d", addr.Host, addr.Port)
	logger.Debug().Str("addr", address).Str("profile", security.Name).Msg("dialing ssh")

	client, err := dialContext(ctx, address, cfg)
	if err != nil {
		if strings.Contains(err.Error(), "auth") || strings.Contains(err.Error(), "permission denied") {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		if strings.Contains(err.Error(), "host key") {
			return nil, fmt.Errorf("%w: %v", ErrHostKeyRejected, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	shell, err := newPTYShell(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: opening shell: %v", ErrConnectFailed, err)
	}
	return shell, nil
}

// dialContext performs a context-aware TCP dial and an SSH handshake
// bounded by cfg.Timeout, then ties the client's lifetime to ctx: the
// client is closed once ctx is done.
func dialContext(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp: %w", err)
	}

	if cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(c, chans, reqs)
	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()
	return client, nil
}

// authMethods builds auth methods in priority order: explicit private key
// (or, only when no explicit key is configured, ssh-agent), then password
// (with keyboard-interactive fallback).
func (d *SSHDialer) authMethods(auth Auth, security Profile) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	hasExplicitKey := auth.PrivateKey != "" || auth.PrivateKeyFile != ""
	if !hasExplicitKey {
		if agentAuth := trySSHAgent(); agentAuth != nil {
			methods = append(methods, agentAuth)
		}
	} else if signer := loadPrivateKey(auth); signer != nil {
		if security.Name == "legacy_compatible" {
			signer = wrapLegacySigner(signer)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if auth.Password != "" {
		methods = append(methods, ssh.Password(auth.Password))
		methods = append(methods, ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = auth.Password
			}
			return answers, nil
		}))
	}

	return methods
}

func loadPrivateKey(auth Auth) ssh.Signer {
	var keyData []byte
	var err error

	switch {
	case auth.PrivateKey != "":
		keyData = []byte(auth.PrivateKey)
	case auth.PrivateKeyFile != "":
		path := auth.PrivateKeyFile
		if strings.HasPrefix(path, "~/") {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return nil
			}
			path = home + path[1:]
		}
		keyData, err = os.ReadFile(path)
		if err != nil {
			return nil
		}
	default:
		return nil
	}

	if auth.PrivateKeyPassphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(auth.PrivateKeyPassphrase))
		if err != nil {
			return nil
		}
		return signer
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil
	}
	return signer
}

func trySSHAgent() ssh.AuthMethod {
	socketPath := os.Getenv("SSH_AUTH_SOCK")
	if socketPath == "" {
		return nil
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil
	}
	client := agent.NewClient(conn)
	return ssh.PublicKeysCallback(client.Signers)
}
