package transport

import (
	"fmt"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyCallback builds the ssh.HostKeyCallback implied by the security
// profile's HostKeyPolicy.
func (d *SSHDialer) hostKeyCallback(security Profile) (ssh.HostKeyCallback, error) {
	switch security.HostKeyPolicy {
	case Permissive:
		return ssh.InsecureIgnoreHostKey(), nil

	case StrictKnownHosts:
		if d.KnownHostsFile == "" {
			return nil, fmt.Errorf("%w: secure_default requires a known_hosts file", ErrHostKeyRejected)
		}
		return wrapKnownHosts(d.KnownHostsFile)

	case AcceptNew:
		if d.KnownHostsFile == "" {
			return nil, fmt.Errorf("%w: balanced requires a known_hosts file", ErrHostKeyRejected)
		}
		callback, err := wrapKnownHosts(d.KnownHostsFile)
		if err != nil {
			return nil, err
		}
		return acceptNewWrapper(d.KnownHostsFile, callback), nil

	default:
		return nil, fmt.Errorf("%w: unknown host key policy", ErrHostKeyRejected)
	}
}

func wrapKnownHosts(path string) (ssh.HostKeyCallback, error) {
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: loading known_hosts %q: %v", ErrHostKeyRejected, path, err)
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if err := callback(hostname, remote, key); err != nil {
			return fmt.Errorf("%w: %v", ErrHostKeyRejected, err)
		}
		return nil
	}, nil
}

// acceptNewWrapper falls back to accepting a host key absent from
// known_hosts (but still rejects one that conflicts with a recorded key),
// matching AcceptNew semantics.
func acceptNewWrapper(path string, strict ssh.HostKeyCallback) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := strict(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if isKnownHostsKeyError(err, &keyErr) && len(keyErr.Want) == 0 {
			return nil
		}
		return err
	}
}

func isKnownHostsKeyError(err error, target **knownhosts.KeyError) bool {
	for e := err; e != nil; {
		if ke, ok := asKeyError(e); ok {
			*target = ke
			return true
		}
		unwrapper, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = unwrapper.Unwrap()
	}
	return false
}

func asKeyError(err error) (*knownhosts.KeyError, bool) {
	ke, ok := err.(*knownhosts.KeyError)
	return ke, ok
}
