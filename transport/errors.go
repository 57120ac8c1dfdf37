package transport

import "errors"

var (
	// ErrConnectFailed wraps a TCP dial or SSH handshake failure.
	ErrConnectFailed = errors.New("transport: connect failed")

	// ErrAuthFailed indicates every configured authentication method was
	// rejected.
	ErrAuthFailed = errors.New("transport: authentication failed")

	// ErrHostKeyRejected indicates the remote host key did not satisfy the
	// configured policy.
	ErrHostKeyRejected = errors.New("transport: host key rejected")
)
