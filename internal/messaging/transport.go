// Package messaging owns the lifecycle of the single outbound WhatsApp session:
// it establishes the connection, persists rotating credentials, renders the QR
// login challenge, and recovers from non-terminal disconnects. Request handlers
// never touch the transport directly; they go through the Manager.
package messaging

import "context"

// EventKind discriminates transport events delivered on the Dial event channel.
type EventKind int

const (
	// KindQR carries a login-challenge code to render for the operator.
	KindQR EventKind = iota
	// KindCredentials carries a rotated credential blob that must be persisted
	// before the connection can be considered recoverable.
	KindCredentials
	// KindConnected signals the connection reached the open state.
	KindConnected
	// KindClosed signals the connection closed; Terminal reports whether the
	// close reason was a logout that invalidated the stored credentials.
	KindClosed
)

// Event is a single transport lifecycle event.
type Event struct {
	Kind        EventKind
	QRCode      string // KindQR
	Credentials []byte // KindCredentials
	Reason      string // KindClosed
	Terminal    bool   // KindClosed
}

// Conn is a live connection handle. Callers must not cache it across long
// periods; the Manager may replace it after a reconnect.
type Conn interface {
	// Send delivers a text message to the given fully-qualified address.
	Send(ctx context.Context, address, text string) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Transport dials the messaging service. credentials is the blob persisted from
// a previous KindCredentials event, or nil to start a fresh login handshake.
// The returned channel delivers events until the connection closes; the
// implementation closes the channel after the KindClosed event.
type Transport interface {
	Dial(ctx context.Context, credentials []byte) (Conn, <-chan Event, error)
}
