package ports

import "context"

// ChannelEventKind tags one inbound event from the session channel.
type ChannelEventKind int

const (
	// ChannelMessage carries one JSON-encoded protocol message.
	ChannelMessage ChannelEventKind = iota
	// ChannelClosed reports that the channel closed, with the close code.
	ChannelClosed
)

// ChannelEvent is the tagged variant dispatched to the session client.
// Every inbound occurrence on the channel is one of these, so the state
// machine can be driven without a live socket.
type ChannelEvent struct {
	Kind ChannelEventKind
	Data []byte
	Code int
	Err  error
}

// Channel is one open bidirectional session channel.
type Channel interface {
	// Events returns the inbound event stream. The channel is closed
	// after a ChannelClosed event has been delivered.
	Events() <-chan ChannelEvent
	// Send writes one JSON-encodable message to the channel.
	Send(ctx context.Context, v interface{}) error
	// Close tears the channel down with a normal closure. Idempotent.
	Close() error
}

// ChannelDialer opens session channels. The dial must respect the
// context deadline; a rejected credential surfaces as an auth failure
// on the resulting channel or dial error.
type ChannelDialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

// TokenProvider supplies the bearer credential attached to each dial.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// CredentialStore is a TokenProvider whose credential can be replaced,
// used by the explicit reauthentication path.
type CredentialStore interface {
	TokenProvider
	SetToken(token string) error
}
