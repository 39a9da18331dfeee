package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnection reports a failed session setup or a session that died.
	ErrConnection = errors.New("telegram: connection failed")
	// ErrNotFound reports a channel that does not exist or is not accessible.
	ErrNotFound = errors.New("telegram: channel not found")
	// ErrRateLimited reports that flood waits exceeded the configured budget.
	ErrRateLimited = errors.New("telegram: rate limit budget exhausted")
)

// FloodWaitError is the platform asking the caller to wait before retrying.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("telegram: flood wait %s", e.Wait)
}

// RPCError is a generic protocol-level failure.
type RPCError struct {
	Message string
}

func (e *RPCError) Error() string {
	return "telegram: rpc error: " + e.Message
}

// Message is a single channel post.
type Message struct {
	ID      int64     // per-channel, increasing
	Text    string    // empty when the post has no text
	Date    time.Time // publication timestamp
	Channel string
}

// Channel is a resolved channel handle.
type Channel struct {
	ID    int64
	Name  string // username without "@"
	Title string
}

// Client is a session with the messaging platform.
type Client interface {
	// Connect opens the session.
	Connect(ctx context.Context) error

	// Resolve looks up a channel by username.
	Resolve(ctx context.Context, name string) (Channel, error)

	// History returns up to limit messages with id > minID, or the latest
	// limit messages when minID is 0. Order is unspecified.
	History(ctx context.Context, ch Channel, minID int64, limit int) ([]Message, error)

	// Close releases the session. Safe to call more than once.
	Close() error
}
