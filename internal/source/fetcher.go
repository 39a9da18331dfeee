package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/onionpan/internal/logger"
)

const (
	DefaultMaxRetries = 3
	DefaultMaxWait    = 5 * time.Minute
)

// FetcherOptions bounds flood-wait handling.
type FetcherOptions struct {
	// MaxRetries caps retries after flood waits for a single fetch.
	MaxRetries int
	// MaxWait caps the total time spent sleeping for a single fetch.
	MaxWait time.Duration
}

// Fetcher wraps a Client with error classification and rate-limit handling.
type Fetcher struct {
	client Client
	opts   FetcherOptions
	log    logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewFetcher(client Client, opts FetcherOptions, log logger.Logger) *Fetcher {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	return &Fetcher{client: client, opts: opts, log: log, sleep: sleepContext}
}

// Connect opens the platform session. Failures wrap ErrConnection.
func (f *Fetcher) Connect(ctx context.Context) error {
	if err := f.client.Connect(ctx); err != nil {
		if errors.Is(err, ErrConnection) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	f.log.Info("connected to telegram")
	return nil
}

// Resolve looks up a channel. A missing channel wraps ErrNotFound.
func (f *Fetcher) Resolve(ctx context.Context, name string) (Channel, error) {
	ch, err := f.client.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConnection) {
			return Channel{}, err
		}
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return Channel{}, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
		}
		return Channel{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	return ch, nil
}

// FetchSince returns up to limit messages newer than sinceID (0 = none yet).
// Flood waits are slept off and retried within the configured budget.
// Generic platform errors are logged and yield an empty result.
func (f *Fetcher) FetchSince(ctx context.Context, ch Channel, sinceID int64, limit int) ([]Message, error) {
	var (
		retries int
		waited  time.Duration
	)

	for {
		msgs, err := f.client.History(ctx, ch, sinceID, limit)
		if err == nil {
			return msgs, nil
		}

		var flood *FloodWaitError
		switch {
		case errors.As(err, &flood):
			if retries >= f.opts.MaxRetries || waited+flood.Wait > f.opts.MaxWait {
				return nil, fmt.Errorf("%w after %d retries (%s waited, next wait %s)",
					ErrRateLimited, retries, waited, flood.Wait)
			}
			f.log.Warn("rate limited, waiting",
				logger.Duration("wait", flood.Wait),
				logger.Int("retry", retries+1),
			)
			if err := f.sleep(ctx, flood.Wait); err != nil {
				return nil, fmt.Errorf("flood wait interrupted: %w", err)
			}
			retries++
			waited += flood.Wait

		case errors.Is(err, ErrConnection), ctx.Err() != nil:
			return nil, err

		default:
			f.log.Error("telegram api error", logger.String("channel", ch.Name), logger.Error(err))
			return nil, nil
		}
	}
}

// Disconnect releases the session.
func (f *Fetcher) Disconnect() error {
	if err := f.client.Close(); err != nil {
		f.log.Warn("disconnect", logger.Error(err))
		return err
	}
	f.log.Debug("disconnected from telegram")
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
