// Package pipeline runs one incremental extraction pass over a channel:
// load checkpoint, fetch newer messages, match onion links, build records.
//
// Persisting the records and advancing the checkpoint are separate steps so
// the caller can append to the output log before calling Commit.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/ppiankov/onionpan/internal/discovery"
	"github.com/ppiankov/onionpan/internal/logger"
	"github.com/ppiankov/onionpan/internal/onion"
	"github.com/ppiankov/onionpan/internal/source"
)

const DefaultLimit = 100

// Fetcher is the platform capability the pipeline drives.
type Fetcher interface {
	Connect(ctx context.Context) error
	Resolve(ctx context.Context, name string) (source.Channel, error)
	FetchSince(ctx context.Context, ch source.Channel, sinceID int64, limit int) ([]source.Message, error)
	Disconnect() error
}

// Checkpoints stores the last processed message id.
type Checkpoints interface {
	Load() (int64, bool)
	Save(id int64)
}

// Result is the outcome of one Run.
type Result struct {
	Records []discovery.Record
	// Messages is the number of messages fetched.
	Messages int
	// Previous is the checkpoint loaded at start, valid when HadCheckpoint.
	Previous      int64
	HadCheckpoint bool
	// NewestID is the highest message id in the batch, 0 when empty.
	NewestID int64
}

// ShouldAdvance reports whether NewestID moves the checkpoint forward.
func (r Result) ShouldAdvance() bool {
	if r.NewestID <= 0 {
		return false
	}
	return !r.HadCheckpoint || r.NewestID > r.Previous
}

type Pipeline struct {
	fetcher     Fetcher
	checkpoints Checkpoints
	channel     string
	log         logger.Logger
	now         func() time.Time
}

type Option func(*Pipeline)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(fetcher Fetcher, checkpoints Checkpoints, channel string, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		checkpoints: checkpoints,
		channel:     channel,
		log:         log.With(logger.String("channel", channel)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches messages newer than the checkpoint and extracts onion links.
// Platform failures are logged and produce an empty Result that does not
// advance the checkpoint. Run never touches the checkpoint itself.
func (p *Pipeline) Run(ctx context.Context, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var res Result
	res.Previous, res.HadCheckpoint = p.checkpoints.Load()

	msgs, ch, ok := p.fetch(ctx, res.Previous, limit)
	if !ok {
		return Result{Previous: res.Previous, HadCheckpoint: res.HadCheckpoint}
	}
	if len(msgs) == 0 {
		p.log.Info("no new messages")
		return res
	}

	p.log.Info("processing messages", logger.Int("count", len(msgs)))

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	name := ch.Name
	if name == "" {
		name = p.channel
	}

	res.Messages = len(msgs)
	for _, m := range msgs {
		if m.ID > res.NewestID {
			res.NewestID = m.ID
		}
		if m.Text == "" {
			continue
		}
		for _, url := range onion.FindLinks(m.Text) {
			res.Records = append(res.Records, discovery.NewTelegramRecord(url, name, p.now()))
			p.log.Debug("found link", logger.String("url", url), logger.Int64("message_id", m.ID))
		}
	}

	if !res.ShouldAdvance() {
		p.log.Warn("batch does not advance checkpoint",
			logger.Int64("newest_id", res.NewestID),
			logger.Int64("checkpoint", res.Previous),
		)
	}

	return res
}

// fetch runs connect, resolve and fetch inside one session. The session is
// released on every path once Connect succeeds.
func (p *Pipeline) fetch(ctx context.Context, sinceID int64, limit int) (msgs []source.Message, ch source.Channel, ok bool) {
	if err := p.fetcher.Connect(ctx); err != nil {
		p.log.Error("connect", logger.Error(err))
		return nil, source.Channel{}, false
	}
	defer func() {
		_ = p.fetcher.Disconnect()
	}()

	ch, err := p.fetcher.Resolve(ctx, p.channel)
	if err != nil {
		p.log.Error("resolve channel", logger.Error(err))
		return nil, source.Channel{}, false
	}

	msgs, err = p.fetcher.FetchSince(ctx, ch, sinceID, limit)
	if err != nil {
		p.log.Error("fetch messages", logger.Int64("since_id", sinceID), logger.Error(err))
		return nil, source.Channel{}, false
	}
	return msgs, ch, true
}

// Commit advances the checkpoint to res.NewestID when that is forward progress.
// Call it after the records have been handed to the output sink.
func (p *Pipeline) Commit(res Result) bool {
	if !res.ShouldAdvance() {
		return false
	}
	p.checkpoints.Save(res.NewestID)
	return true
}
