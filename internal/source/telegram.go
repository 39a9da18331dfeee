package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	sourceName          = "telegram"
	defaultPython       = "python3"
	startupTimeout      = 2 * time.Minute
	defaultRequestLimit = 2 * time.Minute
	waitDelay           = 5 * time.Second
	maxLineLength       = 16 << 20 // a full history batch is one line
)

// CollectorOptions configures the Telethon helper process.
type CollectorOptions struct {
	ScriptPath     string
	PythonPath     string
	APIID          string
	APIHash        string
	SessionDir     string
	RequestTimeout time.Duration
}

// Collector is a Client backed by a long-lived Python helper script that
// drives Telethon. Requests and responses are JSON lines over stdin/stdout.
type Collector struct {
	opts CollectorOptions

	mu   sync.Mutex
	proc *collectorProcess
}

// collectorProcess is one running helper.
type collectorProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	lines  chan []byte
	stderr bytes.Buffer
	// scanErr is set by readLines before lines is closed.
	scanErr error

	waitOnce sync.Once
	waitErr  error
}

// NewCollector validates options. The process is not started until Connect.
func NewCollector(opts CollectorOptions) (*Collector, error) {
	if strings.TrimSpace(opts.ScriptPath) == "" {
		return nil, errors.New("telegram: script path is required")
	}
	if opts.APIID == "" || opts.APIHash == "" {
		return nil, errors.New("telegram: api id and api hash are required")
	}
	if opts.PythonPath == "" {
		opts.PythonPath = defaultPython
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestLimit
	}
	return &Collector{opts: opts}, nil
}

// Name returns "telegram".
func (c *Collector) Name() string {
	return sourceName
}

// collectorRequest is one line written to the helper's stdin.
type collectorRequest struct {
	Op      string `json:"op"`
	Channel string `json:"channel,omitempty"`
	MinID   int64  `json:"min_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// collectorResponse is one line read from the helper's stdout.
type collectorResponse struct {
	Type     string             `json:"type"`
	Kind     string             `json:"kind,omitempty"`
	Message  string             `json:"message,omitempty"`
	Seconds  int                `json:"seconds,omitempty"`
	ID       int64              `json:"id,omitempty"`
	Name     string             `json:"name,omitempty"`
	Title    string             `json:"title,omitempty"`
	Messages []collectorMessage `json:"messages,omitempty"`
}

type collectorMessage struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

// Connect starts the helper and waits until it reports a logged-in session.
func (c *Collector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != nil {
		return fmt.Errorf("%w: already connected", ErrConnection)
	}

	args := []string{
		c.opts.ScriptPath,
		"--api-id", c.opts.APIID,
		"--api-hash", c.opts.APIHash,
		"--session-dir", c.opts.SessionDir,
	}
	p := &collectorProcess{cmd: exec.Command(c.opts.PythonPath, args...)}
	p.cmd.Stderr = &p.stderr
	p.cmd.WaitDelay = waitDelay

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", ErrConnection, err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrConnection, err)
	}

	if err := p.cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s not found: install Python 3 and Telethon", ErrConnection, c.opts.PythonPath)
		}
		return fmt.Errorf("%w: start collector: %v", ErrConnection, err)
	}

	p.stdin = stdin
	p.enc = json.NewEncoder(stdin)
	p.lines = make(chan []byte)
	go p.readLines(stdout)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	resp, err := p.next(startCtx)
	if err == nil && resp.Type != "ready" {
		err = responseError(resp)
	}
	if err != nil {
		p.kill()
		if !errors.Is(err, ErrConnection) {
			err = fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return err
	}

	c.proc = p
	return nil
}

// Resolve asks the helper for the channel entity.
func (c *Collector) Resolve(ctx context.Context, name string) (Channel, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return Channel{}, fmt.Errorf("%w: empty channel name", ErrNotFound)
	}

	resp, err := c.roundTrip(ctx, collectorRequest{Op: "resolve", Channel: name})
	if err != nil {
		return Channel{}, err
	}
	if resp.Type != "channel" {
		return Channel{}, responseError(resp)
	}

	ch := Channel{ID: resp.ID, Name: resp.Name, Title: resp.Title}
	if ch.Name == "" {
		ch.Name = name
	}
	return ch, nil
}

// History fetches messages newer than minID.
func (c *Collector) History(ctx context.Context, ch Channel, minID int64, limit int) ([]Message, error) {
	resp, err := c.roundTrip(ctx, collectorRequest{Op: "fetch", Channel: ch.Name, MinID: minID, Limit: limit})
	if err != nil {
		return nil, err
	}
	if resp.Type != "messages" {
		return nil, responseError(resp)
	}

	msgs := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		var date time.Time
		if m.Date != "" {
			date, err = time.Parse(time.RFC3339, m.Date)
			if err != nil {
				return nil, &RPCError{Message: fmt.Sprintf("message %d: invalid date %q", m.ID, m.Date)}
			}
		}
		msgs = append(msgs, Message{ID: m.ID, Text: m.Text, Date: date, Channel: ch.Name})
	}
	return msgs, nil
}

// Close asks the helper to disconnect cleanly and waits for it to exit.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.proc
	if p == nil {
		return nil
	}
	c.proc = nil

	_ = p.enc.Encode(collectorRequest{Op: "close"})
	_ = p.stdin.Close()
	go drain(p.lines)

	done := make(chan error, 1)
	go func() { done <- p.wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram: close collector: %w", err)
		}
		return nil
	case <-time.After(c.opts.RequestTimeout):
		p.kill()
		return errors.New("telegram: close collector: did not exit, killed")
	}
}

func (c *Collector) roundTrip(ctx context.Context, req collectorRequest) (collectorResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.proc
	if p == nil {
		return collectorResponse{}, fmt.Errorf("%w: not connected", ErrConnection)
	}

	if err := p.enc.Encode(req); err != nil {
		c.proc = nil
		p.kill()
		return collectorResponse{}, fmt.Errorf("%w: write request: %v", ErrConnection, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	resp, err := p.next(reqCtx)
	if err != nil {
		// A late reply would pair with the next request, so the session is done.
		c.proc = nil
		p.kill()
		return collectorResponse{}, err
	}
	return resp, nil
}

// next waits for the next response line.
func (p *collectorProcess) next(ctx context.Context) (collectorResponse, error) {
	select {
	case line, ok := <-p.lines:
		if !ok {
			return collectorResponse{}, p.exitError()
		}
		var resp collectorResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return collectorResponse{}, &RPCError{Message: fmt.Sprintf("invalid collector output: %v", err)}
		}
		return resp, nil
	case <-ctx.Done():
		return collectorResponse{}, fmt.Errorf("telegram: waiting for collector: %w", ctx.Err())
	}
}

// exitError describes a helper whose stdout ended mid-session. A scan
// failure leaves the helper alive, so it is killed before waiting.
func (p *collectorProcess) exitError() error {
	if p.scanErr != nil {
		p.kill()
		return fmt.Errorf("%w: read collector output: %v", ErrConnection, p.scanErr)
	}
	err := p.waitTimeout(waitDelay)
	msg := strings.TrimSpace(p.stderr.String())
	switch {
	case msg != "":
		return fmt.Errorf("%w: collector exited: %s", ErrConnection, msg)
	case err != nil:
		return fmt.Errorf("%w: collector exited: %v", ErrConnection, err)
	default:
		return fmt.Errorf("%w: collector exited", ErrConnection)
	}
}

func (p *collectorProcess) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// waitTimeout waits for the helper to exit and kills it after d.
func (p *collectorProcess) waitTimeout(d time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- p.wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(d):
		p.kill()
		return <-done
	}
}

func (p *collectorProcess) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	go drain(p.lines)
	_ = p.wait()
}

// readLines forwards non-empty stdout lines until EOF or a read error,
// then closes p.lines.
func (p *collectorProcess) readLines(r io.Reader) {
	defer close(p.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		p.lines <- append([]byte(nil), line...)
	}
	p.scanErr = scanner.Err()
}

func drain(lines <-chan []byte) {
	for range lines {
	}
}

// responseError maps a helper error line onto the package error kinds.
func responseError(resp collectorResponse) error {
	if resp.Type != "error" {
		return &RPCError{Message: fmt.Sprintf("unexpected response type %q", resp.Type)}
	}
	switch resp.Kind {
	case "connection":
		return fmt.Errorf("%w: %s", ErrConnection, resp.Message)
	case "not_found":
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Message)
	case "flood_wait":
		return &FloodWaitError{Wait: time.Duration(resp.Seconds) * time.Second}
	default:
		return &RPCError{Message: resp.Message}
	}
}
