// Package console holds the Generator Console: the state of one user's
// submission cycle (busy flag, progress log, result document, failure) and
// the operations that drive it.
package console

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/readme-console/internal/backend"
	"github.com/vrsandeep/readme-console/internal/metrics"
	"github.com/vrsandeep/readme-console/internal/models"
)

const (
	// FallbackMessage is shown for every transport failure.
	FallbackMessage = "Failed to connect to backend"
	// PlaceholderLine is shown while busy and no progress has arrived.
	PlaceholderLine = "🔄 Starting generation..."
)

// ErrNoDocument is returned by Download when there is nothing to save.
var ErrNoDocument = errors.New("no generated document to download")

// Backend is the remote generation service.
type Backend interface {
	Generate(ctx context.Context, token string, in models.SubmissionInput) (*models.GenerateResponse, error)
	Subscribe(ctx context.Context, token string) (*backend.Subscription, error)
}

// Snapshot is a point-in-time copy of a console's state.
type Snapshot struct {
	ConsoleID string   `json:"console_id"`
	Cycle     uint64   `json:"cycle"`
	Token     string   `json:"token,omitempty"`
	Busy      bool     `json:"busy"`
	Log       []string `json:"log"`
	Readme    string   `json:"readme"`
	Error     string   `json:"error,omitempty"`
}

// Option configures a Console.
type Option func(*Console)

// WithMetrics records cycle outcomes on m.
func WithMetrics(m *metrics.SubmissionMetrics) Option {
	return func(c *Console) { c.metrics = m }
}

// WithOnChange registers fn to receive a snapshot after every state change.
// Calls are serialized and never made with the console lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Console) { c.onChange = fn }
}

// Console is safe for concurrent use.
type Console struct {
	id       string
	backend  Backend
	metrics  *metrics.SubmissionMetrics
	onChange func(Snapshot)

	mu      sync.Mutex
	cycle   uint64
	current *Cycle
	busy    bool
	log     []string
	readme  string
	failure string

	notifyMu sync.Mutex
}

// New creates an idle console.
func New(id string, b Backend, opts ...Option) *Console {
	c := &Console{id: id, backend: b}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the console identifier.
func (c *Console) ID() string {
	return c.id
}

// Start begins a new submission cycle and returns without waiting for it.
// Any previous cycle is cancelled first and its late results are dropped.
func (c *Console) Start(ctx context.Context, in models.SubmissionInput) *Cycle {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	prev := c.current
	prevRunning := prev != nil && !prev.settled
	c.cycle++
	cyc := &Cycle{
		Number:  c.cycle,
		Token:   uuid.NewString(),
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.current = cyc
	c.busy = true
	c.readme = ""
	c.failure = ""
	c.log = nil
	c.mu.Unlock()

	if prev != nil {
		prev.stop()
		if prevRunning && c.metrics != nil {
			c.metrics.RecordSuperseded(ctx)
		}
	}
	if c.metrics != nil {
		c.metrics.RecordStarted(ctx, in.HasFile(), in.RepoURL != "")
	}
	log.Printf("Console %s: starting submission %d (token %s)", c.id, cyc.Number, cyc.Token)
	c.notify()

	go c.follow(runCtx, cyc)
	go c.generate(runCtx, cyc, in)
	return cyc
}

// Submit runs a full cycle and returns the state once it has settled.
func (c *Console) Submit(ctx context.Context, in models.SubmissionInput) Snapshot {
	c.Start(ctx, in).Wait()
	return c.Snapshot()
}

// follow streams progress lines into the log while cyc is current.
func (c *Console) follow(ctx context.Context, cyc *Cycle) {
	sub, err := c.backend.Subscribe(ctx, cyc.Token)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Console %s: progress stream unavailable: %v", c.id, err)
		}
		return
	}
	if !cyc.attach(sub) {
		sub.Close()
		return
	}
	for line := range sub.Lines() {
		c.appendLine(cyc, line)
	}
}

func (c *Console) appendLine(cyc *Cycle, line string) {
	c.mu.Lock()
	if c.current != cyc || !c.busy {
		c.mu.Unlock()
		return
	}
	c.log = append(c.log, line)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordLine(context.Background())
	}
	c.notify()
}

// generate issues the request and settles the cycle with its outcome.
func (c *Console) generate(ctx context.Context, cyc *Cycle, in models.SubmissionInput) {
	defer close(cyc.done)

	resp, err := c.backend.Generate(ctx, cyc.Token, in)

	c.mu.Lock()
	if c.current != cyc {
		c.mu.Unlock()
		cyc.stop()
		log.Printf("Console %s: discarding result of superseded submission %d", c.id, cyc.Number)
		return
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		log.Printf("Console %s: generation request failed: %v", c.id, err)
		c.failure = FallbackMessage
		outcome = metrics.OutcomeTransport
	case resp.Error != "":
		c.failure = resp.Error
		outcome = metrics.OutcomeApplication
	default:
		c.readme = resp.Readme
	}
	c.busy = false
	cyc.settled = true
	c.mu.Unlock()

	cyc.stop()
	if c.metrics != nil {
		c.metrics.RecordSettled(context.Background(), outcome, time.Since(cyc.started))
	}
	log.Printf("Console %s: submission %d settled (%s)", c.id, cyc.Number, outcome)
	c.notify()
}

// Snapshot returns a copy of the current state.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		ConsoleID: c.id,
		Cycle:     c.cycle,
		Busy:      c.busy,
		Log:       append([]string{}, c.log...),
		Readme:    c.readme,
		Error:     c.failure,
	}
	if c.current != nil {
		s.Token = c.current.Token
	}
	return s
}

// Busy reports whether a submission is in flight.
func (c *Console) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Close cancels the running cycle, if any. The console can still be used.
func (c *Console) Close() {
	c.mu.Lock()
	cyc := c.current
	running := cyc != nil && !cyc.settled
	c.current = nil
	c.busy = false
	c.mu.Unlock()

	if cyc != nil {
		cyc.stop()
		if running && c.metrics != nil {
			c.metrics.RecordSuperseded(context.Background())
		}
	}
}

func (c *Console) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onChange(c.Snapshot())
}
