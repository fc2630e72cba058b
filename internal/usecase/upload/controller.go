package upload

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/domain/session"
	"github.com/kailas-cloud/scbir/internal/metrics"
	"github.com/kailas-cloud/scbir/internal/preview"
	"github.com/kailas-cloud/scbir/internal/usecase/readiness"
)

// Selection identifies the session started by SelectFile or Search.
// Done is closed once that session's search has been applied or discarded,
// or immediately when no search was started.
type Selection struct {
	Token session.Token
	Done  <-chan struct{}
}

// Snapshot is a read-only view of the live upload session.
type Snapshot struct {
	Version   uint64
	Token     session.Token
	Status    session.Status
	Image     blob.Blob
	Preview   preview.Handle
	Results   result.Set
	Error     string // localized, empty unless Failed
	Err       error  // raw failure, for logs
	Notice    string // informational, e.g. no matches
	Readiness readiness.State
	// ReadinessMessage explains why searches are blocked, if they are.
	ReadinessMessage string
}

// HasFile reports whether a file is selected.
func (s Snapshot) HasFile() bool { return !s.Image.IsZero() }

// CanClear reports whether the clear action is offered.
func (s Snapshot) CanClear() bool {
	return (s.HasFile() || !s.Results.Empty()) && s.Status != session.Searching
}

// Option configures a Controller.
type Option func(*Controller)

// WithAutoSearch controls whether SelectFile starts a search right away (default true).
func WithAutoSearch(on bool) Option {
	return func(c *Controller) { c.autoSearch = on }
}

// WithMessages sets the message language.
func WithMessages(m Messages) Option {
	return func(c *Controller) { c.msgs = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

type state struct {
	token   session.Token
	status  session.Status
	image   blob.Blob
	preview preview.Handle
	results result.Set
	err     error
	errMsg  string
	notice  string
}

// Controller owns the single live upload session.
// It is the only writer of session state; observers read snapshots.
type Controller struct {
	searcher   Searcher
	previews   Previewer
	msgs       Messages
	autoSearch bool
	logger     *zap.Logger
	tokens     session.Generator

	mu      sync.Mutex
	st      state
	ready   readiness.Report
	cancel  context.CancelFunc
	version uint64
	closed  bool
	subs    map[int]func(Snapshot)
	nextSub int
	wg      sync.WaitGroup

	notifyMu  sync.Mutex
	delivered uint64
}

// NewController creates a controller in the Idle state.
// Searches are refused until a ready report is applied.
func NewController(searcher Searcher, previews Previewer, opts ...Option) *Controller {
	c := &Controller{
		searcher:   searcher,
		previews:   previews,
		msgs:       NewMessages(),
		autoSearch: true,
		logger:     zap.NewNop(),
		st:         state{status: session.Idle},
		subs:       make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ApplyReadiness records the startup probe outcome.
func (c *Controller) ApplyReadiness(r readiness.Report) {
	c.mu.Lock()
	c.ready = r
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SelectFile starts a new session for b, superseding any previous one.
func (c *Controller) SelectFile(ctx context.Context, b blob.Blob) Selection {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Selection{Done: closedDone}
	}

	c.invalidateLocked()
	c.previews.Release(c.st.preview)
	c.st = state{
		token:   c.tokens.Next(),
		status:  session.Ready,
		image:   b,
		preview: c.previews.Acquire(b),
	}

	sel := c.beginLocked(ctx, c.autoSearch)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.transition(snap)
	return sel
}

// Search re-runs the search for the selected file under a new token.
func (c *Controller) Search(ctx context.Context) (Selection, error) {
	c.mu.Lock()
	if c.closed || c.st.image.IsZero() {
		c.mu.Unlock()
		return Selection{Done: closedDone}, domain.ErrNoSelection
	}

	c.invalidateLocked()
	c.st = state{
		token:   c.tokens.Next(),
		status:  session.Ready,
		image:   c.st.image,
		preview: c.st.preview,
	}

	sel := c.beginLocked(ctx, true)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.transition(snap)
	return sel, nil
}

// Clear resets the session to Idle and releases the preview.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.clearLocked()
	snap := c.changedLocked()
	c.mu.Unlock()

	c.transition(snap)
}

// Close tears the session down and waits for in-flight searches to settle.
// The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.clearLocked()
	c.closed = true
	snap := c.changedLocked()
	c.mu.Unlock()

	c.transition(snap)
	c.wg.Wait()

	c.mu.Lock()
	c.subs = map[int]func(Snapshot){}
	c.mu.Unlock()
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Messages returns the controller's message set.
func (c *Controller) Messages() Messages { return c.msgs }

// Subscribe registers fn to receive every new snapshot. Calls are serialized
// and never deliver an older snapshot after a newer one. fn must not call
// the controller's mutating methods.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// beginLocked applies the readiness gate and, if search is set, starts the search.
// The Searcher is never called while not ready.
func (c *Controller) beginLocked(ctx context.Context, search bool) Selection {
	if !c.ready.Ready() {
		c.failNotReadyLocked()
		return Selection{Token: c.st.token, Done: closedDone}
	}
	if !search {
		return Selection{Token: c.st.token, Done: closedDone}
	}
	return c.startLocked(ctx)
}

func (c *Controller) failNotReadyLocked() {
	err := domain.ErrNotReady
	if c.ready.Err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrNotReady, c.ready.Err)
	}
	c.st.status = session.Failed
	c.st.err = err
	c.st.errMsg = c.msgs.ForError(err)
}

// startLocked launches the search goroutine for the current token.
// The search outlives the caller's context; only supersession or Close cancels it.
func (c *Controller) startLocked(ctx context.Context) Selection {
	tok := c.st.token
	img := c.st.image
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.cancel = cancel
	c.st.status = session.Searching

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()

		set, err := c.searcher.Search(sctx, img)
		c.complete(tok, set, err)
	}()

	return Selection{Token: tok, Done: done}
}

// complete applies a finished search if its token is still active.
func (c *Controller) complete(tok session.Token, set result.Set, err error) {
	c.mu.Lock()
	if c.closed || tok != c.st.token || c.st.status != session.Searching {
		active := c.st.token
		c.mu.Unlock()

		metrics.StaleResultsTotal.Inc()
		c.logger.Debug("discarding stale search result",
			zap.Uint64("token", uint64(tok)),
			zap.Uint64("active_token", uint64(active)),
		)
		return
	}

	c.cancel = nil
	if err != nil {
		c.st.status = session.Failed
		c.st.err = err
		c.st.errMsg = c.msgs.ForError(err)
		c.logger.Warn("search failed",
			zap.Uint64("token", uint64(tok)),
			zap.String("file", c.st.image.Name()),
			zap.Error(err),
		)
	} else {
		c.st.status = session.Succeeded
		c.st.results = set
		if set.Empty() {
			c.st.notice = c.msgs.Get(MsgNoResults)
		}
		c.logger.Debug("search finished",
			zap.Uint64("token", uint64(tok)),
			zap.Int("results", set.Len()),
		)
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.transition(snap)
}

func (c *Controller) invalidateLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) clearLocked() {
	c.invalidateLocked()
	c.previews.Release(c.st.preview)
	// a new token makes any in-flight completion stale
	c.st = state{token: c.tokens.Next(), status: session.Idle}
}

// changedLocked records a state change and returns the new snapshot.
func (c *Controller) changedLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:   c.version,
		Token:     c.st.token,
		Status:    c.st.status,
		Image:     c.st.image,
		Preview:   c.st.preview,
		Results:   c.st.results,
		Error:     c.st.errMsg,
		Err:       c.st.err,
		Notice:    c.st.notice,
		Readiness: c.ready.State,
	}
	switch c.ready.State {
	case readiness.Ready:
	case readiness.Unreachable:
		s.ReadinessMessage = c.msgs.Get(MsgConnection)
	default:
		s.ReadinessMessage = c.msgs.Get(MsgIndexingRequired)
	}
	return s
}

func (c *Controller) transition(s Snapshot) {
	metrics.SessionTransitionsTotal.WithLabelValues(string(s.Status)).Inc()
	c.notify(s)
}

func (c *Controller) notify(s Snapshot) {
	c.mu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Version <= c.delivered {
		return
	}
	c.delivered = s.Version
	for _, fn := range subs {
		fn(s)
	}
}

var closedDone = func() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
