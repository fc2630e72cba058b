// Package workbench ties the upload controller, the result grid and the
// comparison viewer together for concurrent front-ends.
package workbench

import (
	"context"
	"sync"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/blob"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/preview"
	"github.com/kailas-cloud/scbir/internal/usecase/grid"
	"github.com/kailas-cloud/scbir/internal/usecase/upload"
	"github.com/kailas-cloud/scbir/internal/usecase/viewer"
)

// Comparison is what the viewer shows: the query image next to the focused result.
type Comparison struct {
	Query   blob.Blob
	Preview preview.Handle
	Result  result.Result
	State   viewer.State
}

// Workbench serializes viewer access and keeps it bound to the live session.
// The viewer is closed whenever the controller's session token moves on.
type Workbench struct {
	ctrl     *upload.Controller
	capacity int

	mu     sync.Mutex
	viewer *viewer.Viewer
}

// New creates a workbench over ctrl with capacity result slots.
func New(ctrl *upload.Controller, capacity int, opts ...viewer.Option) *Workbench {
	return &Workbench{
		ctrl:     ctrl,
		capacity: capacity,
		viewer:   viewer.New(opts...),
	}
}

// Controller returns the underlying upload controller.
func (w *Workbench) Controller() *upload.Controller { return w.ctrl }

// Capacity returns the configured slot count.
func (w *Workbench) Capacity() int { return w.capacity }

// Snapshot returns the current session view.
func (w *Workbench) Snapshot() upload.Snapshot { return w.ctrl.Snapshot() }

// Grid projects the current session onto the result slots.
func (w *Workbench) Grid() grid.View {
	s := w.ctrl.Snapshot()
	return grid.Project(s.Status, s.Results, w.capacity)
}

// SelectFile starts a new session and closes the viewer.
func (w *Workbench) SelectFile(ctx context.Context, b blob.Blob) upload.Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewer.Close()
	return w.ctrl.SelectFile(ctx, b)
}

// Search re-runs the search for the current file and closes the viewer.
func (w *Workbench) Search(ctx context.Context) (upload.Selection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewer.Close()
	return w.ctrl.Search(ctx)
}

// Clear resets the session and closes the viewer.
func (w *Workbench) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewer.Close()
	w.ctrl.Clear()
}

// Open opens the viewer on grid slot index.
func (w *Workbench) Open(index int) (Comparison, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.ctrl.Snapshot()
	sel, err := grid.Project(s.Status, s.Results, w.capacity).Select(index)
	if err != nil {
		return Comparison{}, err
	}
	if err := w.viewer.Open(s.Token, s.Results, sel.Index); err != nil {
		return Comparison{}, err
	}
	return w.comparisonLocked(s)
}

// Comparison returns the open comparison.
func (w *Workbench) Comparison() (Comparison, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.comparisonLocked(w.syncLocked())
}

// Viewer returns the viewer state, closed if the session moved on.
func (w *Workbench) Viewer() viewer.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.syncLocked()
	return w.viewer.State()
}

// Apply runs viewer commands in order and returns the resulting comparison.
// Commands after a failing one are not applied.
func (w *Workbench) Apply(cmds ...Command) (Comparison, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.syncLocked()
	for _, c := range cmds {
		if err := c.apply(w.viewer); err != nil {
			return Comparison{}, err
		}
	}
	if !w.viewer.IsOpen() {
		return Comparison{State: w.viewer.State()}, nil
	}
	return w.comparisonLocked(s)
}

// CloseViewer closes the comparison, if open.
func (w *Workbench) CloseViewer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewer.Close()
}

// Close tears down the session.
func (w *Workbench) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.viewer.Close()
	w.ctrl.Close()
}

// syncLocked closes a viewer opened for an older session and returns the snapshot.
func (w *Workbench) syncLocked() upload.Snapshot {
	s := w.ctrl.Snapshot()
	if w.viewer.IsOpen() && w.viewer.Token() != s.Token {
		w.viewer.Close()
	}
	return s
}

func (w *Workbench) comparisonLocked(s upload.Snapshot) (Comparison, error) {
	cur, ok := w.viewer.Current()
	if !ok {
		return Comparison{}, domain.ErrViewerClosed
	}
	return Comparison{
		Query:   s.Image,
		Preview: s.Preview,
		Result:  cur,
		State:   w.viewer.State(),
	}, nil
}
