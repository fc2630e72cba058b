// Package viewer implements the side-by-side comparison state machine:
// a query pane and a result pane, each with its own zoom and pan, plus
// navigation across the result set. It does no I/O and no locking.
package viewer

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/domain/session"
)

// Zoom limits.
const (
	MinZoom     = 0.5
	MaxZoom     = 3.0
	DefaultZoom = 1.0
	ZoomStep    = 0.1
)

// Pane selects one side of the comparison.
type Pane int

// Panes.
const (
	Query Pane = iota
	Match
)

func (p Pane) String() string {
	switch p {
	case Query:
		return "query"
	case Match:
		return "result"
	default:
		return fmt.Sprintf("pane(%d)", int(p))
	}
}

// ParsePane maps "query"/"result" to a Pane.
func ParsePane(s string) (Pane, error) {
	switch s {
	case "query", "q", "left":
		return Query, nil
	case "result", "r", "right", "match":
		return Match, nil
	default:
		return 0, fmt.Errorf("unknown pane %q: %w", s, domain.ErrInvalidArgument)
	}
}

// Point is a 2D offset in display pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PaneState is the zoom and pan of one pane.
type PaneState struct {
	Zoom     float64 `json:"zoom"`
	Offset   Point   `json:"offset"`
	Dragging bool    `json:"dragging"`
	anchor   Point
}

// Pannable reports whether drag gestures move the pane.
func (s PaneState) Pannable() bool { return s.Zoom > DefaultZoom }

func defaultPane() PaneState { return PaneState{Zoom: DefaultZoom} }

// State is a copy of the viewer, suitable for rendering.
type State struct {
	Open        bool          `json:"open"`
	Token       session.Token `json:"token"`
	Index       int           `json:"index"`
	Total       int           `json:"total"`
	Linked      bool          `json:"linked"`
	Query       PaneState     `json:"query"`
	Result      PaneState     `json:"result"`
	CanPrevious bool          `json:"can_previous"`
	CanNext     bool          `json:"can_next"`
}

// Viewer is the comparison state machine. The zero value is closed and independent.
type Viewer struct {
	open    bool
	linked  bool
	token   session.Token
	results result.Set
	index   int
	panes   [2]PaneState
}

// Option configures a Viewer.
type Option func(*Viewer)

// Linked applies zoom and pan to both panes at once.
func Linked(on bool) Option {
	return func(v *Viewer) { v.linked = on }
}

// New creates a closed viewer.
func New(opts ...Option) *Viewer {
	v := &Viewer{}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Open binds the viewer to a result set and focuses index.
func (v *Viewer) Open(tok session.Token, results result.Set, index int) error {
	if index < 0 || index >= results.Len() {
		return fmt.Errorf("open at %d of %d: %w", index, results.Len(), domain.ErrIndexOutOfRange)
	}
	v.open = true
	v.token = tok
	v.results = results
	v.index = index
	v.resetPanes()
	return nil
}

// Close discards all viewer state.
func (v *Viewer) Close() {
	*v = Viewer{linked: v.linked}
}

// IsOpen reports whether a comparison is shown.
func (v *Viewer) IsOpen() bool { return v.open }

// Token returns the session token the viewer was opened for.
func (v *Viewer) Token() session.Token { return v.token }

// Index returns the focused result index.
func (v *Viewer) Index() int { return v.index }

// Current returns the focused result.
func (v *Viewer) Current() (result.Result, bool) {
	if !v.open {
		return result.Result{}, false
	}
	return v.results.At(v.index)
}

// Pane returns the state of one pane.
func (v *Viewer) Pane(p Pane) PaneState {
	if p != Query && p != Match {
		return PaneState{}
	}
	return v.panes[p]
}

// CanPrevious reports whether Previous would move.
func (v *Viewer) CanPrevious() bool { return v.open && v.index > 0 }

// CanNext reports whether Next would move.
func (v *Viewer) CanNext() bool { return v.open && v.index < v.results.Len()-1 }

// State returns a rendering copy.
func (v *Viewer) State() State {
	return State{
		Open:        v.open,
		Token:       v.token,
		Index:       v.index,
		Total:       v.results.Len(),
		Linked:      v.linked,
		Query:       v.panes[Query],
		Result:      v.panes[Match],
		CanPrevious: v.CanPrevious(),
		CanNext:     v.CanNext(),
	}
}

// Next focuses the following result. No-op at the last one.
func (v *Viewer) Next() error {
	if !v.open {
		return domain.ErrViewerClosed
	}
	if v.CanNext() {
		v.index++
		v.resetPanes()
	}
	return nil
}

// Previous focuses the preceding result. No-op at the first one.
func (v *Viewer) Previous() error {
	if !v.open {
		return domain.ErrViewerClosed
	}
	if v.CanPrevious() {
		v.index--
		v.resetPanes()
	}
	return nil
}

// ZoomIn raises the zoom by one step.
func (v *Viewer) ZoomIn(p Pane) error { return v.zoomBy(p, ZoomStep) }

// ZoomOut lowers the zoom by one step.
func (v *Viewer) ZoomOut(p Pane) error { return v.zoomBy(p, -ZoomStep) }

// Scroll maps a wheel delta to a zoom step: positive zooms out, negative zooms in.
func (v *Viewer) Scroll(p Pane, deltaY float64) error {
	switch {
	case deltaY > 0:
		return v.ZoomOut(p)
	case deltaY < 0:
		return v.ZoomIn(p)
	default:
		return v.check(p)
	}
}

// BeginDrag starts a pan gesture at (x, y). Ignored unless zoomed in.
func (v *Viewer) BeginDrag(p Pane, x, y float64) error {
	if err := v.check(p); err != nil {
		return err
	}
	for _, t := range v.targets(p) {
		ps := &v.panes[t]
		if ps.Pannable() {
			ps.Dragging = true
			ps.anchor = Point{X: x, Y: y}
		}
	}
	return nil
}

// DragTo moves the pan by the pointer delta since the last position.
func (v *Viewer) DragTo(p Pane, x, y float64) error {
	if err := v.check(p); err != nil {
		return err
	}
	for _, t := range v.targets(p) {
		ps := &v.panes[t]
		if !ps.Dragging || !ps.Pannable() {
			continue
		}
		ps.Offset.X += x - ps.anchor.X
		ps.Offset.Y += y - ps.anchor.Y
		ps.anchor = Point{X: x, Y: y}
	}
	return nil
}

// EndDrag finishes the gesture. The offset stays where it is.
func (v *Viewer) EndDrag(p Pane) error {
	if err := v.check(p); err != nil {
		return err
	}
	for _, t := range v.targets(p) {
		v.panes[t].Dragging = false
	}
	return nil
}

// Reset restores both panes to the default zoom and pan.
func (v *Viewer) Reset() error {
	if !v.open {
		return domain.ErrViewerClosed
	}
	v.resetPanes()
	return nil
}

func (v *Viewer) zoomBy(p Pane, step float64) error {
	if err := v.check(p); err != nil {
		return err
	}
	for _, t := range v.targets(p) {
		ps := &v.panes[t]
		ps.Zoom = clampZoom(ps.Zoom + step)
		if !ps.Pannable() {
			ps.Offset = Point{}
			ps.Dragging = false
		}
	}
	return nil
}

func (v *Viewer) check(p Pane) error {
	if !v.open {
		return domain.ErrViewerClosed
	}
	if p != Query && p != Match {
		return fmt.Errorf("%s: %w", p, domain.ErrInvalidArgument)
	}
	return nil
}

func (v *Viewer) targets(p Pane) []Pane {
	if v.linked {
		return []Pane{Query, Match}
	}
	return []Pane{p}
}

func (v *Viewer) resetPanes() {
	v.panes = [2]PaneState{defaultPane(), defaultPane()}
}

// clampZoom bounds z and rounds to two decimals so repeated steps do not drift.
func clampZoom(z float64) float64 {
	z = math.Round(z*100) / 100
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
