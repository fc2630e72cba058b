// Package grid projects the upload session onto a fixed number of result slots.
package grid

import (
	"fmt"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/domain/session"
)

// SlotState is what a slot displays.
type SlotState string

// Slot states.
const (
	Filled  SlotState = "filled"
	Loading SlotState = "loading"
	Empty   SlotState = "empty"
)

// Slot is one grid cell. Result is set only when State is Filled.
type Slot struct {
	Index  int
	State  SlotState
	Result result.Result
}

// View is an immutable projection of a session status and result set.
type View struct {
	slots []Slot
}

// Selection is emitted when a filled slot is picked.
type Selection struct {
	Result result.Result
	Index  int
}

// Project renders exactly capacity slots: filled from results in order,
// then loading placeholders while searching, empty otherwise.
func Project(status session.Status, results result.Set, capacity int) View {
	if capacity < 0 {
		capacity = 0
	}
	placeholder := Empty
	if status == session.Searching {
		placeholder = Loading
	}

	slots := make([]Slot, capacity)
	for i := range slots {
		if r, ok := results.At(i); ok {
			slots[i] = Slot{Index: i, State: Filled, Result: r}
			continue
		}
		slots[i] = Slot{Index: i, State: placeholder}
	}
	return View{slots: slots}
}

// Len returns the slot count.
func (v View) Len() int { return len(v.slots) }

// Slots returns a copy of the slots.
func (v View) Slots() []Slot {
	out := make([]Slot, len(v.slots))
	copy(out, v.slots)
	return out
}

// FilledCount returns how many slots carry a result.
func (v View) FilledCount() int {
	n := 0
	for _, s := range v.slots {
		if s.State == Filled {
			n++
		}
	}
	return n
}

// Select picks slot i.
func (v View) Select(i int) (Selection, error) {
	if i < 0 || i >= len(v.slots) {
		return Selection{}, fmt.Errorf("slot %d of %d: %w", i, len(v.slots), domain.ErrIndexOutOfRange)
	}
	s := v.slots[i]
	if s.State != Filled {
		return Selection{}, fmt.Errorf("slot %d is %s: %w", i, s.State, domain.ErrSlotEmpty)
	}
	return Selection{Result: s.Result, Index: i}, nil
}
