package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/scbir/internal/domain"
	"github.com/kailas-cloud/scbir/internal/domain/search/result"
	"github.com/kailas-cloud/scbir/internal/domain/session"
)

func set(t *testing.T, sims ...float64) result.Set {
	t.Helper()
	items := make([]result.Result, len(sims))
	for i, s := range sims {
		r, err := result.New(string(rune('a'+i)), s, nil, i+1, "")
		require.NoError(t, err)
		items[i] = r
	}
	return result.NewSet(items)
}

func TestProject_ThreeResults(t *testing.T) {
	v := Project(session.Succeeded, set(t, 0.95, 0.89, 0.80), 10)

	require.Equal(t, 10, v.Len())
	assert.Equal(t, 3, v.FilledCount())

	slots := v.Slots()
	for i, want := range []float64{0.95, 0.89, 0.80} {
		assert.Equal(t, Filled, slots[i].State)
		assert.Equal(t, want, slots[i].Result.Similarity())
		assert.Equal(t, i, slots[i].Index)
	}
	for _, s := range slots[3:] {
		assert.Equal(t, Empty, s.State)
	}
}

func TestProject_Placeholders(t *testing.T) {
	tests := []struct {
		status session.Status
		want   SlotState
	}{
		{session.Idle, Empty},
		{session.Ready, Empty},
		{session.Searching, Loading},
		{session.Succeeded, Empty},
		{session.Failed, Empty},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			v := Project(tc.status, result.Set{}, 5)
			require.Equal(t, 5, v.Len())
			for _, s := range v.Slots() {
				assert.Equal(t, tc.want, s.State)
			}
		})
	}
}

func TestProject_CapacityTruncates(t *testing.T) {
	v := Project(session.Succeeded, set(t, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4), 5)
	assert.Equal(t, 5, v.Len())
	assert.Equal(t, 5, v.FilledCount())
}

func TestProject_ZeroCapacity(t *testing.T) {
	assert.Equal(t, 0, Project(session.Succeeded, set(t, 0.9), 0).Len())
	assert.Equal(t, 0, Project(session.Succeeded, set(t, 0.9), -1).Len())
}

func TestSelect(t *testing.T) {
	v := Project(session.Succeeded, set(t, 0.95, 0.89, 0.80), 5)

	sel, err := v.Select(1)
	require.NoError(t, err)
	assert.Equal(t, 1, sel.Index)
	assert.Equal(t, "b", sel.Result.FileID())

	_, err = v.Select(3)
	assert.ErrorIs(t, err, domain.ErrSlotEmpty)

	_, err = v.Select(5)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	_, err = v.Select(-1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestSelect_LoadingSlot(t *testing.T) {
	v := Project(session.Searching, result.Set{}, 5)
	_, err := v.Select(0)
	assert.ErrorIs(t, err, domain.ErrSlotEmpty)
}

func TestSlots_ReturnsCopy(t *testing.T) {
	v := Project(session.Succeeded, set(t, 0.9), 2)
	s := v.Slots()
	s[0].State = Empty
	assert.Equal(t, Filled, v.Slots()[0].State)
}
