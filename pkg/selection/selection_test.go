package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveWrapsAround(t *testing.T) {
	var n Navigator
	n.Reset(5)

	assert.Equal(t, 4, n.Move(-1))
	assert.Equal(t, 0, n.Move(+1))

	for i := 0; i < 12; i++ {
		n.Move(+1)
	}
	assert.Equal(t, 2, n.Index())
}

func TestMoveOnEmptyList(t *testing.T) {
	var n Navigator
	n.Reset(0)
	assert.Equal(t, 0, n.Move(+1))
	assert.Equal(t, 0, n.Move(-1))
	_, ok := n.Selected()
	assert.False(t, ok)
}

func TestResetReturnsToFirst(t *testing.T) {
	var n Navigator
	n.Reset(3)
	n.Move(+1)
	n.Move(+1)
	n.Reset(7)
	assert.Equal(t, 0, n.Index())
	assert.Equal(t, 7, n.Count())
}

func TestSet(t *testing.T) {
	var n Navigator
	n.Reset(3)
	assert.True(t, n.Set(2))
	assert.False(t, n.Set(3))
	assert.False(t, n.Set(-1))
	assert.Equal(t, 2, n.Index())
}

func TestDispatcher(t *testing.T) {
	var (
		nav         Navigator
		highlighted []int
		confirmed   []int
	)
	d := NewDispatcher(&nav, Handlers{
		Highlight: func(i int) { highlighted = append(highlighted, i) },
		Confirm:   func(i int) { confirmed = append(confirmed, i) },
	})

	assert.False(t, d.Dispatch(Event{Kind: Enter}), "empty list does not consume")

	nav.Reset(5)
	assert.True(t, d.Dispatch(Event{Kind: Up}))
	assert.True(t, d.Dispatch(Event{Kind: Down}))
	assert.True(t, d.Dispatch(Event{Kind: Hover, Index: 3}))
	assert.False(t, d.Dispatch(Event{Kind: Hover, Index: 9}))
	assert.True(t, d.Dispatch(Event{Kind: Enter}))
	assert.True(t, d.Dispatch(Event{Kind: Click, Index: 1}))

	assert.Equal(t, []int{4, 0, 3, 1}, highlighted)
	assert.Equal(t, []int{3, 1}, confirmed)
}
