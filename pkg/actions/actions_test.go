package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	all := []Action{
		NewWait(0),
		NewMove(0, 1, 2),
		NewPickup(0, 3, 1),
		NewDrop(0, 3, 2),
		NewChargeup(0, 0),
		NewPrepareFly(0),
		NewFly(1, 0, 6),
		NewFlyWithPassenger(1, 0, 0, 6),
	}

	assert.Len(t, all, len(Kinds))
	for i, a := range all {
		assert.Equal(t, Kinds[i], a.Kind())
	}
}

func TestWithTiming(t *testing.T) {
	m := NewMove(2, 1, 3)
	got := WithTiming(m, At(1.5, 4))

	assert.Equal(t, 2, got.Agent())
	assert.Equal(t, Timing{Start: 1.5, End: 4, Scheduled: true}, got.Schedule())
	assert.False(t, m.Schedule().Scheduled, "original action must stay unscheduled")

	moved, ok := got.(Move)
	assert.True(t, ok)
	assert.Equal(t, 3, moved.To)
}

func TestDestination(t *testing.T) {
	to, ok := Destination(NewMove(0, 1, 3))
	assert.True(t, ok)
	assert.Equal(t, 3, to)

	to, ok = Destination(NewFlyWithPassenger(4, 0, 2, 6))
	assert.True(t, ok)
	assert.Equal(t, 6, to)

	_, ok = Destination(NewWait(0))
	assert.False(t, ok)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "agent 0 moves from l1 to l2", NewMove(0, 1, 2).String())
	assert.Equal(t, "agent 3 carries agent 0 from l0 to l6", NewFlyWithPassenger(3, 0, 0, 6).String())
	assert.True(t, IsWait(nil))
	assert.True(t, IsWait(NewWait(1)))
	assert.False(t, IsWait(NewPrepareFly(1)))
}
