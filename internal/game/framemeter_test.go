package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameMeterHistory(t *testing.T) {
	m := NewFrameMeter(180)
	for i := range FrameHistorySize + 10 {
		c := FrameIdle
		if i >= FrameHistorySize {
			c = FrameActive
		}
		m.Push(c, FrameStun)
	}

	assert.Equal(t, FrameHistorySize, m.Len())
	h := m.History(SideP1)
	assert.Len(t, h, FrameHistorySize)
	assert.Equal(t, FrameIdle, h[0], "oldest first")
	assert.Equal(t, FrameActive, h[len(h)-1])
	assert.Equal(t, FrameStun, m.History(SideP2)[0])
}

func TestFrameMeterAdvantage(t *testing.T) {
	m := NewFrameMeter(3)
	m.RecordAdvantage(SideP2, -4)

	adv := m.Advantage()
	assert.Equal(t, Advantage{Value: -4, FramesLeft: 3, Side: SideP2}, adv)
	assert.True(t, adv.Visible())

	for range 3 {
		m.Push(FrameIdle, FrameIdle)
	}
	assert.False(t, m.Advantage().Visible())

	m.Reset()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, Advantage{}, m.Advantage())
}

// TestMatchRecordsAdvantage verifies a resolved hit updates the readout
func TestMatchRecordsAdvantage(t *testing.T) {
	m := newTestMatch(t)
	place(m, 400, 450)
	run(m, 9, pressAt(1, "P1_S"))

	adv := m.Snapshot().Advantage
	assert.Equal(t, SideP1, adv.Side)
	assert.Equal(t, 10, adv.Value)
	assert.True(t, adv.Visible())
	assert.Equal(t, FrameActive, m.Snapshot().Fighters[0].Frame)
}
