package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFighterStartPositions verifies round start placement and facing
func TestFighterStartPositions(t *testing.T) {
	p1, p2 := newTestFighter(SideP1), newTestFighter(SideP2)

	assert.Equal(t, 260.0, p1.X)
	assert.Equal(t, 560.0, p2.X)
	assert.Equal(t, 1, p1.Facing)
	assert.Equal(t, -1, p2.Facing)
	assert.True(t, p1.OnGround)
	assert.Equal(t, 1000, p1.Health)
	assert.Equal(t, ModeIdle, p1.Mode)
}

// TestFighterClamps verifies health, power and position stay in range
func TestFighterClamps(t *testing.T) {
	f := newTestFighter(SideP1)

	f.TakeDamage(5000)
	assert.Equal(t, 0, f.Health)
	assert.Equal(t, 1000, f.Power, "damage-to-power conversion is capped")

	f.AddPower(-5000)
	assert.Equal(t, 0, f.Power)

	assert.False(t, f.SpendPower(10))
	assert.Equal(t, 0, f.Power)

	f.AddPower(600)
	assert.False(t, f.SpendPower(-1))
	assert.True(t, f.SpendPower(500))
	assert.Equal(t, 100, f.Power)

	f.X = -100
	f.ClampToStage()
	assert.Equal(t, 25.0, f.X)

	f.X = 10000
	f.ClampToStage()
	assert.Equal(t, 795.0, f.X)
}

// TestFighterStunStatesExclusive verifies hitstun, blockstun and knockdown never overlap
func TestFighterStunStatesExclusive(t *testing.T) {
	f := newTestFighter(SideP1)
	f.ApplyIntent(Intent{Attack: "P1_S"})
	require.True(t, f.IsAttacking())

	f.EnterHitstun(10)
	assert.True(t, f.InHitstun())
	assert.False(t, f.InBlockstun())
	assert.False(t, f.IsAttacking())
	assert.Empty(t, f.AttackID())

	f.EnterBlockstun(5, false)
	assert.False(t, f.InHitstun())
	assert.True(t, f.InBlockstun())
	assert.Equal(t, 0, f.HitstunLeft())

	f.EnterKnockdown()
	assert.True(t, f.IsDown())
	assert.Equal(t, 0, f.HitstunLeft())
	assert.Equal(t, 0, f.BlockstunLeft())
	assert.Equal(t, 40, f.KnockdownLeft())
}

// TestHitstopFreezesTimeline verifies a hitstopped fighter only counts hitstop down
func TestHitstopFreezesTimeline(t *testing.T) {
	f := newTestFighter(SideP1)
	f.ApplyIntent(Intent{Attack: "P1_S"})
	f.ApplyHitstop(3)
	f.ApplyHitstop(1) // shorter requests never shorten a running freeze

	for range 3 {
		f.Advance()
		assert.Equal(t, 0, f.Elapsed())
	}
	assert.Equal(t, 0, f.HitstopLeft)

	f.Advance()
	assert.Equal(t, 1, f.Elapsed())
}

// TestWalk verifies walking speed and neutral role selection
func TestWalk(t *testing.T) {
	f := newTestFighter(SideP1)
	f.ApplyIntent(Intent{MoveX: 1})
	f.Advance()

	assert.Equal(t, 264.0, f.X)
	assert.Equal(t, ModeMoving, f.Mode)

	f.ApplyIntent(Intent{})
	f.Advance()
	assert.Equal(t, 264.0, f.X)
	assert.Equal(t, ModeIdle, f.Mode)
}

// TestCrouchLowersBody verifies the crouching body box
func TestCrouchLowersBody(t *testing.T) {
	f := newTestFighter(SideP1)
	standing := f.BodyRect()

	f.ApplyIntent(Intent{Crouch: true, MoveX: 1})
	assert.True(t, f.Crouching)
	assert.Equal(t, 0.0, f.VX, "crouching fighters do not walk")

	crouched := f.BodyRect()
	assert.Equal(t, standing.Bottom(), crouched.Bottom())
	assert.Equal(t, 60.0, crouched.H)
}

// TestDashOnDoubleTap verifies a forward double tap starts a dash
func TestDashOnDoubleTap(t *testing.T) {
	f := newTestFighter(SideP1)
	for _, in := range []Intent{{MoveX: 1}, {}, {MoveX: 1}} {
		f.ApplyIntent(in)
		f.Advance()
	}
	assert.Equal(t, ModeDashing, f.Mode)
}

// TestAttackBuffer verifies an attack pressed during recovery replays once free
func TestAttackBuffer(t *testing.T) {
	f := newTestFighter(SideP1)
	f.ApplyIntent(Intent{Attack: "P1_P"})
	f.Advance()

	// P1_P lasts 15 ticks; press again two ticks before it ends.
	for range 12 {
		f.ApplyIntent(Intent{})
		f.Advance()
	}
	f.ApplyIntent(Intent{Attack: "P1_K"})
	assert.Equal(t, 1, f.QueuedAttacks())
	f.Advance()

	for f.AttackID() == "P1_P" {
		f.ApplyIntent(Intent{})
		f.Advance()
	}
	assert.Equal(t, "P1_K", f.AttackID())
	assert.Equal(t, 0, f.QueuedAttacks())
}

// TestHitCancelWindow verifies a cancel is only accepted after a hit opened it
func TestHitCancelWindow(t *testing.T) {
	f := newTestFighter(SideP1)
	f.ApplyIntent(Intent{Attack: "P1_S"})
	f.Advance()

	f.ApplyIntent(Intent{Attack: "P1_P"})
	assert.Equal(t, "P1_S", f.AttackID(), "no cancel before the hit")

	f.RegisterCurrentHit()
	f.OpenHitCancel(8)
	f.ApplyIntent(Intent{Attack: "P1_P"})
	assert.Equal(t, "P1_P", f.AttackID())
}

// TestParseSide verifies accepted side spellings
func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"1", SideP1, false},
		{"p2", SideP2, false},
		{"P1", SideP1, false},
		{"3", SideNone, true},
		{"", SideNone, true},
	}

	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSide)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

// TestClassifyFrame walks a 9/6/5 move through the frame classes
func TestClassifyFrame(t *testing.T) {
	f := newTestFighter(SideP1)

	var classes []FrameClass
	for i := 1; i <= 20; i++ {
		in := Intent{}
		if i == 1 {
			in.Attack = "P1_S"
		}
		f.ApplyIntent(in)
		f.Advance()
		classes = append(classes, ClassifyFrame(f))
	}

	count := map[FrameClass]int{}
	for _, c := range classes {
		count[c]++
	}
	assert.Equal(t, 8, count[FrameStartup])
	assert.Equal(t, 6, count[FrameActive])
	assert.Equal(t, 5, count[FrameRecovery])
	assert.Equal(t, FrameIdle, classes[19])

	f.EnterHitstun(5)
	assert.Equal(t, FrameStun, ClassifyFrame(f))
}

// TestTimelineInfo verifies startup/active/recovery derivation
func TestTimelineInfo(t *testing.T) {
	tests := []struct {
		name string
		tl   *Timeline
		want FrameInfo
	}{
		{
			"synthesized",
			Synthesize("x", 9, 6, 5, Rect{W: 1, H: 1}, nil),
			FrameInfo{Startup: 9, Active: 6, Recovery: 5, Total: 20},
		},
		{
			"gap counts as recovery",
			&Timeline{Frames: []Frame{
				{Duration: 3},
				{Duration: 2, Hit: []Rect{upperRect}},
				{Duration: 4},
				{Duration: 2, Hit: []Rect{lowerRect}},
				{Duration: 5},
			}},
			FrameInfo{Startup: 3, Active: 4, Recovery: 9, Total: 16},
		},
		{
			"no hit geometry",
			&Timeline{Frames: []Frame{{Duration: 8}, {Duration: 12}}},
			FrameInfo{Startup: 20, Total: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tl.Info())
		})
	}
}

// TestTimelineFrameAt verifies frame lookup for looping and one-shot timelines
func TestTimelineFrameAt(t *testing.T) {
	tl := &Timeline{Frames: []Frame{{Duration: 2}, {Duration: 3}}}

	idx, done := tl.FrameAt(1)
	assert.Equal(t, 0, idx)
	assert.False(t, done)

	idx, done = tl.FrameAt(4)
	assert.Equal(t, 1, idx)
	assert.False(t, done)

	_, done = tl.FrameAt(5)
	assert.True(t, done)

	tl.Loop = true
	idx, done = tl.FrameAt(6)
	assert.Equal(t, 0, idx)
	assert.False(t, done)
}

// TestTimelineFor verifies move, candidate and synthesized lookups
func TestTimelineFor(t *testing.T) {
	c := testCharacter()

	assert.Equal(t, "6040", c.TimelineFor(SpecialHadoken).ID)
	assert.Equal(t, "two_hit", c.TimelineFor("TWO_HIT").ID)

	synth := c.TimelineFor("P1_S")
	assert.Equal(t, FrameInfo{Startup: 9, Active: 6, Recovery: 5, Total: 20}, synth.Info())

	idle := c.TimelineFor(RoleIdle)
	require.NotNil(t, idle)
	assert.True(t, idle.Loop)
}

// TestValidate verifies table problems are reported together
func TestValidate(t *testing.T) {
	assert.NoError(t, testCharacter().Validate())

	c := testCharacter()
	c.Moves["P1_P"].Attack.Damage = -1
	c.Specials[0].EarlyKey = "bogus"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative damage")
	assert.Contains(t, err.Error(), "unknown early key")
}
