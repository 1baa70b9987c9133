package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-fighters/internal/config"
)

// TestMeleeHit verifies damage, hitstop, power and advantage for a clean hit
func TestMeleeHit(t *testing.T) {
	m := newTestMatch(t)
	place(m, 400, 450)
	p1, p2 := m.Fighter(SideP1), m.Fighter(SideP2)

	var hitTick int
	for i := 1; i <= 30; i++ {
		var in [2]Intent
		if i == 1 {
			in[0].Attack = "P1_S"
		}
		m.Step(in)
		if len(m.Outcomes()) > 0 && hitTick == 0 {
			hitTick = i
			assert.Equal(t, 10, p1.HitstopLeft)
			assert.Equal(t, p1.HitstopLeft, p2.HitstopLeft, "hitstop must be shared")
		}
	}
	require.Equal(t, 9, hitTick, "first active frame of a 9f startup move")

	assert.Equal(t, 935, p2.Health)
	assert.Equal(t, 50, p1.Power)
	assert.Equal(t, 13, p2.Power)
}

// TestMeleeHitOutcome checks the outcome record of a clean hit
func TestMeleeHitOutcome(t *testing.T) {
	m := newTestMatch(t)
	place(m, 400, 450)

	outs := run(m, 30, pressAt(1, "P1_S"))
	require.Len(t, outs, 1, "one hit group lands once")

	out := outs[0]
	assert.True(t, out.Landed)
	assert.False(t, out.Guarded)
	assert.Equal(t, SideP1, out.AttackerSide)
	assert.Equal(t, "P1_S", out.AttackID)
	assert.Equal(t, 65, out.Damage)
	assert.Equal(t, 1, out.ComboCount)
	assert.Equal(t, 10, out.FrameAdvantage) // 15 hitstun - 5 recovery
	assert.Equal(t, 10, out.DefenderKnockbackPx)
	assert.Equal(t, 0, out.WallPushbackPx)
	assert.Equal(t, 1, out.AttackerRecoilPx)
}

// TestGuard verifies a guarded hit deals no chip by default and uses guard knockback
func TestGuard(t *testing.T) {
	m := newTestMatch(t)
	place(m, 400, 450)
	p1, p2 := m.Fighter(SideP1), m.Fighter(SideP2)

	outs := run(m, 9, func(i int) [2]Intent {
		var in [2]Intent
		if i == 1 {
			in[0].Attack = "P1_S"
		}
		if i == 9 {
			in[1].MoveX = 1 // back for a left-facing fighter
		}
		return in
	})
	require.Len(t, outs, 1)

	out := outs[0]
	assert.True(t, out.Guarded)
	assert.Equal(t, 0, out.Damage)
	assert.Equal(t, 2, out.FrameAdvantage) // 7 blockstun - 5 recovery
	assert.Equal(t, 12, out.DefenderKnockbackPx)
	assert.Equal(t, 1000, p2.Health)
	assert.True(t, p2.InBlockstun())
	assert.Equal(t, 20, p1.Power)
	assert.Equal(t, p1.HitstopLeft, p2.HitstopLeft)
}

// TestGuardChip verifies an authored chip ratio, zero included, overrides the configured one
func TestGuardChip(t *testing.T) {
	zero, quarter := 0.0, 0.25

	tests := []struct {
		name   string
		ratio  *float64
		damage int
		health int
	}{
		{"configured ratio", nil, 33, 967}, // 65 * 0.5 rounds up
		{"authored zero", &zero, 0, 1000},
		{"authored quarter", &quarter, 16, 984},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultCombat()
			cfg.GuardChipRatio = 0.5
			char := testCharacter()
			char.Moves["P1_S"].Attack.ChipRatio = tt.ratio

			m := NewMatch(config.DefaultSimulation(), cfg, char, testCharacter(), nil)
			place(m, 400, 450)
			outs := run(m, 9, func(i int) [2]Intent {
				var in [2]Intent
				if i == 1 {
					in[0].Attack = "P1_S"
				}
				if i == 9 {
					in[1].MoveX = 1
				}
				return in
			})

			require.Len(t, outs, 1)
			assert.True(t, outs[0].Guarded)
			assert.Equal(t, tt.damage, outs[0].Damage)
			assert.Equal(t, tt.health, m.Fighter(SideP2).Health)
		})
	}
}

// TestWallPushback verifies knockback converts to doubled attacker pushback at the wall
func TestWallPushback(t *testing.T) {
	tests := []struct {
		name     string
		guard    bool
		wantWall int
	}{
		{"hit", false, 20},
		{"guard", true, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatch(t)
			place(m, 745, 795)

			outs := run(m, 12, func(i int) [2]Intent {
				var in [2]Intent
				if i == 1 {
					in[0].Attack = "P1_S"
				}
				if tt.guard {
					in[1].MoveX = 1
				}
				return in
			})
			require.Len(t, outs, 1)
			assert.Equal(t, tt.guard, outs[0].Guarded)
			assert.Equal(t, tt.wantWall, outs[0].WallPushbackPx)
			assert.Equal(t, 0, outs[0].DefenderKnockbackPx)
		})
	}
}

// TestMultiHitDedup verifies hit groups: a changed signature hits again, a repeated one does not
func TestMultiHitDedup(t *testing.T) {
	tests := []struct {
		move       string
		wantHits   int
		wantHealth int
	}{
		{"TWO_HIT", 2, 810}, // 100 + 90 scaled
		{"SAME_HIT", 1, 900},
	}

	for _, tt := range tests {
		t.Run(tt.move, func(t *testing.T) {
			m := newTestMatch(t)
			place(m, 400, 450)

			outs := run(m, 30, pressAt(1, tt.move))
			require.Len(t, outs, tt.wantHits)
			assert.Equal(t, tt.wantHealth, m.Fighter(SideP2).Health)
			if tt.wantHits == 2 {
				assert.True(t, outs[1].ComboContinued)
				assert.Equal(t, 2, outs[1].ComboCount)
				assert.Equal(t, 90, outs[1].Damage)
			}
		})
	}
}

// TestComboMultiplier verifies the per-hit scaling and its floor
func TestComboMultiplier(t *testing.T) {
	tests := []struct {
		hit  int
		want float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 0.9},
		{5, 0.6},
		{10, 0.1},
		{15, 0.1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, ComboMultiplier(tt.hit), 1e-9, "hit %d", tt.hit)
	}
}

// TestGuardAttribute verifies overhead and low attacks beat the wrong guard posture
func TestGuardAttribute(t *testing.T) {
	tests := []struct {
		name      string
		attr      GuardAttribute
		crouching bool
		guarded   bool
	}{
		{"mid vs standing", GuardMid, false, true},
		{"mid vs crouching", GuardMid, true, true},
		{"low vs standing", GuardLow, false, false},
		{"low vs crouching", GuardLow, true, true},
		{"overhead vs standing", GuardOverhead, false, true},
		{"overhead vs crouching", GuardOverhead, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := newTestFighter(SideP2)
			def.ApplyIntent(Intent{MoveX: 1, Crouch: tt.crouching})
			require.Equal(t, tt.crouching, def.Crouching)
			assert.Equal(t, tt.guarded, Guards(def, tt.attr))
		})
	}
}

// TestGuardRequiresBack verifies neutral input never guards
func TestGuardRequiresBack(t *testing.T) {
	def := newTestFighter(SideP2)
	def.ApplyIntent(Intent{})
	assert.False(t, Guards(def, GuardMid))

	def.ApplyIntent(Intent{MoveX: -1}) // forward for a left-facing fighter
	assert.False(t, Guards(def, GuardMid))
}

// TestHitIgnoresDownedDefender verifies normal hits whiff on knockdown
func TestHitIgnoresDownedDefender(t *testing.T) {
	cfg := config.DefaultCombat()
	r := NewResolver(cfg, NewRequestQueue())

	att := newTestFighter(SideP1)
	def := newTestFighter(SideP2)
	att.ApplyIntent(Intent{Attack: "P1_S"})
	for range 9 {
		att.Advance()
	}
	require.True(t, att.CanDealDamage())

	def.EnterKnockdown()
	out := r.ResolveHit(att, def, Point{})
	assert.False(t, out.Landed)
	assert.Equal(t, 1000, def.Health)
}

// TestResolvePush verifies overlapping pushboxes are separated symmetrically
func TestResolvePush(t *testing.T) {
	tests := []struct {
		name           string
		x1, x2         float64
		suspended      bool
		want1, want2   float64
		wantSeparation bool
	}{
		{"overlap 25", 400, 420, false, 387, 433, true},
		{"touching", 400, 445, false, 400, 445, true},
		{"suspended", 400, 420, true, 400, 420, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := newTestFighter(SideP1), newTestFighter(SideP2)
			a.X, b.X = tt.x1, tt.x2
			ResolvePush(a, b, tt.suspended)
			assert.Equal(t, tt.want1, a.X)
			assert.Equal(t, tt.want2, b.X)
			if tt.wantSeparation {
				assert.False(t, a.Pushbox().Intersects(b.Pushbox()))
			}
		})
	}
}

// TestThrow verifies a forward throw grabs an idle opponent
func TestThrow(t *testing.T) {
	m := newTestMatch(t)
	place(m, 400, 450)
	p2 := m.Fighter(SideP2)

	outs := run(m, 3, pressAt(1, "THROW"))
	require.Len(t, outs, 1)

	out := outs[0]
	assert.True(t, out.Thrown)
	assert.True(t, out.Knockdown)
	assert.Equal(t, 100, out.Damage)
	assert.Equal(t, 24+40-20, out.FrameAdvantage)
	assert.Equal(t, ModeThrown, p2.Mode)
	assert.Equal(t, 900, p2.Health)
}

// TestBackThrow verifies the victim lands behind the thrower once the lock ends
func TestBackThrow(t *testing.T) {
	m := newTestMatch(t)
	place(m, 400, 450)
	p2 := m.Fighter(SideP2)

	outs := run(m, 40, func(i int) [2]Intent {
		if i == 1 {
			return [2]Intent{{MoveX: -1, Attack: "THROW"}}
		}
		return [2]Intent{}
	})
	require.Len(t, outs, 1)
	assert.True(t, outs[0].Thrown)

	assert.InDelta(t, 300, p2.X, 0.01)
	assert.Equal(t, ModeKnockdown, p2.Mode)
}

// TestThrowIgnoresStunnedDefender verifies throws whiff during hitstun or blockstun
func TestThrowIgnoresStunnedDefender(t *testing.T) {
	r := NewResolver(config.DefaultCombat(), NewRequestQueue())

	for _, stun := range []func(f *Fighter){
		func(f *Fighter) { f.EnterHitstun(10) },
		func(f *Fighter) { f.EnterBlockstun(10, false) },
	} {
		att, def := newTestFighter(SideP1), newTestFighter(SideP2)
		att.X, def.X = 400, 450
		att.ApplyIntent(Intent{Attack: "THROW"})
		for range 3 {
			att.Advance()
		}
		require.True(t, att.ThrowActive())

		stun(def)
		out := r.ResolveThrow(att, def)
		assert.False(t, out.Landed)
	}
}
