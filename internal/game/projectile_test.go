package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-fighters/internal/config"
)

var testStage = Rect{W: 820, H: 540}

// onTarget places p over target's body.
func onTarget(p *Projectile, target *Fighter) {
	p.X = target.X
	p.Y = target.BodyRect().Center().Y
}

func TestResolveProjectile(t *testing.T) {
	tests := []struct {
		name       string
		guard      bool
		wantDamage int
		wantHealth int
	}{
		{"hit", false, 55, 945},
		{"guard", true, 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewRequestQueue()
			r := NewResolver(config.DefaultCombat(), q)
			owner, target := newTestFighter(SideP1), newTestFighter(SideP2)
			if tt.guard {
				target.ApplyIntent(Intent{MoveX: 1})
			}

			p := SpawnHadoken(1, owner)
			onTarget(p, target)
			out := r.ResolveProjectile(p, owner, target)

			require.True(t, out.Landed)
			assert.Equal(t, tt.guard, out.Guarded)
			assert.Equal(t, tt.wantDamage, out.Damage)
			assert.Equal(t, tt.wantHealth, target.Health)
			assert.True(t, p.Finished(), "single-hit projectiles end on contact")
			assert.Equal(t, owner.HitstopLeft, target.HitstopLeft)
			if tt.guard {
				assert.True(t, target.InBlockstun())
			} else {
				assert.True(t, target.InHitstun())
			}
			assert.Positive(t, q.Len())
		})
	}
}

// TestProjectileIgnoresOwner verifies a projectile never hits its own side
func TestProjectileIgnoresOwner(t *testing.T) {
	r := NewResolver(config.DefaultCombat(), NewRequestQueue())
	owner := newTestFighter(SideP1)

	p := SpawnHadoken(1, owner)
	onTarget(p, owner)
	out := r.ResolveProjectile(p, owner, owner)
	assert.False(t, out.Landed)
	assert.False(t, p.Finished())
}

// TestShinkuMultiHit verifies the cooldown between hits and combo scaling
func TestShinkuMultiHit(t *testing.T) {
	r := NewResolver(config.DefaultCombat(), NewRequestQueue())
	owner, target := newTestFighter(SideP1), newTestFighter(SideP2)

	p := SpawnShinku(1, owner)
	onTarget(p, target)

	first := r.ResolveProjectile(p, owner, target)
	require.True(t, first.Landed)
	assert.Equal(t, 35, first.Damage)
	assert.Equal(t, 1, p.Hits())
	assert.False(t, p.Finished())
	assert.False(t, p.CanHit(), "cooling down")

	for range 4 {
		require.True(t, p.Update(testStage))
	}
	require.True(t, p.CanHit())

	second := r.ResolveProjectile(p, owner, target)
	require.True(t, second.Landed)
	assert.True(t, second.ComboContinued)
	assert.Equal(t, 2, second.ComboCount)
	assert.Equal(t, 32, second.Damage)
	assert.Equal(t, 1000-35-32, target.Health)
}

// TestShinkuHitLimit verifies a multi-hit projectile stops after MaxHits
func TestShinkuHitLimit(t *testing.T) {
	owner := newTestFighter(SideP1)
	p := SpawnShinku(1, owner)

	for range p.MaxHits {
		require.True(t, p.CanHit())
		p.registerHit()
		p.cooldown = 0
	}
	assert.False(t, p.CanHit())
}

// TestProjectileExpiry verifies lifespan and stage bounds end a projectile
func TestProjectileExpiry(t *testing.T) {
	owner := newTestFighter(SideP1)

	p := SpawnHadoken(1, owner)
	alive := 0
	for p.Update(testStage) {
		alive++
	}
	assert.True(t, p.Finished())
	assert.Less(t, alive, 90)

	// A slow projectile outlives nothing but its lifespan.
	slow := SpawnHadoken(2, owner)
	slow.VX = 0
	alive = 0
	for slow.Update(testStage) {
		alive++
	}
	assert.Equal(t, 89, alive)
}

func TestProjectileKindText(t *testing.T) {
	var k ProjectileKind
	require.NoError(t, k.UnmarshalText([]byte("shinku_hadoken")))
	assert.Equal(t, ProjectileShinku, k)

	b, err := ProjectileHadoken.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "hadoken", string(b))

	assert.Error(t, k.UnmarshalText([]byte("laser")))
}
