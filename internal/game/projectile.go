package game

import (
	"fmt"
	"math"
	"strings"
)

// ProjectileKind selects a projectile template.
type ProjectileKind uint8

const (
	ProjectileNone ProjectileKind = iota
	ProjectileHadoken
	ProjectileShinku
)

func (k ProjectileKind) String() string {
	switch k {
	case ProjectileHadoken:
		return "hadoken"
	case ProjectileShinku:
		return "shinku"
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (k ProjectileKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ProjectileKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "none":
		*k = ProjectileNone
	case "hadoken":
		*k = ProjectileHadoken
	case "shinku", "shinku_hadoken":
		*k = ProjectileShinku
	default:
		return fmt.Errorf("unknown projectile kind %q", string(b))
	}
	return nil
}

// MaxProjectiles caps live projectiles on the stage.
const MaxProjectiles = 16

// Projectile is a moving hazard owned by one side. Multi-hit projectiles
// (MaxHits > 1) may hit again after their cooldown.
type Projectile struct {
	ID    uint64
	Kind  ProjectileKind
	Owner Side

	X, Y   float64
	VX     float64
	Radius float64

	Damage     int
	Hitstun    int
	PowerOnHit int
	Lifespan   int

	HitInterval int
	MaxHits     int
	PushOnHit   int

	cooldown int
	hits     int
	finished bool
}

// SpawnHadoken releases a single-hit fireball in front of owner.
func SpawnHadoken(id uint64, owner *Fighter) *Projectile {
	body := owner.BodyRect()
	dir := float64(owner.Facing)
	return &Projectile{
		ID:         id,
		Kind:       ProjectileHadoken,
		Owner:      owner.Side,
		X:          owner.X + dir*34,
		Y:          body.Center().Y - 10,
		VX:         dir * 8,
		Radius:     8,
		Damage:     55,
		Hitstun:    20,
		PowerOnHit: owner.cfg.PowerGainHit,
		Lifespan:   90,
		MaxHits:    1,
	}
}

// SpawnShinku releases the multi-hit super fireball.
func SpawnShinku(id uint64, owner *Fighter) *Projectile {
	body := owner.BodyRect()
	dir := float64(owner.Facing)
	return &Projectile{
		ID:          id,
		Kind:        ProjectileShinku,
		Owner:       owner.Side,
		X:           owner.X + dir*44,
		Y:           body.Center().Y - 18,
		VX:          dir * 6,
		Radius:      12,
		Damage:      35,
		Hitstun:     12,
		PowerOnHit:  owner.cfg.PowerGainShinkuHit,
		Lifespan:    120,
		HitInterval: 4,
		MaxHits:     5,
		PushOnHit:   3,
	}
}

// Spawn builds a projectile of kind for owner.
func Spawn(kind ProjectileKind, id uint64, owner *Fighter) (*Projectile, bool) {
	switch kind {
	case ProjectileHadoken:
		return SpawnHadoken(id, owner), true
	case ProjectileShinku:
		return SpawnShinku(id, owner), true
	}
	return nil, false
}

// MultiHit reports whether the projectile survives its hits.
func (p *Projectile) MultiHit() bool { return p.MaxHits > 1 }

// Hits returns how many hits the projectile has registered.
func (p *Projectile) Hits() int { return p.hits }

// Finished reports whether the projectile is spent.
func (p *Projectile) Finished() bool { return p.finished }

// Bounds is the square around the projectile's circle.
func (p *Projectile) Bounds() Rect {
	return Rect{X: p.X - p.Radius, Y: p.Y - p.Radius, W: p.Radius * 2, H: p.Radius * 2}
}

// CanHit reports whether a hit may register this tick.
func (p *Projectile) CanHit() bool {
	if p.finished {
		return false
	}
	if !p.MultiHit() {
		return true
	}
	return p.hits < p.MaxHits && p.cooldown <= 0
}

func (p *Projectile) registerHit() {
	if !p.MultiHit() {
		p.finished = true
		return
	}
	p.hits++
	p.cooldown = max(0, p.HitInterval)
}

// Update moves the projectile and counts down its timers.
// Returns false when the projectile should be removed.
func (p *Projectile) Update(stage Rect) bool {
	if p.finished {
		return false
	}
	if p.cooldown > 0 {
		p.cooldown--
	}
	p.X += p.VX
	p.Lifespan--

	if p.Lifespan <= 0 || !p.Bounds().Intersects(stage) {
		p.finished = true
		return false
	}
	return true
}

func (p *Projectile) direction() int {
	if p.VX < 0 {
		return -1
	}
	return 1
}

// ResolveProjectile applies a projectile to target using the same guard/hit
// policy as melee hits. Knocked-down or cinematic targets are skipped.
func (r *Resolver) ResolveProjectile(p *Projectile, owner, target *Fighter) HitOutcome {
	if p.Owner == target.Side || !p.CanHit() {
		return HitOutcome{}
	}
	if target.IsDown() || target.InCinematic() {
		return HitOutcome{}
	}
	touching := false
	for _, hurt := range target.Hurtboxes() {
		if p.Bounds().Intersects(hurt) {
			touching = true
			break
		}
	}
	if !touching {
		return HitOutcome{}
	}

	out := HitOutcome{
		Landed:       true,
		AttackerSide: owner.Side,
		AttackID:     p.Kind.String(),
		HitPoint:     Point{X: p.X, Y: p.Y},
	}
	dir := p.direction()
	recovery := owner.AttackRecovery()
	hs := r.HitstopTotal(r.cfg.HitstopDefault)

	if Guards(target, GuardMid) {
		wasBlocking := target.InBlockstun()
		chip := int(math.Max(0, math.Round(float64(p.Damage)*r.cfg.GuardChipRatio)))
		target.TakeDamage(chip)
		owner.AddPower(r.cfg.PowerGainGuard)
		target.ApplyKnockback(dir, r.GuardKnockback())
		out.DefenderKnockbackPx = r.GuardKnockback()
		target.EnterBlockstun(r.cfg.BlockstunDefault, target.Crouching)
		if !wasBlocking {
			r.requests.Effect(EffectGuardBurst, out.HitPoint)
			r.requests.Sound(SoundGuard)
		}
		owner.ApplyHitstop(hs)
		target.ApplyHitstop(hs)
		p.registerHit()

		out.Guarded = true
		out.Damage = chip
		out.FrameAdvantage = r.cfg.BlockstunDefault - recovery
		if target.Health <= 0 {
			target.EnterKnockdown()
			out.Knockdown, out.KO = true, true
		}
		return out
	}

	if target.InHitstun() && owner.ComboActive() {
		owner.ExtendCombo()
		out.ComboContinued = true
	} else {
		owner.StartCombo()
	}
	out.ComboCount = owner.ComboCount

	dmg := int(math.Max(0, math.Round(float64(p.Damage)*ComboMultiplier(owner.ComboCount))))
	target.TakeDamage(dmg)
	r.requests.Sound(SoundHit)
	r.requests.Effect(EffectHitBurst, out.HitPoint)

	owner.AddComboDamage(dmg)
	owner.AddPower(p.PowerOnHit)
	target.SetComboVictim(owner.Side, p.Hitstun)
	target.EnterHitstun(p.Hitstun)
	target.ApplyKnockback(dir, p.PushOnHit)
	out.DefenderKnockbackPx = p.PushOnHit
	if target.Health <= 0 {
		target.EnterKnockdown()
		out.Knockdown, out.KO = true, true
	}
	owner.ApplyHitstop(hs)
	target.ApplyHitstop(hs)
	p.registerHit()

	out.Damage = dmg
	out.FrameAdvantage = p.Hitstun - recovery
	return out
}
