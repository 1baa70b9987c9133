package game

import (
	"math"

	"script-fighters/internal/config"
)

// HitOutcome is the result of resolving one hit, guard or throw.
type HitOutcome struct {
	Landed         bool   `json:"landed"`
	Guarded        bool   `json:"guarded"`
	Thrown         bool   `json:"thrown,omitempty"`
	ComboContinued bool   `json:"comboContinued"`
	ComboCount     int    `json:"comboCount"`
	Damage         int    `json:"damage"`
	Knockdown      bool   `json:"knockdown"`
	KO             bool   `json:"ko"`
	FrameAdvantage int    `json:"frameAdvantage"`
	AttackerSide   Side   `json:"attackerSide"`
	AttackID       string `json:"attackId"`
	HitPoint       Point  `json:"hitPoint"`

	// Displacement requested by this resolution, in pixels.
	DefenderKnockbackPx int `json:"defenderKnockbackPx"`
	WallPushbackPx      int `json:"wallPushbackPx"`
	AttackerRecoilPx    int `json:"attackerRecoilPx"`
}

// Resolver applies the hit and guard policy shared by melee hits, projectiles
// and throws.
type Resolver struct {
	cfg      config.CombatConfig
	requests *RequestQueue
}

// NewResolver creates a resolver that queues presentation requests on q.
func NewResolver(cfg config.CombatConfig, q *RequestQueue) *Resolver {
	return &Resolver{cfg: cfg, requests: q}
}

// HitstopTotal is the shared freeze for a confirmed hit or guard.
func (r *Resolver) HitstopTotal(moveHitstop int) int {
	if moveHitstop <= 0 {
		moveHitstop = r.cfg.HitstopDefault
	}
	return moveHitstop + max(0, r.cfg.HitstopBonus)
}

// GuardKnockback is the knockback every guard applies.
func (r *Resolver) GuardKnockback() int {
	return int(math.Max(0, math.Round(float64(r.cfg.GuardKnockbackDefault)*r.cfg.GuardKnockbackMultiplier)))
}

// Guards reports whether defender blocks an attack with attribute attr.
func Guards(defender *Fighter, attr GuardAttribute) bool {
	if !defender.CanGuardNow() || !defender.IsGuardingIntent() {
		return false
	}
	return attr.Blockable(defender.Crouching)
}

// ResolveHit applies attacker's current hit group to defender.
func (r *Resolver) ResolveHit(attacker, defender *Fighter, hitPoint Point) HitOutcome {
	if attacker.InCinematic() || defender.InCinematic() {
		return HitOutcome{}
	}
	if defender.IsDown() {
		return HitOutcome{}
	}
	if !attacker.CanDealDamage() {
		return HitOutcome{}
	}

	spec := attacker.AttackSpec()
	out := HitOutcome{
		Landed:       true,
		AttackerSide: attacker.Side,
		AttackID:     attacker.AttackID(),
		HitPoint:     hitPoint,
	}
	if Guards(defender, spec.Guard) {
		r.applyGuard(attacker, defender, spec, &out)
	} else {
		r.applyHit(attacker, defender, spec, &out)
	}
	return out
}

// push moves the defender away, or the attacker back when the defender is
// pinned at the wall.
func (r *Resolver) push(dir int, attacker, defender *Fighter, px int, out *HitOutcome) {
	if defender.AtWall(dir) {
		wall := int(math.Round(float64(px) * r.cfg.WallKnockbackMultiplier))
		attacker.ApplyKnockback(-dir, wall)
		out.WallPushbackPx = wall
		return
	}
	defender.ApplyKnockback(dir, px)
	out.DefenderKnockbackPx = px
}

func (r *Resolver) applyGuard(attacker, defender *Fighter, spec AttackSpec, out *HitOutcome) {
	wasBlocking := defender.InBlockstun()
	recovery := attacker.AttackRecovery()

	stun := spec.BlockstunFrames
	if stun <= 0 {
		stun = r.cfg.BlockstunDefault
	}
	chip := spec.Chip(r.cfg.GuardChipRatio)
	defender.TakeDamage(chip)
	attacker.AddPower(r.cfg.PowerGainGuard)

	r.push(attacker.Facing, attacker, defender, r.GuardKnockback(), out)
	defender.EnterBlockstun(stun, defender.Crouching)

	if !wasBlocking {
		r.requests.Effect(EffectGuardBurst, out.HitPoint)
		r.requests.Sound(SoundGuard)
	}

	attacker.ApplyKnockback(-attacker.Facing, spec.RecoilPx)
	attacker.RegisterCurrentHit()
	attacker.AddRecoveryBonus(spec.RecoveryBonus)

	hs := r.HitstopTotal(spec.HitstopFrames)
	attacker.ApplyHitstop(hs)
	defender.ApplyHitstop(hs)

	out.Guarded = true
	out.Damage = chip
	out.AttackerRecoilPx = spec.RecoilPx
	out.FrameAdvantage = stun - recovery
	if defender.Health <= 0 {
		defender.EnterKnockdown()
		out.Knockdown, out.KO = true, true
	}
}

func (r *Resolver) applyHit(attacker, defender *Fighter, spec AttackSpec, out *HitOutcome) {
	side := attacker.Side
	if defender.IsComboVictimOf(side) && attacker.ComboActive() {
		attacker.ExtendCombo()
		out.ComboContinued = true
	} else {
		attacker.StartCombo()
	}
	out.ComboCount = attacker.ComboCount

	// Read before the defender reaction clears anything the attacker needs.
	recovery := attacker.AttackRecovery()
	earlyRush := attacker.IsRushEarlyHit()

	dmg := int(math.Max(0, math.Round(float64(spec.Damage)*ComboMultiplier(attacker.ComboCount))))
	defender.TakeDamage(dmg)
	r.requests.Sound(SoundHit)

	stun := spec.HitstunFrames
	if stun <= 0 {
		stun = r.cfg.HitstunDefault
	}
	attacker.AddPower(r.cfg.PowerGainHit)

	r.push(attacker.Facing, attacker, defender, spec.KnockbackPx, out)

	defender.SetComboVictim(side, stun)
	defender.EnterHitstun(stun)

	attacker.ApplyKnockback(-attacker.Facing, spec.RecoilPx)
	attacker.RegisterCurrentHit()
	attacker.AddComboDamage(dmg)
	attacker.AddRecoveryBonus(spec.RecoveryBonus)

	switch spec.HitCancel {
	case HitCancelWindow:
		attacker.OpenHitCancel(r.cfg.HitCancelWindowFrames)
	case HitCancelFull:
		if t := attacker.Timeline(); t != nil {
			attacker.OpenHitCancel(max(0, t.TotalTicks()-attacker.Elapsed()))
		}
	}

	knockdown := spec.Knockdown
	if attacker.AttackID() == SpecialRush {
		knockdown = earlyRush
	}
	if defender.Health <= 0 {
		knockdown = true
		out.KO = true
	}
	if knockdown {
		defender.EnterKnockdown()
	}

	r.requests.Effect(EffectSpark, out.HitPoint)
	r.requests.Effect(EffectHitBurst, out.HitPoint)

	hs := r.HitstopTotal(spec.HitstopFrames)
	attacker.ApplyHitstop(hs)
	defender.ApplyHitstop(hs)

	out.Damage = dmg
	out.Knockdown = knockdown
	out.AttackerRecoilPx = spec.RecoilPx
	out.FrameAdvantage = stun - recovery
}
