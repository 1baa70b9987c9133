package game

// ResolveThrow grabs defender when attacker's throw window is open and the
// grab box reaches a throwable defender. Throws ignore guard.
func (r *Resolver) ResolveThrow(attacker, defender *Fighter) HitOutcome {
	if !attacker.ThrowActive() {
		return HitOutcome{}
	}
	if !defender.OnGround || defender.IsDown() || defender.InCinematic() {
		return HitOutcome{}
	}
	if defender.InHitstun() || defender.InBlockstun() {
		return HitOutcome{}
	}

	grab := attacker.GrabBox()
	reached := false
	for _, hurt := range defender.Hurtboxes() {
		if grab.Intersects(hurt) {
			reached = true
			break
		}
	}
	if !reached {
		return HitOutcome{}
	}

	back := attacker.IsBackThrow()
	attacker.RegisterCurrentHit()
	defender.TakeDamage(r.cfg.ThrowDamage)
	attacker.AddPower(r.cfg.PowerGainHit)

	lock := r.cfg.ThrowForwardLock
	x := defender.X
	if back {
		lock = r.cfg.ThrowBackLock
		x = attacker.X - float64(attacker.Facing)*r.cfg.ThrowBackDistance
	}
	defender.EnterThrown(lock, back, x)

	hs := max(0, r.cfg.ThrowHitstop)
	attacker.ApplyHitstop(hs)
	defender.ApplyHitstop(hs)

	center := defender.BodyRect().Center()
	r.requests.Effect(EffectHitBurst, center)
	r.requests.Sound(SoundHit)

	out := HitOutcome{
		Landed:         true,
		Thrown:         true,
		AttackerSide:   attacker.Side,
		AttackID:       attacker.AttackID(),
		HitPoint:       center,
		Damage:         r.cfg.ThrowDamage,
		Knockdown:      true,
		FrameAdvantage: lock + max(1, r.cfg.KnockdownFrames) - attacker.AttackRecovery(),
	}
	if defender.Health <= 0 {
		out.KO = true
	}
	return out
}
