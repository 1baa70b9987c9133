package game

import "math"

func (f *Fighter) width() float64 {
	if f.Char != nil && f.Char.Width > 0 {
		return f.Char.Width
	}
	return f.sim.FighterW
}

func (f *Fighter) height() float64 {
	if f.Char != nil && f.Char.Height > 0 {
		return f.Char.Height
	}
	return f.sim.FighterH
}

func (f *Fighter) halfWidth() float64 { return f.width() / 2 }

// BodyRect is the full bounding box. Crouching lowers the top by a third.
func (f *Fighter) BodyRect() Rect {
	w, h := f.width(), f.height()
	if f.Crouching && f.OnGround {
		h = math.Round(h * 2 / 3)
	}
	return Rect{X: f.X - w/2, Y: f.Y - h, W: w, H: h}
}

// Pushbox is the body narrowed to 90% width, centered.
func (f *Fighter) Pushbox() Rect {
	b := f.BodyRect()
	w := b.W * 0.9
	return Rect{X: f.X - w/2, Y: b.Y, W: w, H: b.H}
}

func (f *Fighter) currentFrame() (Frame, bool) {
	if f.timeline == nil || f.frameIdx < 0 || f.frameIdx >= len(f.timeline.Frames) {
		return Frame{}, false
	}
	return f.timeline.Frames[f.frameIdx], true
}

// Hurtboxes returns the current frame's hurt geometry in stage space, or the
// body box when the frame has none.
func (f *Fighter) Hurtboxes() []Rect {
	fr, ok := f.currentFrame()
	if !ok || len(fr.Hurt) == 0 {
		return []Rect{f.BodyRect()}
	}
	out := make([]Rect, len(fr.Hurt))
	for i, r := range fr.Hurt {
		out[i] = r.Place(f.X, f.Y, f.Facing)
	}
	return out
}

// Hitboxes returns the active hit geometry in stage space. Empty when the
// fighter is not attacking or the frame is not active.
func (f *Fighter) Hitboxes() []Rect {
	if !f.IsAttacking() || f.attackID == "" || f.timelineDone {
		return nil
	}
	fr, ok := f.currentFrame()
	if !ok || len(fr.Hit) == 0 {
		return nil
	}
	out := make([]Rect, 0, len(fr.Hit))
	for _, r := range fr.Hit {
		if r.Empty() {
			continue
		}
		out = append(out, r.Place(f.X, f.Y, f.Facing))
	}
	return out
}

// GrabBox is the throw range in front of the body.
func (f *Fighter) GrabBox() Rect {
	h := f.height()
	return Rect{X: f.halfWidth(), Y: -h, W: f.cfg.ThrowRange, H: h}.Place(f.X, f.Y, f.Facing)
}

// ThrowActive reports whether a throw's grab window is open this tick.
func (f *Fighter) ThrowActive() bool {
	if f.Mode != ModeAttacking || f.attackDef == nil || !f.attackDef.Throw || f.hasHit {
		return false
	}
	fd := f.attackDef.Frames
	return f.elapsed >= fd.Startup && f.elapsed < fd.Startup+max(1, fd.Active)
}

// IsBackThrow reports whether the current throw was started holding back.
func (f *Fighter) IsBackThrow() bool { return f.throwBack }

func (f *Fighter) startStep(rel int) {
	f.clearAttack()
	f.motionDir = rel * f.Facing
	if rel > 0 {
		f.Mode = ModeDashing
		f.motionLeft = f.cfg.StepForwardFrames
		f.motionSpeed = f.cfg.StepForwardSpeed
	} else {
		f.Mode = ModeStepping
		f.motionLeft = f.cfg.StepBackFrames
		f.motionSpeed = f.cfg.StepBackSpeed
	}
	f.VX = 0
	f.role = ""
	f.setRole(RoleDash)
}

// decayKnockback shrinks the impulse. A fresh impulse moves the fighter once
// at full strength before it starts decaying.
func (f *Fighter) decayKnockback() {
	if f.KnockbackVX == 0 {
		return
	}
	if f.knockbackFresh {
		f.knockbackFresh = false
		return
	}
	f.KnockbackVX *= f.cfg.KnockbackDecay
	if math.Abs(f.KnockbackVX) < f.cfg.KnockbackStopEps {
		f.KnockbackVX = 0
	}
}

// advanceMotion drives scripted movement: dash/step travel, rush travel and
// projectile release.
func (f *Fighter) advanceMotion() {
	switch f.Mode {
	case ModeDashing, ModeStepping:
		if f.motionLeft > 0 {
			f.X += float64(f.motionDir) * f.motionSpeed
			f.motionLeft--
		}
	case ModeRushing:
		travel := f.elapsed - f.cfg.RushStartupFrames
		if travel >= 0 && travel < f.cfg.RushFrames && !f.hasHit {
			f.X += float64(f.Facing) * f.cfg.RushSpeed
		}
	}

	if f.spawnKind != ProjectileNone && f.IsAttacking() && f.elapsed >= f.spawnTick {
		f.spawnReady = f.spawnKind
		f.spawnKind = ProjectileNone
	}
}

func (f *Fighter) integrate() {
	if !f.OnGround {
		f.VY += f.sim.Gravity
	}
	f.X += f.VX + f.KnockbackVX
	f.Y += f.VY
}

func (f *Fighter) clampToStage() {
	hw := f.halfWidth()
	f.X = clampf(f.X, hw, f.sim.StageWidth-hw)
	if f.Y >= f.sim.GroundY {
		f.Y = f.sim.GroundY
		f.VY = 0
		f.OnGround = true
	}
}

// ClampToStage keeps the fighter inside the stage.
func (f *Fighter) ClampToStage() { f.clampToStage() }

// AtWall reports whether the fighter is pinned against the stage edge on the
// side dir points to.
func (f *Fighter) AtWall(dir int) bool {
	hw := f.halfWidth()
	if dir < 0 {
		return f.X <= hw+0.01
	}
	if dir > 0 {
		return f.X >= f.sim.StageWidth-hw-0.01
	}
	return false
}
