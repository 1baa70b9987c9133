package game

import (
	"errors"
	"fmt"
	"math"

	"script-fighters/internal/config"
)

// ErrInvalidSide is returned when a side is not 1 or 2.
var ErrInvalidSide = errors.New("side must be 1 or 2")

// Side identifies a player slot.
type Side int

const (
	SideNone Side = 0
	SideP1   Side = 1
	SideP2   Side = 2
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideP1 {
		return SideP2
	}
	return SideP1
}

func (s Side) String() string {
	switch s {
	case SideP1:
		return "p1"
	case SideP2:
		return "p2"
	}
	return "none"
}

// ParseSide accepts "1", "2", "p1" or "p2".
func ParseSide(s string) (Side, error) {
	switch s {
	case "1", "p1", "P1":
		return SideP1, nil
	case "2", "p2", "P2":
		return SideP2, nil
	}
	return SideNone, fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Mode is the high-level state of a fighter.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeMoving
	ModeAttacking
	ModeHitstun
	ModeBlockstun
	ModeKnockdown
	ModeRushing
	ModeDashing
	ModeStepping
	ModeThrown
	ModeCinematic
)

var modeNames = [...]string{
	ModeIdle:      "idle",
	ModeMoving:    "moving",
	ModeAttacking: "attacking",
	ModeHitstun:   "hitstun",
	ModeBlockstun: "blockstun",
	ModeKnockdown: "knockdown",
	ModeRushing:   "rushing",
	ModeDashing:   "dashing",
	ModeStepping:  "stepping",
	ModeThrown:    "thrown",
	ModeCinematic: "cinematic",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Intent is one fighter's input for one tick. Jump and Attack are edges.
type Intent struct {
	MoveX  int    `json:"moveX" msgpack:"moveX"`
	Jump   bool   `json:"jump" msgpack:"jump"`
	Crouch bool   `json:"crouch" msgpack:"crouch"`
	Attack string `json:"attack,omitempty" msgpack:"attack,omitempty"`
}

type queuedAttack struct {
	ID   string
	Tick uint64
}

// maxQueuedAttacks caps the attack FIFO.
const maxQueuedAttacks = 8

// Fighter is one combatant. All state advances through ApplyIntent and
// Advance, called once per tick by the match in a fixed order.
type Fighter struct {
	Side Side
	Char *CharacterDefinition

	X, Y        float64 // Foot anchor (center-x, foot-y)
	VX, VY      float64
	KnockbackVX float64
	Facing      int
	OnGround    bool
	Crouching   bool

	Health int
	Power  int
	Mode   Mode

	HitstopLeft int

	ComboCount  int
	ComboDamage int

	sim config.SimulationConfig
	cfg config.CombatConfig

	tick uint64

	// Timeline pointer
	role         string
	timeline     *Timeline
	elapsed      int
	frameIdx     int
	timelineDone bool

	// Current attack
	attackID          string
	attackDef         *MoveDef
	attackSpec        AttackSpec
	startedThisTick   bool
	replayed          bool // A buffered attack started during the last Advance
	recoveryBonusLeft int
	hasHit            bool

	// Multi-hit dedup: a new run starts whenever the hit signature changes.
	hitSig        string
	hitRun        int
	registeredRun int

	hitstunLeft   int
	blockstunLeft int
	knockdownLeft int
	thrownLeft    int

	holdingBack bool
	guardLatch  int
	autoGuard   bool // Training dummy: guard intent without input
	queue       []queuedAttack

	commands *CommandRecognizer

	// Double-tap detection and dash/step motion
	prevRel     int
	lastTapRel  int
	lastTapTick uint64
	motionLeft  int
	motionSpeed float64
	motionDir   int

	// Outputs consumed by the match
	spawnKind       ProjectileKind
	spawnTick       int
	spawnReady      ProjectileKind
	pendingFreeze   int
	pendingFinisher bool

	hitCancelLeft int

	// Victim side of a combo
	comboVictim  bool
	comboOwner   Side
	comboHitstun int

	// Attacker side of a combo
	comboActive      bool
	comboDisplayLeft int

	throwBack bool
	relocate  bool
	relocateX float64

	knockbackFresh bool
}

// NewFighter creates a fighter at the round start position for side.
func NewFighter(side Side, char *CharacterDefinition, sim config.SimulationConfig, cfg config.CombatConfig) *Fighter {
	f := &Fighter{
		Side:     side,
		Char:     char,
		sim:      sim,
		cfg:      cfg,
		commands: NewCommandRecognizer(cfg.InputBufferFrames, cfg.CommandEarlyFrames),
		queue:    make([]queuedAttack, 0, maxQueuedAttacks),
	}
	f.ResetForRound()
	return f
}

// ResetForRound restores health, position and every timer.
func (f *Fighter) ResetForRound() {
	x, facing := f.sim.StageWidth/2-f.sim.StartOffset, 1
	if f.Side == SideP2 {
		x, facing = f.sim.StageWidth/2+f.sim.StartOffset, -1
	}
	char, sim, cfg, cmds, queue := f.Char, f.sim, f.cfg, f.commands, f.queue[:0]
	side, autoGuard := f.Side, f.autoGuard
	*f = Fighter{
		Side:      side,
		Char:      char,
		sim:       sim,
		cfg:       cfg,
		commands:  cmds,
		queue:     queue,
		autoGuard: autoGuard,
		X:         x,
		Y:         sim.GroundY,
		Facing:    facing,
		OnGround:  true,
		Health:    cfg.MaxHealth,
	}
	f.commands.Reset()
	f.setRole(RoleIdle)
}

// SetCharacter swaps the character table. The current move is dropped.
func (f *Fighter) SetCharacter(c *CharacterDefinition) {
	f.Char = c
	f.clearAttack()
	if f.Mode == ModeAttacking || f.Mode == ModeRushing {
		f.toNeutral()
	}
	f.setRole(f.role)
}

// Tick returns the fighter's local input clock.
func (f *Fighter) Tick() uint64 { return f.tick }

// MoveID returns the current attack id, or the reaction role when not attacking.
func (f *Fighter) MoveID() string {
	if f.attackID != "" {
		return f.attackID
	}
	return f.role
}

// AttackID returns the active attack id, empty when not attacking.
func (f *Fighter) AttackID() string { return f.attackID }

// AttackSpec returns the combat data of the active attack.
func (f *Fighter) AttackSpec() AttackSpec { return f.attackSpec }

// Timeline returns the timeline being played.
func (f *Fighter) Timeline() *Timeline { return f.timeline }

// Elapsed returns ticks since the current timeline started.
func (f *Fighter) Elapsed() int { return f.elapsed }

// Recognizer exposes the command buffer.
func (f *Fighter) Recognizer() *CommandRecognizer { return f.commands }

// IsAttacking reports whether an attack (including rush) is in progress.
func (f *Fighter) IsAttacking() bool {
	return f.Mode == ModeAttacking || f.Mode == ModeRushing
}

// InHitstun reports whether the fighter is in hitstun.
func (f *Fighter) InHitstun() bool { return f.Mode == ModeHitstun }

// InBlockstun reports whether the fighter is in blockstun.
func (f *Fighter) InBlockstun() bool { return f.Mode == ModeBlockstun }

// IsDown reports knockdown or being thrown. Normal hits whiff on a downed fighter.
func (f *Fighter) IsDown() bool { return f.Mode == ModeKnockdown || f.Mode == ModeThrown }

// InCinematic reports whether the fighter is owned by the finisher sequence.
func (f *Fighter) InCinematic() bool { return f.Mode == ModeCinematic }

// HitstunLeft returns remaining hitstun ticks.
func (f *Fighter) HitstunLeft() int { return f.hitstunLeft }

// BlockstunLeft returns remaining blockstun ticks.
func (f *Fighter) BlockstunLeft() int { return f.blockstunLeft }

// KnockdownLeft returns remaining knockdown ticks.
func (f *Fighter) KnockdownLeft() int { return f.knockdownLeft }

// StunLeft is the remaining non-actionable time used for frame advantage.
func (f *Fighter) StunLeft() int {
	return max(f.hitstunLeft, f.blockstunLeft, f.knockdownLeft, f.thrownLeft)
}

// CanAct reports whether the fighter accepts movement and new attacks.
func (f *Fighter) CanAct() bool {
	return f.HitstopLeft == 0 && (f.Mode == ModeIdle || f.Mode == ModeMoving)
}

// ApplyIntent feeds one tick of input. Locked fighters record tokens and
// buffer attacks but do not move.
func (f *Fighter) ApplyIntent(in Intent) {
	f.tick++
	// A replayed attack began inside Advance, after last tick's special check,
	// so the recognizer gets one chance to upgrade it now.
	f.startedThisTick = f.replayed
	f.replayed = false

	moveX := clampi(in.MoveX, -1, 1)
	rel := moveX * f.Facing
	f.holdingBack = rel < 0
	if f.holdingBack {
		f.guardLatch = f.cfg.GuardBufferFrames
	}

	f.commands.PushIntentToken(DirectionToken(moveX, in.Crouch, f.Facing), f.tick)
	if in.Attack != "" {
		if btn := f.Char.ButtonFor(in.Attack); btn != TokNone {
			f.commands.PushIntentToken(btn, f.tick)
		}
	}

	if f.Mode == ModeIdle || f.Mode == ModeMoving || f.Mode == ModeBlockstun {
		f.Crouching = in.Crouch && f.OnGround
	}

	tapped := rel != 0 && rel != f.prevRel
	f.prevRel = rel

	if !f.CanAct() {
		if f.Mode != ModeDashing && f.Mode != ModeStepping {
			f.VX = 0
		}
		if in.Attack != "" {
			if f.canCancel() {
				f.startAttack(in.Attack)
			} else {
				f.bufferAttack(in.Attack)
			}
		}
		return
	}

	if tapped && f.OnGround && !f.Crouching && in.Attack == "" {
		if f.lastTapRel == rel && f.tick-f.lastTapTick <= uint64(f.cfg.DashDoubleTapWindow) {
			f.lastTapRel = 0
			f.startStep(rel)
			return
		}
		f.lastTapRel, f.lastTapTick = rel, f.tick
	}

	if in.Jump && f.OnGround && !f.Crouching {
		f.VY = f.sim.JumpVelocity
		f.OnGround = false
	}

	if f.Crouching {
		f.VX = 0
	} else {
		f.VX = float64(moveX) * f.sim.WalkSpeed
	}

	if in.Attack != "" {
		f.startAttack(in.Attack)
	}
}

func (f *Fighter) canCancel() bool {
	return f.Mode == ModeAttacking && f.hasHit && f.hitCancelLeft > 0
}

func (f *Fighter) bufferAttack(id string) {
	if len(f.queue) == maxQueuedAttacks {
		copy(f.queue, f.queue[1:])
		f.queue = f.queue[:maxQueuedAttacks-1]
	}
	f.queue = append(f.queue, queuedAttack{ID: id, Tick: f.tick})
}

// replayBuffered starts the oldest buffered attack still inside the window.
func (f *Fighter) replayBuffered() {
	for len(f.queue) > 0 {
		q := f.queue[0]
		f.queue = f.queue[1:]
		if f.tick-q.Tick <= uint64(f.cfg.AttackBufferFrames) {
			f.startAttack(q.ID)
			f.replayed = true
			return
		}
	}
}

// QueuedAttacks returns the number of buffered attacks.
func (f *Fighter) QueuedAttacks() int { return len(f.queue) }

func (f *Fighter) startAttack(id string) {
	mode := ModeAttacking
	if def, ok := f.Char.Move(id); ok && def.Throw {
		f.throwBack = f.holdingBack
	}
	f.beginMove(id, mode)
}

func (f *Fighter) beginMove(id string, mode Mode) {
	f.attackID = id
	f.attackSpec = f.Char.AttackFor(id)
	f.attackDef, _ = f.Char.Move(id)
	f.Mode = mode
	f.VX = 0
	f.startedThisTick = true
	f.hitCancelLeft = 0
	f.hasHit = false
	f.recoveryBonusLeft = 0
	f.spawnKind = ProjectileNone
	if f.attackDef != nil && f.attackDef.Projectile != ProjectileNone {
		f.spawnKind = f.attackDef.Projectile
		f.spawnTick = f.attackDef.SpawnTick
	}
	f.queue = f.queue[:0]
	f.role = id
	f.setTimeline(f.Char.TimelineFor(id))
}

func (f *Fighter) clearAttack() {
	f.attackID = ""
	f.attackDef = nil
	f.attackSpec = AttackSpec{}
	f.spawnKind = ProjectileNone
	f.hitCancelLeft = 0
	f.recoveryBonusLeft = 0
	f.hasHit = false
	f.throwBack = false
	f.hitSig = ""
}

func (f *Fighter) setTimeline(t *Timeline) {
	f.timeline = t
	f.elapsed = 0
	f.frameIdx = 0
	f.timelineDone = false
	f.hitSig = ""
	f.refreshHitRun()
}

// setRole switches to a reaction or movement timeline, keeping the pointer
// when the role is unchanged.
func (f *Fighter) setRole(role string) {
	if f.role == role && f.timeline != nil {
		return
	}
	f.role = role
	f.setTimeline(f.Char.TimelineFor(role))
}

func (f *Fighter) refreshHitRun() {
	sig := ""
	if f.attackID != "" && f.timeline != nil && !f.timelineDone {
		sig = f.timeline.HitSignature(f.frameIdx)
	}
	if sig != f.hitSig {
		f.hitSig = sig
		if sig != "" {
			f.hitRun++
		}
	}
}

func (f *Fighter) advanceTimeline() {
	if f.timeline == nil {
		return
	}
	f.elapsed++
	f.frameIdx, f.timelineDone = f.timeline.FrameAt(f.elapsed)
	f.refreshHitRun()
}

// Advance runs one tick. A hitstopped fighter only counts hitstop down.
func (f *Fighter) Advance() {
	if f.HitstopLeft > 0 {
		f.HitstopLeft--
		return
	}
	f.decayKnockback()
	f.tickTimers()
	f.advanceTimeline()
	f.advanceMotion()
	f.integrate()
	f.clampToStage()
	f.resolveTransitions()
}

func (f *Fighter) tickTimers() {
	dec := func(v *int) {
		if *v > 0 {
			*v--
		}
	}
	dec(&f.hitstunLeft)
	dec(&f.blockstunLeft)
	dec(&f.knockdownLeft)
	dec(&f.thrownLeft)
	dec(&f.guardLatch)
	dec(&f.hitCancelLeft)
	dec(&f.comboDisplayLeft)
	dec(&f.comboHitstun)
}

func (f *Fighter) resolveTransitions() {
	switch f.Mode {
	case ModeAttacking, ModeRushing:
		if f.timelineDone {
			if f.recoveryBonusLeft > 0 {
				f.recoveryBonusLeft--
				return
			}
			f.clearAttack()
			f.toNeutral()
		}
	case ModeHitstun:
		if f.Health <= 0 {
			f.EnterKnockdown()
			return
		}
		if f.hitstunLeft <= 0 {
			f.comboVictim = false
			f.toNeutral()
		}
	case ModeBlockstun:
		if f.Health <= 0 {
			f.EnterKnockdown()
			return
		}
		if f.blockstunLeft <= 0 {
			f.toNeutral()
		}
	case ModeKnockdown:
		if f.knockdownLeft <= 0 && f.Health > 0 {
			f.comboVictim = false
			f.toNeutral()
		}
	case ModeThrown:
		if f.thrownLeft <= 0 {
			if f.relocate {
				f.X = clampf(f.relocateX, f.halfWidth(), f.sim.StageWidth-f.halfWidth())
				f.relocate = false
			}
			f.EnterKnockdown()
		}
	case ModeDashing, ModeStepping:
		if f.motionLeft <= 0 {
			f.toNeutral()
		}
	case ModeIdle, ModeMoving:
		f.selectNeutralRole()
	}

	if f.CanAct() && len(f.queue) > 0 {
		f.replayBuffered()
	}
}

func (f *Fighter) toNeutral() {
	f.Mode = ModeIdle
	f.motionLeft = 0
	f.selectNeutralRole()
}

func (f *Fighter) selectNeutralRole() {
	switch {
	case f.VX != 0 && f.OnGround:
		f.Mode = ModeMoving
		f.setRole(RoleWalk)
	case !f.OnGround:
		f.Mode = ModeIdle
		f.setRole(RoleJump)
	case f.Crouching:
		f.Mode = ModeIdle
		f.setRole(RoleCrouch)
	default:
		f.Mode = ModeIdle
		f.setRole(RoleIdle)
	}
}

// CanDealDamage reports whether the current frame carries a hit group that
// has not yet been registered.
func (f *Fighter) CanDealDamage() bool {
	if !f.IsAttacking() || f.attackID == "" || f.hitSig == "" {
		return false
	}
	if f.attackDef != nil && f.attackDef.Throw {
		return false
	}
	return f.hitRun != f.registeredRun
}

// RegisterCurrentHit marks the current hit group as spent.
func (f *Fighter) RegisterCurrentHit() {
	f.registeredRun = f.hitRun
	f.hasHit = true
}

// AttackRecovery is the attacker's remaining recovery used for frame advantage.
func (f *Fighter) AttackRecovery() int {
	if f.timeline == nil || f.attackID == "" {
		return 0
	}
	// Throw timelines carry no hit geometry, so Info cannot split them.
	if f.attackDef != nil && f.attackDef.Throw {
		return f.attackDef.Frames.Recovery + f.recoveryBonusLeft
	}
	return f.timeline.Info().Recovery + f.recoveryBonusLeft
}

// CanGuardNow reports whether a guard may start or continue this tick.
func (f *Fighter) CanGuardNow() bool {
	if !f.OnGround {
		return false
	}
	switch f.Mode {
	case ModeBlockstun:
		return true
	case ModeHitstun:
		return f.hitstunLeft <= f.cfg.HitstunGuardEarlyAcceptFrames
	case ModeIdle, ModeMoving:
		return true
	}
	return false
}

// IsGuardingIntent reports back held now or within the guard latch.
func (f *Fighter) IsGuardingIntent() bool { return f.autoGuard || f.holdingBack || f.guardLatch > 0 }

// SetAutoGuard makes the fighter guard every attack it can, as a training
// dummy. Attribute and stun rules still apply.
func (f *Fighter) SetAutoGuard(on bool) { f.autoGuard = on }

// RestoreTo sets health and power to the given values, clamped.
func (f *Fighter) RestoreTo(health, power int) {
	f.Health = clampi(health, 1, f.cfg.MaxHealth)
	f.Power = clampi(power, 0, f.cfg.PowerMax)
}

// IsStandingGuard reports guard intent while standing.
func (f *Fighter) IsStandingGuard() bool { return f.IsGuardingIntent() && !f.Crouching }

// IsCrouchingGuard reports guard intent while crouching.
func (f *Fighter) IsCrouchingGuard() bool { return f.IsGuardingIntent() && f.Crouching }

// EnterHitstun locks the fighter in hitstun for frames ticks.
func (f *Fighter) EnterHitstun(frames int) {
	f.clearAttack()
	f.Mode = ModeHitstun
	f.hitstunLeft = max(1, frames)
	f.blockstunLeft = 0
	f.motionLeft = 0
	f.VX = 0
	f.role = ""
	f.setRole(RoleHitstun)
}

// EnterBlockstun locks the fighter in blockstun for frames ticks.
func (f *Fighter) EnterBlockstun(frames int, crouching bool) {
	f.clearAttack()
	f.Mode = ModeBlockstun
	f.blockstunLeft = max(1, frames)
	f.hitstunLeft = 0
	f.motionLeft = 0
	f.VX = 0
	f.Crouching = crouching
	f.role = ""
	if crouching {
		f.setRole(RoleGuardCrouch)
	} else {
		f.setRole(RoleGuardStand)
	}
}

// EnterKnockdown puts the fighter down for the configured knockdown time.
func (f *Fighter) EnterKnockdown() {
	f.clearAttack()
	f.Mode = ModeKnockdown
	f.knockdownLeft = max(1, f.cfg.KnockdownFrames)
	f.hitstunLeft = 0
	f.blockstunLeft = 0
	f.motionLeft = 0
	f.VX = 0
	f.Crouching = false
	f.role = ""
	f.setRole(RoleKnockdown)
}

// EnterThrown locks the fighter while a throw plays out. When relocate is
// set the fighter is moved to x once the lock ends.
func (f *Fighter) EnterThrown(frames int, relocate bool, x float64) {
	f.clearAttack()
	f.Mode = ModeThrown
	f.thrownLeft = max(1, frames)
	f.hitstunLeft = 0
	f.blockstunLeft = 0
	f.VX = 0
	f.relocate = relocate
	f.relocateX = x
	f.role = ""
	f.setRole(RoleThrown)
}

// EnterCinematic hands the fighter over to the finisher sequence.
func (f *Fighter) EnterCinematic() {
	f.clearAttack()
	f.Mode = ModeCinematic
	f.VX, f.VY, f.KnockbackVX = 0, 0, 0
	f.motionLeft = 0
	f.setRole(RoleCinematic)
}

// ExitCinematic returns the fighter to neutral.
func (f *Fighter) ExitCinematic() {
	if f.Mode == ModeCinematic {
		f.toNeutral()
	}
}

// TakeDamage lowers health and converts part of the damage into power.
func (f *Fighter) TakeDamage(n int) {
	if n <= 0 {
		return
	}
	f.Health = clampi(f.Health-n, 0, f.cfg.MaxHealth)
	f.AddPower(int(math.Round(float64(n) * f.cfg.PowerGainOnDamageRatio)))
}

// AddPower adds (or with a negative n, removes) power within [0, PowerMax].
func (f *Fighter) AddPower(n int) {
	f.Power = clampi(f.Power+n, 0, f.cfg.PowerMax)
}

// SpendPower removes n power. It fails without side effects when n is
// negative or exceeds the current power.
func (f *Fighter) SpendPower(n int) bool {
	if n < 0 || f.Power < n {
		return false
	}
	f.Power -= n
	return true
}

// ApplyKnockback starts a decaying horizontal impulse that travels roughly px.
func (f *Fighter) ApplyKnockback(dir int, px int) {
	if px <= 0 || dir == 0 {
		return
	}
	v := float64(px)
	if d := f.cfg.KnockbackDecay; d > 0 && d < 1 {
		v = float64(px) * (1 - d)
	}
	f.KnockbackVX = clampf(f.KnockbackVX+float64(dir)*v, -f.cfg.KnockbackVXMax, f.cfg.KnockbackVXMax)
	f.knockbackFresh = true
}

// OpenHitCancel allows canceling the current attack for frames ticks.
func (f *Fighter) OpenHitCancel(frames int) {
	f.hitCancelLeft = max(f.hitCancelLeft, frames)
}

// HitCancelLeft returns the remaining cancel window.
func (f *Fighter) HitCancelLeft() int { return f.hitCancelLeft }

// AddRecoveryBonus extends the current attack's recovery.
func (f *Fighter) AddRecoveryBonus(frames int) {
	if frames > 0 && f.IsAttacking() {
		f.recoveryBonusLeft += frames
	}
}

// ApplyHitstop freezes the fighter for at least frames ticks.
func (f *Fighter) ApplyHitstop(frames int) {
	f.HitstopLeft = max(f.HitstopLeft, frames)
}

// FaceToward turns the fighter toward x when it is free to turn.
func (f *Fighter) FaceToward(x float64) {
	if !f.CanAct() || !f.OnGround {
		return
	}
	switch {
	case x > f.X+0.5:
		f.Facing = 1
	case x < f.X-0.5:
		f.Facing = -1
	}
}

// ============================================================================
// Combo bookkeeping
// ============================================================================

// IsComboVictimOf reports whether side owns the combo currently on this fighter.
func (f *Fighter) IsComboVictimOf(side Side) bool {
	return f.comboVictim && f.comboOwner == side
}

// InCombo reports whether the fighter is the victim of a running combo.
func (f *Fighter) InCombo() bool { return f.comboVictim }

// SetComboVictim tags the fighter as the victim of side's combo.
func (f *Fighter) SetComboVictim(side Side, hitstun int) {
	f.comboVictim = true
	f.comboOwner = side
	f.comboHitstun = hitstun
}

// StartCombo resets the attacker's counter to one hit.
func (f *Fighter) StartCombo() {
	f.ComboCount = 1
	f.ComboDamage = 0
	f.comboActive = true
	f.comboDisplayLeft = f.cfg.ComboDisplayFrames
}

// ExtendCombo adds a hit to the attacker's running combo.
func (f *Fighter) ExtendCombo() {
	if !f.comboActive {
		f.StartCombo()
		return
	}
	f.ComboCount++
	f.comboDisplayLeft = f.cfg.ComboDisplayFrames
}

// AddComboDamage accrues damage dealt in the running combo.
func (f *Fighter) AddComboDamage(n int) { f.ComboDamage += n }

// EndCombo stops counting. The counter stays visible until the display timer runs out.
func (f *Fighter) EndCombo() { f.comboActive = false }

// ComboActive reports whether the attacker's combo is still running.
func (f *Fighter) ComboActive() bool { return f.comboActive }

// ComboVisible reports whether the counter should be displayed.
func (f *Fighter) ComboVisible() bool { return f.ComboCount > 1 && f.comboDisplayLeft > 0 }

// ============================================================================
// Specials
// ============================================================================

func (f *Fighter) canStartSpecial() bool {
	if !f.OnGround {
		return false
	}
	switch f.Mode {
	case ModeIdle, ModeMoving:
		return f.HitstopLeft == 0
	case ModeAttacking:
		return f.startedThisTick || f.canCancel()
	}
	return false
}

func (f *Fighter) specialAllowed(spec *CommandSpec) bool {
	if spec.RequiresPower && f.Power < f.cfg.SuperCost {
		return false
	}
	if spec.MaxHealthRatio > 0 && float64(f.Health) > spec.MaxHealthRatio*float64(f.cfg.MaxHealth) {
		return false
	}
	return true
}

// TrySpecial runs the command recognizer for this tick. pressed is the
// attack id pressed this tick, empty when none.
func (f *Fighter) TrySpecial(pressed string) (*CommandSpec, bool) {
	if !f.canStartSpecial() {
		return nil, false
	}
	spec, ok := f.commands.TryMatch(f.Char.Specials, f.tick, pressed, f.specialAllowed)
	if !ok {
		return nil, false
	}
	if !f.performSpecial(spec) {
		return nil, false
	}
	return spec, true
}

func (f *Fighter) performSpecial(spec *CommandSpec) bool {
	if spec.RequiresPower && !f.SpendPower(f.cfg.SuperCost) {
		return false
	}
	switch spec.Key {
	case SpecialRush:
		f.beginMove(spec.Key, ModeRushing)
	case SpecialFinisher:
		f.EnterCinematic()
		f.pendingFinisher = true
		f.pendingFreeze = max(f.pendingFreeze, f.cfg.CinematicFreezeFrames)
	default:
		f.beginMove(spec.Key, ModeAttacking)
		if spec.RequiresPower {
			f.pendingFreeze = max(f.pendingFreeze, f.cfg.SuperFreezeFrames)
		}
	}
	f.AddPower(f.cfg.PowerGainSpecialUse)
	return true
}

// TakeSpawn returns a projectile the current move released this tick.
func (f *Fighter) TakeSpawn() (ProjectileKind, bool) {
	k := f.spawnReady
	f.spawnReady = ProjectileNone
	return k, k != ProjectileNone
}

// TakeSuperFreeze returns and clears a requested super freeze.
func (f *Fighter) TakeSuperFreeze() int {
	n := f.pendingFreeze
	f.pendingFreeze = 0
	return n
}

// TakeFinisherRequest reports and clears a queued finisher.
func (f *Fighter) TakeFinisherRequest() bool {
	ok := f.pendingFinisher
	f.pendingFinisher = false
	return ok
}

// IsRushEarlyHit reports whether a rush is still inside its early travel window.
func (f *Fighter) IsRushEarlyHit() bool {
	if f.Mode != ModeRushing {
		return false
	}
	travel := f.elapsed - f.cfg.RushStartupFrames
	return travel >= 0 && travel < f.cfg.RushEarlyHitFrames
}
