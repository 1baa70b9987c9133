package game

import (
	"math"

	"github.com/tanema/gween/ease"

	"script-fighters/internal/config"
)

// CinematicPhase is the finisher sequence state.
type CinematicPhase uint8

const (
	PhaseIdle CinematicPhase = iota
	PhaseStartup
	PhaseDashing
	PhaseFrozen
	PhaseFinishing
	PhaseKOLoop
	PhaseLocked
)

var phaseNames = [...]string{
	PhaseIdle:      "idle",
	PhaseStartup:   "startup",
	PhaseDashing:   "dashing",
	PhaseFrozen:    "frozen",
	PhaseFinishing: "finishing",
	PhaseKOLoop:    "ko_loop",
	PhaseLocked:    "locked",
}

func (p CinematicPhase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p CinematicPhase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

const (
	finisherStartupFrames = 8
	finisherDashSpeed     = 9.0
	finisherSnapDistance  = 48.0

	koImageFirst    = 1
	koImageLast     = 16
	koImageLoopFrom = 10
	koTicksPerImage = 4

	panFrames = 12
	panFactor = 0.35
	panMax    = 18.0
)

// CinematicStep reports what changed during one Update.
type CinematicStep struct {
	From, To CinematicPhase
	Damage   int
	KO       bool
	Resumed  bool
}

// Changed reports a phase transition.
func (s CinematicStep) Changed() bool { return s.From != s.To }

// Cinematic sequences the scripted finisher. While active it owns both
// fighters: push resolution and normal hits are suspended.
type Cinematic struct {
	Phase    CinematicPhase
	Attacker Side
	Defender Side

	PendingDamage int
	PendingKO     bool
	KOImage       int
	PanOffset     float64

	timer      int
	phaseTicks int
	koTicks    int
	panTick    int
	panTarget  float64
	panActive  bool

	startupFrames int
	dashFrames    int
	frozenFrames  int
	impactEvery   int

	sim      config.SimulationConfig
	cfg      config.CombatConfig
	requests *RequestQueue

	trace []CinematicPhase
}

// NewCinematic creates an idle sequencer with timings derived from the tick rate.
func NewCinematic(sim config.SimulationConfig, cfg config.CombatConfig, q *RequestQueue) *Cinematic {
	fps := max(1, sim.FPS)
	return &Cinematic{
		startupFrames: finisherStartupFrames,
		dashFrames:    int(math.Round(float64(fps) * 1.2)),
		frozenFrames:  int(math.Round(float64(fps) * 2.5)),
		impactEvery:   max(1, fps/10),
		sim:           sim,
		cfg:           cfg,
		requests:      q,
	}
}

// Active reports whether the sequence owns the fighters.
func (c *Cinematic) Active() bool { return c.Phase != PhaseIdle }

// Frozen reports whether normal fighter updates are suspended.
func (c *Cinematic) Frozen() bool { return c.Phase == PhaseFrozen }

// LocksInput reports whether player input must be ignored this tick.
func (c *Cinematic) LocksInput() bool {
	return c.Phase == PhaseFrozen || c.Phase == PhaseFinishing || c.Phase == PhaseLocked || c.Phase == PhaseKOLoop
}

// SuspendsCollision reports whether push and normal hit checks are skipped.
func (c *Cinematic) SuspendsCollision() bool {
	return c.Active() && c.Phase != PhaseLocked
}

// Trace returns the phases entered since the last Start, in order.
func (c *Cinematic) Trace() []CinematicPhase {
	out := make([]CinematicPhase, len(c.trace))
	copy(out, c.trace)
	return out
}

// Reset returns the sequencer to idle without touching the fighters.
func (c *Cinematic) Reset() {
	*c = Cinematic{
		startupFrames: c.startupFrames,
		dashFrames:    c.dashFrames,
		frozenFrames:  c.frozenFrames,
		impactEvery:   c.impactEvery,
		sim:           c.sim,
		cfg:           c.cfg,
		requests:      c.requests,
		trace:         c.trace[:0],
	}
}

func (c *Cinematic) enter(p CinematicPhase, timer int) {
	c.Phase = p
	c.timer = timer
	c.phaseTicks = 0
	c.trace = append(c.trace, p)
}

// Start begins the sequence for attacker against defender.
func (c *Cinematic) Start(attacker, defender *Fighter) {
	c.Reset()
	c.Attacker = attacker.Side
	c.Defender = defender.Side
	attacker.EnterCinematic()
	c.enter(PhaseStartup, c.startupFrames)
}

// Update advances the sequence by one tick.
func (c *Cinematic) Update(attacker, defender *Fighter) CinematicStep {
	step := CinematicStep{From: c.Phase, To: c.Phase}
	c.phaseTicks++
	c.updatePan()

	switch c.Phase {
	case PhaseStartup:
		c.timer--
		if c.timer <= 0 {
			c.enter(PhaseDashing, c.dashFrames)
		}

	case PhaseDashing:
		attacker.X += float64(attacker.Facing) * finisherDashSpeed
		attacker.ClampToStage()
		if c.touches(attacker, defender) {
			c.connect(attacker, defender)
			break
		}
		c.timer--
		if c.timer <= 0 {
			attacker.ExitCinematic()
			c.Phase = PhaseIdle
			c.trace = append(c.trace, PhaseIdle)
		}

	case PhaseFrozen:
		c.timer--
		if c.phaseTicks%c.impactEvery == 0 {
			c.requests.Effect(EffectFinisherImpact, defender.BodyRect().Center())
			c.requests.Sound(SoundHit)
		}
		if c.timer <= 0 {
			c.enter(PhaseFinishing, 1)
		}

	case PhaseFinishing:
		defender.Mode = ModeIdle
		defender.TakeDamage(c.PendingDamage)
		defender.EnterKnockdown()
		attacker.ExitCinematic()
		step.Damage = c.PendingDamage
		if c.PendingKO || defender.Health <= 0 {
			step.KO = true
			c.KOImage = koImageFirst
			c.koTicks = 0
			c.requests.Sound(SoundKO)
			c.enter(PhaseKOLoop, 0)
		} else {
			c.enter(PhaseLocked, 0)
		}

	case PhaseKOLoop:
		c.koTicks++
		if c.koTicks%koTicksPerImage == 0 {
			c.KOImage++
			if c.KOImage > koImageLast {
				c.KOImage = koImageLoopFrom
			}
		}

	case PhaseLocked:
		if defender.Mode != ModeKnockdown {
			c.requests.Sound(SoundResumeAudio)
			step.Resumed = true
			c.Phase = PhaseIdle
			c.trace = append(c.trace, PhaseIdle)
		}
	}

	step.To = c.Phase
	return step
}

func (c *Cinematic) touches(attacker, defender *Fighter) bool {
	body := attacker.BodyRect()
	for _, hurt := range defender.Hurtboxes() {
		if body.Intersects(hurt) {
			return true
		}
	}
	return false
}

func (c *Cinematic) connect(attacker, defender *Fighter) {
	attacker.X = defender.X - float64(attacker.Facing)*finisherSnapDistance
	attacker.ClampToStage()
	defender.EnterCinematic()
	c.PendingDamage = c.cfg.FinisherDamage
	c.PendingKO = defender.Health-c.PendingDamage <= 0
	c.startPan(attacker.X)
	c.enter(PhaseFrozen, c.frozenFrames)
}

func (c *Cinematic) startPan(x float64) {
	target := math.Round((x - c.sim.StageWidth/2) * panFactor)
	c.panTarget = clampf(target, -panMax, panMax)
	c.panTick = 0
	c.panActive = true
	c.PanOffset = 0
}

// updatePan eases out to the target over the first half and back over the
// second half.
func (c *Cinematic) updatePan() {
	if !c.panActive {
		return
	}
	c.panTick++
	half := float32(panFrames) / 2
	t := float32(c.panTick)
	var e float32
	if t <= half {
		e = ease.Linear(t, 0, 1, half)
	} else {
		e = ease.Linear(t-half, 1, -1, half)
	}
	c.PanOffset = -c.panTarget * float64(e)
	if c.panTick >= panFrames {
		c.panActive = false
		c.PanOffset = 0
	}
}
