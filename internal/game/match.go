package game

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"script-fighters/internal/config"
)

// Callbacks observe match outcomes. Every field is optional and runs on the
// simulation goroutine, so handlers must not block.
type Callbacks struct {
	OnOutcome   func(out HitOutcome, projectile bool)
	OnSpecial   func(side Side, key string)
	OnCinematic func(step CinematicStep)
	OnKO        func(winner Side)
	OnStep      func(m *Match)
}

// Match is one round between two fighters. It is single-writer: Step must
// only be called from one goroutine.
type Match struct {
	ID string

	sim config.SimulationConfig
	cfg config.CombatConfig

	fighters [2]*Fighter

	projectiles  []*Projectile
	projectileID uint64

	requests  *RequestQueue
	resolver  *Resolver
	cinematic *Cinematic
	meter     *FrameMeter
	snapshots *SnapshotPool

	tick             uint64
	superFreeze      int
	pendingCinematic Side

	over   bool
	winner Side

	training config.TrainingConfig
	settled  [2]int // Consecutive free ticks per fighter, for auto recovery

	outcomes []HitOutcome

	events    *EventLog
	callbacks Callbacks
	logger    *zap.Logger
	stage     Rect
}

// NewMatch creates a round with p1 and p2 at their start positions.
func NewMatch(sim config.SimulationConfig, cfg config.CombatConfig, p1, p2 *CharacterDefinition, logger *zap.Logger) *Match {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := NewRequestQueue()
	m := &Match{
		ID:          uuid.NewString(),
		sim:         sim,
		cfg:         cfg,
		projectiles: make([]*Projectile, 0, MaxProjectiles),
		requests:    q,
		resolver:    NewResolver(cfg, q),
		cinematic:   NewCinematic(sim, cfg, q),
		meter:       NewFrameMeter(cfg.AdvantageDisplayFrames),
		snapshots:   NewSnapshotPool(),
		outcomes:    make([]HitOutcome, 0, 4),
		logger:      logger,
		stage:       Rect{W: sim.StageWidth, H: sim.StageHeight},
		training:    config.DefaultTraining(),
	}
	m.fighters[0] = NewFighter(SideP1, p1, sim, cfg)
	m.fighters[1] = NewFighter(SideP2, p2, sim, cfg)
	m.publish()
	return m
}

// SetEventLog attaches an event log. nil detaches it.
func (m *Match) SetEventLog(el *EventLog) { m.events = el }

// SetCallbacks replaces the outcome observers.
func (m *Match) SetCallbacks(cb Callbacks) { m.callbacks = cb }

// Fighter returns the fighter on side.
func (m *Match) Fighter(side Side) *Fighter {
	if side == SideP2 {
		return m.fighters[1]
	}
	return m.fighters[0]
}

// Tick returns the number of completed steps.
func (m *Match) Tick() uint64 { return m.tick }

// Projectiles returns the live projectiles. The slice is reused across ticks.
func (m *Match) Projectiles() []*Projectile { return m.projectiles }

// Cinematic exposes the finisher sequencer.
func (m *Match) Cinematic() *Cinematic { return m.cinematic }

// FrameMeter exposes the frame history.
func (m *Match) FrameMeter() *FrameMeter { return m.meter }

// SuperFreeze returns the remaining global freeze.
func (m *Match) SuperFreeze() int { return m.superFreeze }

// Over reports whether the round has a result.
func (m *Match) Over() bool { return m.over }

// Winner returns the winning side, SideNone on a double KO or while running.
func (m *Match) Winner() Side { return m.winner }

// Outcomes returns the hits resolved during the last step.
func (m *Match) Outcomes() []HitOutcome { return m.outcomes }

// DrainRequests appends pending presentation requests to dst and clears them.
func (m *Match) DrainRequests(dst []Request) []Request { return m.requests.Drain(dst) }

// Snapshot returns the latest published snapshot.
func (m *Match) Snapshot() *MatchSnapshot { return m.snapshots.AcquireRead() }

// SetTraining replaces the practice rules. The dummy is always P2.
func (m *Match) SetTraining(t config.TrainingConfig) {
	m.training = t
	m.fighters[1].SetAutoGuard(t.DummyGuard)
	m.settled = [2]int{}
}

// Training returns the active practice rules.
func (m *Match) Training() config.TrainingConfig { return m.training }

// SetCharacters swaps both character tables without resetting the round.
func (m *Match) SetCharacters(p1, p2 *CharacterDefinition) {
	if p1 != nil {
		m.fighters[0].SetCharacter(p1)
	}
	if p2 != nil {
		m.fighters[1].SetCharacter(p2)
	}
}

// Reset starts a new round under a new match id.
func (m *Match) Reset() {
	prev := m.ID
	m.ID = uuid.NewString()
	for _, f := range m.fighters {
		f.ResetForRound()
	}
	clear(m.projectiles)
	m.projectiles = m.projectiles[:0]
	m.requests.Drain(nil)
	m.cinematic.Reset()
	m.meter.Reset()
	m.tick = 0
	m.superFreeze = 0
	m.pendingCinematic = SideNone
	m.over = false
	m.winner = SideNone
	m.outcomes = m.outcomes[:0]
	m.settled = [2]int{}

	m.emit(EventTypeRoundReset, "", RoundResetPayload{
		Previous: prev,
		P1:       m.fighters[0].Char.Name,
		P2:       m.fighters[1].Char.Name,
	})
	m.logger.Info("round reset", zap.String("match_id", m.ID), zap.String("previous", prev))
	m.publish()
}

// Step advances the match by one tick.
func (m *Match) Step(inputs [2]Intent) {
	m.tick++
	m.requests.SetTick(m.tick)
	m.outcomes = m.outcomes[:0]

	if m.superFreeze > 0 {
		m.superFreeze--
		if m.superFreeze > 0 {
			m.finishStep()
			return
		}
		if m.pendingCinematic != SideNone {
			att := m.Fighter(m.pendingCinematic)
			m.cinematic.Start(att, m.Fighter(att.Side.Opponent()))
			m.pendingCinematic = SideNone
			m.logger.Info("finisher started", zap.String("match_id", m.ID), zap.Stringer("attacker", att.Side))
		}
	}

	m.applyInputs(inputs)

	if !m.cinematic.Frozen() {
		for _, f := range m.fighters {
			f.Advance()
		}
	}

	m.spawnProjectiles()

	p1, p2 := m.fighters[0], m.fighters[1]
	suspended := m.cinematic.SuspendsCollision()
	ResolvePush(p1, p2, suspended)
	if !suspended {
		m.record(m.resolver.ResolveThrow(p1, p2), false)
		m.record(m.resolver.ResolveThrow(p2, p1), false)
		for _, pair := range [2][2]*Fighter{{p1, p2}, {p2, p1}} {
			if pt, ok := CheckHit(pair[0], pair[1]); ok {
				m.record(m.resolver.ResolveHit(pair[0], pair[1], pt), false)
			}
		}
	}

	m.updateProjectiles()

	if m.cinematic.Active() {
		att, def := m.Fighter(m.cinematic.Attacker), m.Fighter(m.cinematic.Defender)
		step := m.cinematic.Update(att, def)
		if step.Changed() {
			m.onCinematic(step, att.Side)
		}
		if step.KO {
			m.finishRound(att.Side, SpecialFinisher)
		}
	}

	if !m.cinematic.Active() {
		p1.FaceToward(p2.X)
		p2.FaceToward(p1.X)
	}
	m.updateCombos()
	m.checkKO()
	m.autoRecover()
	m.finishStep()
}

func (m *Match) applyInputs(inputs [2]Intent) {
	for i, f := range m.fighters {
		in := inputs[i]
		if f.Side == SideP2 {
			in = m.lockDummy(in)
		}
		masked := m.over || m.cinematic.LocksInput() ||
			(m.cinematic.Active() && f.Side == m.cinematic.Attacker)
		if masked {
			in = Intent{}
		}
		f.ApplyIntent(in)
		if masked {
			continue
		}

		spec, ok := f.TrySpecial(in.Attack)
		if !ok {
			continue
		}
		m.emit(EventTypeSpecial, f.Side.String(), SpecialPayload{Side: f.Side.String(), Key: spec.Key, Power: f.Power})
		if m.callbacks.OnSpecial != nil {
			m.callbacks.OnSpecial(f.Side, spec.Key)
		}
		if n := f.TakeSuperFreeze(); n > 0 {
			m.superFreeze = max(m.superFreeze, n)
			m.requests.Effect(EffectSuperFlash, f.BodyRect().Center())
			m.requests.Sound(SoundSuperFreeze)
		}
		if f.TakeFinisherRequest() {
			m.pendingCinematic = f.Side
		}
	}
}

// lockDummy holds the training dummy in its configured posture.
func (m *Match) lockDummy(in Intent) Intent {
	switch m.training.DummyState {
	case config.DummyStand:
		in.Crouch, in.Jump = false, false
	case config.DummyCrouch:
		in.Crouch, in.Jump = true, false
	case config.DummyJump:
		in.Crouch, in.Jump = false, true
	}
	return in
}

// autoRecover refills a fighter once it has been free to act for the
// configured delay and nobody is comboing it.
func (m *Match) autoRecover() {
	t := m.training
	if !t.AutoRecover || m.over {
		return
	}
	for i, f := range m.fighters {
		if !f.CanAct() || f.InCombo() {
			m.settled[i] = 0
			continue
		}
		m.settled[i]++
		if m.settled[i] != max(1, t.RecoverDelay) {
			continue
		}
		f.RestoreTo(m.cfg.MaxHealth*t.HealthPercent/100, m.cfg.PowerMax*t.PowerPercent/100)
	}
}

func (m *Match) spawnProjectiles() {
	for _, f := range m.fighters {
		kind, ok := f.TakeSpawn()
		if !ok || len(m.projectiles) >= MaxProjectiles {
			continue
		}
		m.projectileID++
		p, ok := Spawn(kind, m.projectileID, f)
		if !ok {
			continue
		}
		m.projectiles = append(m.projectiles, p)
		m.emit(EventTypeProjectileSpawn, f.Side.String(), ProjectilePayload{
			ID: p.ID, Kind: p.Kind.String(), Owner: p.Owner.String(), X: p.X, Y: p.Y,
		})
	}
}

func (m *Match) updateProjectiles() {
	m.filterProjectiles(func(p *Projectile) bool { return p.Update(m.stage) })

	for _, p := range m.projectiles {
		owner := m.Fighter(p.Owner)
		target := m.Fighter(p.Owner.Opponent())
		out := m.resolver.ResolveProjectile(p, owner, target)
		if !out.Landed {
			continue
		}
		m.emit(EventTypeProjectileHit, owner.Side.String(), ProjectilePayload{
			ID: p.ID, Kind: p.Kind.String(), Owner: p.Owner.String(),
			X: p.X, Y: p.Y, Damage: out.Damage, Guard: out.Guarded,
		})
		m.record(out, true)
	}

	m.filterProjectiles(func(p *Projectile) bool { return !p.Finished() })
}

// filterProjectiles keeps projectiles for which keep returns true, in place.
func (m *Match) filterProjectiles(keep func(*Projectile) bool) {
	n := 0
	for _, p := range m.projectiles {
		if keep(p) {
			m.projectiles[n] = p
			n++
		}
	}
	clear(m.projectiles[n:])
	m.projectiles = m.projectiles[:n]
}

func (m *Match) record(out HitOutcome, projectile bool) {
	if !out.Landed {
		return
	}
	m.outcomes = append(m.outcomes, out)
	m.meter.RecordAdvantage(out.AttackerSide, out.FrameAdvantage)

	if m.callbacks.OnOutcome != nil {
		m.callbacks.OnOutcome(out, projectile)
	}

	defender := m.Fighter(out.AttackerSide.Opponent())
	if !projectile {
		typ := EventTypeHit
		switch {
		case out.Thrown:
			typ = EventTypeThrow
		case out.Guarded:
			typ = EventTypeGuard
		}
		m.emit(typ, out.AttackerSide.String(), HitPayload{
			Attacker:       out.AttackerSide.String(),
			Defender:       defender.Side.String(),
			AttackID:       out.AttackID,
			Damage:         out.Damage,
			DefenderHP:     defender.Health,
			ComboCount:     out.ComboCount,
			FrameAdvantage: out.FrameAdvantage,
			X:              out.HitPoint.X,
			Y:              out.HitPoint.Y,
		})
	}
	if out.Knockdown {
		m.emit(EventTypeKnockdown, defender.Side.String(), KnockdownPayload{Side: defender.Side.String(), KO: out.KO})
	}
	if out.KO {
		m.finishRound(out.AttackerSide, out.AttackID)
	}
}

func (m *Match) onCinematic(step CinematicStep, attacker Side) {
	m.emit(EventTypeCinematicPhase, attacker.String(), CinematicPayload{
		Attacker: attacker.String(),
		From:     step.From.String(),
		To:       step.To.String(),
		Damage:   step.Damage,
	})
	if m.callbacks.OnCinematic != nil {
		m.callbacks.OnCinematic(step)
	}
	m.logger.Debug("finisher phase",
		zap.String("match_id", m.ID),
		zap.Stringer("from", step.From),
		zap.Stringer("to", step.To))
}

// updateCombos ends an attacker's combo once its victim leaves hitstun.
func (m *Match) updateCombos() {
	for _, att := range m.fighters {
		if !att.ComboActive() {
			continue
		}
		def := m.Fighter(att.Side.Opponent())
		if def.InHitstun() && def.IsComboVictimOf(att.Side) {
			continue
		}
		att.EndCombo()
	}
}

func (m *Match) checkKO() {
	if m.over {
		return
	}
	p1, p2 := m.fighters[0], m.fighters[1]
	switch {
	case p1.Health <= 0 && p2.Health <= 0:
		m.finishRound(SideNone, "")
	case p1.Health <= 0:
		m.finishRound(SideP2, "")
	case p2.Health <= 0:
		m.finishRound(SideP1, "")
	}
}

func (m *Match) finishRound(winner Side, finish string) {
	if m.over {
		return
	}
	m.over = true
	m.winner = winner
	loser := SideNone
	if winner != SideNone {
		loser = winner.Opponent()
	}
	m.emit(EventTypeKO, winner.String(), KOPayload{Winner: winner.String(), Loser: loser.String(), Finish: finish})
	if m.callbacks.OnKO != nil {
		m.callbacks.OnKO(winner)
	}
	m.logger.Info("round over",
		zap.String("match_id", m.ID),
		zap.Uint64("tick", m.tick),
		zap.Stringer("winner", winner),
		zap.String("finish", finish))
}

func (m *Match) finishStep() {
	p1, p2 := m.fighters[0], m.fighters[1]
	m.meter.Push(ClassifyFrame(p1), ClassifyFrame(p2))

	if m.events != nil {
		for _, r := range m.requests.ForTick(m.tick) {
			typ := EventTypeEffectRequest
			if r.Kind == RequestSound {
				typ = EventTypeSoundRequest
			}
			m.emit(typ, "", RequestPayload{Name: r.Name, X: r.X, Y: r.Y})
		}
		if fps := uint64(max(1, m.sim.FPS)); m.tick%fps == 0 {
			m.emit(EventTypeTick, "", TickPayload{
				P1Health:    p1.Health,
				P2Health:    p2.Health,
				Projectiles: len(m.projectiles),
				SuperFreeze: m.superFreeze,
			})
		}
	}

	m.publish()
	if m.callbacks.OnStep != nil {
		m.callbacks.OnStep(m)
	}
}

func (m *Match) emit(typ EventType, source string, payload any) {
	if m.events == nil {
		return
	}
	m.events.EmitSimple(typ, m.tick, m.ID, source, payload)
}

func (m *Match) publish() {
	snap := m.snapshots.AcquireWrite()
	snap.MatchID = m.ID
	snap.Tick = m.tick
	for i, f := range m.fighters {
		fillFighterSnapshot(&snap.Fighters[i], f)
	}
	for _, p := range m.projectiles {
		snap.Projectiles = append(snap.Projectiles, ProjectileSnapshot{
			ID:     p.ID,
			Kind:   p.Kind,
			Owner:  p.Owner,
			X:      p.X,
			Y:      p.Y,
			Radius: p.Radius,
			Hits:   p.Hits(),
		})
	}
	c := m.cinematic
	snap.Cinematic = CinematicSnapshot{
		Phase:     c.Phase,
		Attacker:  c.Attacker,
		Defender:  c.Defender,
		PanOffset: c.PanOffset,
		KOImage:   c.KOImage,
	}
	snap.SuperFreeze = m.superFreeze
	snap.Advantage = m.meter.Advantage()
	snap.Over = m.over
	snap.Winner = m.winner
	m.snapshots.PublishWrite()
}
