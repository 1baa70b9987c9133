package game

import (
	"sync/atomic"
	"time"
)

// FighterSnapshot is an immutable copy of one fighter for rendering and the API.
// Uses value types so readers never observe live fighter state.
type FighterSnapshot struct {
	Side      Side       `json:"side" msgpack:"side"`
	Character string     `json:"character" msgpack:"character"`
	X         float64    `json:"x" msgpack:"x"`
	Y         float64    `json:"y" msgpack:"y"`
	Facing    int        `json:"facing" msgpack:"facing"`
	OnGround  bool       `json:"onGround" msgpack:"onGround"`
	Crouching bool       `json:"crouching" msgpack:"crouching"`
	Health    int        `json:"health" msgpack:"health"`
	MaxHealth int        `json:"maxHealth" msgpack:"maxHealth"`
	Power     int        `json:"power" msgpack:"power"`
	PowerMax  int        `json:"powerMax" msgpack:"powerMax"`
	Mode      string     `json:"mode" msgpack:"mode"`
	MoveID    string     `json:"moveId" msgpack:"moveId"`
	Frame     FrameClass `json:"frame" msgpack:"frame"`
	Hitstop   int        `json:"hitstop" msgpack:"hitstop"`
	StunLeft  int        `json:"stunLeft" msgpack:"stunLeft"`

	ComboCount   int  `json:"comboCount" msgpack:"comboCount"`
	ComboDamage  int  `json:"comboDamage" msgpack:"comboDamage"`
	ComboVisible bool `json:"comboVisible" msgpack:"comboVisible"`

	Hitboxes  []Rect `json:"hitboxes" msgpack:"hitboxes"`
	Hurtboxes []Rect `json:"hurtboxes" msgpack:"hurtboxes"`
	Pushbox   Rect   `json:"pushbox" msgpack:"pushbox"`
}

// ProjectileSnapshot is an immutable projectile for rendering.
type ProjectileSnapshot struct {
	ID     uint64         `json:"id" msgpack:"id"`
	Kind   ProjectileKind `json:"kind" msgpack:"kind"`
	Owner  Side           `json:"owner" msgpack:"owner"`
	X      float64        `json:"x" msgpack:"x"`
	Y      float64        `json:"y" msgpack:"y"`
	Radius float64        `json:"radius" msgpack:"radius"`
	Hits   int            `json:"hits" msgpack:"hits"`
}

// CinematicSnapshot captures the finisher sequence.
type CinematicSnapshot struct {
	Phase     CinematicPhase `json:"phase" msgpack:"phase"`
	Attacker  Side           `json:"attacker" msgpack:"attacker"`
	Defender  Side           `json:"defender" msgpack:"defender"`
	PanOffset float64        `json:"panOffset" msgpack:"panOffset"`
	KOImage   int            `json:"koImage" msgpack:"koImage"`
}

// MatchSnapshot is a complete immutable match state.
type MatchSnapshot struct {
	Sequence  uint64    `json:"sequence" msgpack:"sequence"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	MatchID   string    `json:"matchId" msgpack:"matchId"`
	Tick      uint64    `json:"tick" msgpack:"tick"`

	Fighters    [2]FighterSnapshot   `json:"fighters" msgpack:"fighters"`
	Projectiles []ProjectileSnapshot `json:"projectiles" msgpack:"projectiles"`
	Cinematic   CinematicSnapshot    `json:"cinematic" msgpack:"cinematic"`
	SuperFreeze int                  `json:"superFreeze" msgpack:"superFreeze"`
	Advantage   Advantage            `json:"advantage" msgpack:"advantage"`

	Over   bool `json:"over" msgpack:"over"`
	Winner Side `json:"winner" msgpack:"winner"`
}

// maxBoxesPerFighter bounds the preallocated geometry slices.
const maxBoxesPerFighter = 8

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Uses triple buffering for lock-free producer/consumer.
type SnapshotPool struct {
	snapshots [3]MatchSnapshot
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool() *SnapshotPool {
	pool := &SnapshotPool{}
	for i := range pool.snapshots {
		s := &pool.snapshots[i]
		s.Projectiles = make([]ProjectileSnapshot, 0, MaxProjectiles)
		for j := range s.Fighters {
			s.Fighters[j].Hitboxes = make([]Rect, 0, maxBoxesPerFighter)
			s.Fighters[j].Hurtboxes = make([]Rect, 0, maxBoxesPerFighter)
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick).
// Slices are reset but keep their capacity.
func (p *SnapshotPool) AcquireWrite() *MatchSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Projectiles = snap.Projectiles[:0]
	for j := range snap.Fighters {
		snap.Fighters[j].Hitboxes = snap.Fighters[j].Hitboxes[:0]
		snap.Fighters[j].Hurtboxes = snap.Fighters[j].Hurtboxes[:0]
	}

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite marks the write complete and advances the read pointer.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer side).
func (p *SnapshotPool) AcquireRead() *MatchSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// Clone returns a deep copy that stays valid after further ticks.
func (s *MatchSnapshot) Clone() MatchSnapshot {
	out := *s
	out.Projectiles = append([]ProjectileSnapshot(nil), s.Projectiles...)
	for i := range out.Fighters {
		out.Fighters[i].Hitboxes = append([]Rect(nil), s.Fighters[i].Hitboxes...)
		out.Fighters[i].Hurtboxes = append([]Rect(nil), s.Fighters[i].Hurtboxes...)
	}
	return out
}

func fillFighterSnapshot(dst *FighterSnapshot, f *Fighter) {
	hit, hurt := dst.Hitboxes[:0], dst.Hurtboxes[:0]
	*dst = FighterSnapshot{
		Side:         f.Side,
		X:            f.X,
		Y:            f.Y,
		Facing:       f.Facing,
		OnGround:     f.OnGround,
		Crouching:    f.Crouching,
		Health:       f.Health,
		MaxHealth:    f.cfg.MaxHealth,
		Power:        f.Power,
		PowerMax:     f.cfg.PowerMax,
		Mode:         f.Mode.String(),
		MoveID:       f.MoveID(),
		Frame:        ClassifyFrame(f),
		Hitstop:      f.HitstopLeft,
		StunLeft:     f.StunLeft(),
		ComboCount:   f.ComboCount,
		ComboDamage:  f.ComboDamage,
		ComboVisible: f.ComboVisible(),
		Pushbox:      f.Pushbox(),
	}
	if f.Char != nil {
		dst.Character = f.Char.Name
	}
	dst.Hitboxes = append(hit, f.Hitboxes()...)
	dst.Hurtboxes = append(hurt, f.Hurtboxes()...)
}
