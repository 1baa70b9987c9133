package game

import (
	"errors"
	"fmt"
	"sort"
)

// Reaction and action roles looked up through ActionCandidates.
const (
	RoleIdle         = "idle"
	RoleWalk         = "walk"
	RoleCrouch       = "crouch"
	RoleJump         = "jump"
	RoleHitstun      = "hitstun"
	RoleGuardStand   = "guard_stand"
	RoleGuardCrouch  = "guard_crouch"
	RoleKnockdown    = "knockdown"
	RoleThrown       = "thrown"
	RoleDash         = "dash"
	RoleCinematic    = "cinematic"
	RoleFinisherDash = "finisher_dash"
)

// Special command keys with engine-side behaviour.
const (
	SpecialHadoken  = "HADOKEN"
	SpecialRush     = "RUSH"
	SpecialShinku   = "SHINKU_HADOKEN"
	SpecialFinisher = "SHUNGOKUSATSU"
)

// FrameData is the authored startup/active/recovery breakdown of a move. It
// is used to synthesize a timeline when none is authored and to time throws.
type FrameData struct {
	Startup  int  `yaml:"startup" json:"startup"`
	Active   int  `yaml:"active" json:"active"`
	Recovery int  `yaml:"recovery" json:"recovery"`
	Hitbox   Rect `yaml:"hitbox" json:"hitbox"`
}

// MoveDef binds an attack identifier to its timeline and combat data.
type MoveDef struct {
	ID         string         `json:"id"`
	Timeline   *Timeline      `json:"-"`
	Attack     AttackSpec     `json:"attack"`
	Frames     FrameData      `json:"frames"`
	Projectile ProjectileKind `json:"projectile,omitempty"`
	SpawnTick  int            `json:"spawnTick,omitempty"`
	Throw      bool           `json:"throw,omitempty"`
}

// CharacterDefinition is the immutable per-character table: moves, input
// classification, command list and reaction timelines.
type CharacterDefinition struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Moves     map[string]*MoveDef  `json:"moves"`
	Timelines map[string]*Timeline `json:"-"`

	PunchIDs []string      `json:"punchIds"`
	KickIDs  []string      `json:"kickIds"`
	Specials []CommandSpec `json:"specials"`

	// ActionCandidates lists timeline ids per role or move, best first.
	ActionCandidates map[string][]string `json:"actionCandidates"`
}

// ResolveCandidate returns the first candidate accepted by has.
func ResolveCandidate(candidates []string, has func(string) bool) (string, bool) {
	for _, c := range candidates {
		if c != "" && has(c) {
			return c, true
		}
	}
	return "", false
}

// ButtonFor classifies an attack id as a punch or kick token.
func (c *CharacterDefinition) ButtonFor(attackID string) Token {
	for _, id := range c.PunchIDs {
		if id == attackID {
			return BtnP
		}
	}
	for _, id := range c.KickIDs {
		if id == attackID {
			return BtnK
		}
	}
	return TokNone
}

// Move returns the move table entry for id.
func (c *CharacterDefinition) Move(id string) (*MoveDef, bool) {
	m, ok := c.Moves[id]
	return m, ok
}

// AttackFor returns the attack spec for id, or the default spec when the
// table has no entry.
func (c *CharacterDefinition) AttackFor(id string) AttackSpec {
	if m, ok := c.Moves[id]; ok {
		return m.Attack
	}
	return DefaultAttackSpec()
}

func (c *CharacterDefinition) hasTimeline(id string) bool {
	_, ok := c.Timelines[id]
	return ok
}

// TimelineFor resolves a timeline for a move or role. Lookup order: the move's
// own timeline, its action candidates, a timeline with the same id, and finally
// a synthesized one. It never returns nil.
func (c *CharacterDefinition) TimelineFor(id string) *Timeline {
	if m, ok := c.Moves[id]; ok && m.Timeline != nil && len(m.Timeline.Frames) > 0 {
		return m.Timeline
	}
	if tid, ok := ResolveCandidate(c.ActionCandidates[id], c.hasTimeline); ok {
		return c.Timelines[tid]
	}
	if t, ok := c.Timelines[id]; ok && len(t.Frames) > 0 {
		return t
	}
	return c.synthesize(id)
}

func (c *CharacterDefinition) synthesize(id string) *Timeline {
	if m, ok := c.Moves[id]; ok {
		fd := m.Frames
		if fd.Startup+fd.Active+fd.Recovery > 0 {
			if m.Throw || fd.Hitbox.Empty() {
				return Synthesize(id, fd.Startup+fd.Active, 0, fd.Recovery, Rect{}, nil)
			}
			return Synthesize(id, fd.Startup, fd.Active, fd.Recovery, fd.Hitbox, nil)
		}
		return Synthesize(id, 4, 3, 10, c.defaultHitbox(), nil)
	}
	return holdTimeline(id, nil)
}

// defaultHitbox reaches 30 px past the body edge at chest height.
func (c *CharacterDefinition) defaultHitbox() Rect {
	return Rect{X: c.Width/2 - 5, Y: -c.Height + 20, W: 40, H: 25}
}

// Special returns the command spec with the given key.
func (c *CharacterDefinition) Special(key string) (*CommandSpec, bool) {
	for i := range c.Specials {
		if c.Specials[i].Key == key {
			return &c.Specials[i], true
		}
	}
	return nil, false
}

// MoveIDs returns the move table keys in sorted order.
func (c *CharacterDefinition) MoveIDs() []string {
	ids := make([]string, 0, len(c.Moves))
	for id := range c.Moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate reports table problems. The engine runs with a flawed table by
// falling back to defaults, so callers usually log the error and continue.
func (c *CharacterDefinition) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("character has no name"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("%s: body size %gx%g must be positive", c.Name, c.Width, c.Height))
	}
	for _, id := range c.MoveIDs() {
		m := c.Moves[id]
		if m.Attack.Damage < 0 {
			errs = append(errs, fmt.Errorf("%s: move %s has negative damage", c.Name, id))
		}
		if r := m.Attack.ChipRatio; r != nil && (*r < 0 || *r > 1) {
			errs = append(errs, fmt.Errorf("%s: move %s chip ratio %g outside [0,1]", c.Name, id, *r))
		}
		if m.Timeline != nil {
			for i, f := range m.Timeline.Frames {
				if f.Duration <= 0 {
					errs = append(errs, fmt.Errorf("%s: move %s frame %d has duration %d", c.Name, id, i, f.Duration))
				}
			}
		}
		if m.Projectile != ProjectileNone && m.SpawnTick <= 0 {
			errs = append(errs, fmt.Errorf("%s: move %s spawns a projectile without a spawn tick", c.Name, id))
		}
	}
	for role, cands := range c.ActionCandidates {
		if _, ok := ResolveCandidate(cands, c.hasTimeline); !ok {
			if _, isMove := c.Moves[role]; !isMove {
				errs = append(errs, fmt.Errorf("%s: no timeline for %s among %v", c.Name, role, cands))
			}
		}
	}
	for _, s := range c.Specials {
		if len(s.Sequences) == 0 {
			errs = append(errs, fmt.Errorf("%s: special %s has no sequences", c.Name, s.Key))
		}
		for _, seq := range s.Sequences {
			if len(seq) == 0 || !seq[len(seq)-1].IsButton() {
				errs = append(errs, fmt.Errorf("%s: special %s sequence %v must end with a button", c.Name, s.Key, seq))
			}
		}
		switch s.EarlyKey {
		case EarlyKickRush, EarlyPunchHadoken, EarlyPunchShinku:
		default:
			errs = append(errs, fmt.Errorf("%s: special %s has unknown early key %q", c.Name, s.Key, s.EarlyKey))
		}
	}
	return errors.Join(errs...)
}
