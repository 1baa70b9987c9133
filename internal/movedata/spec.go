// Package movedata loads character and move tables from YAML.
package movedata

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"script-fighters/internal/game"
)

// BodySpec is the default body box.
type BodySpec struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// FramesSpec is authored startup/active/recovery data.
type FramesSpec struct {
	Startup  int `yaml:"startup"`
	Active   int `yaml:"active"`
	Recovery int `yaml:"recovery"`
}

// HitboxSpec is a hitbox measured from the body's front edge and top.
type HitboxSpec struct {
	W       float64 `yaml:"w"`
	H       float64 `yaml:"h"`
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
}

// MoveSpec is one entry of the moves table.
type MoveSpec struct {
	Frames     FramesSpec          `yaml:"frames"`
	Hitbox     *HitboxSpec         `yaml:"hitbox"`
	Attack     *game.AttackSpec    `yaml:"attack"`
	Timeline   string              `yaml:"timeline"`
	Projectile game.ProjectileKind `yaml:"projectile"`
	SpawnTick  int                 `yaml:"spawn_tick"`
	Throw      bool                `yaml:"throw"`
}

// CharacterFile is the on-disk character table.
type CharacterFile struct {
	Name             string              `yaml:"name"`
	Body             BodySpec            `yaml:"body"`
	Punches          []string            `yaml:"punches"`
	Kicks            []string            `yaml:"kicks"`
	Moves            map[string]MoveSpec `yaml:"moves"`
	Timelines        []game.Timeline     `yaml:"timelines"`
	Specials         []game.CommandSpec  `yaml:"specials"`
	ActionCandidates map[string][]string `yaml:"action_candidates"`
}

// Parse decodes a character table.
func Parse(data []byte) (*CharacterFile, error) {
	var f CharacterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("movedata: unmarshal: %w", err)
	}
	return &f, nil
}

// Rect converts the authored hitbox into foot-anchor space for a body of
// the given size.
func (h HitboxSpec) Rect(bodyW, bodyH float64) game.Rect {
	return game.Rect{X: bodyW/2 + h.OffsetX, Y: h.OffsetY - bodyH, W: h.W, H: h.H}
}

// Build turns the file into an immutable character definition.
func (f *CharacterFile) Build() (*game.CharacterDefinition, error) {
	if f.Name == "" {
		return nil, errors.New("movedata: character has no name")
	}
	w, h := f.Body.Width, f.Body.Height
	if w <= 0 {
		w = 50
	}
	if h <= 0 {
		h = 90
	}

	def := &game.CharacterDefinition{
		Name:             f.Name,
		Width:            w,
		Height:           h,
		Moves:            make(map[string]*game.MoveDef, len(f.Moves)),
		Timelines:        make(map[string]*game.Timeline, len(f.Timelines)),
		PunchIDs:         append([]string(nil), f.Punches...),
		KickIDs:          append([]string(nil), f.Kicks...),
		Specials:         append([]game.CommandSpec(nil), f.Specials...),
		ActionCandidates: make(map[string][]string, len(f.ActionCandidates)),
	}

	for i := range f.Timelines {
		t := f.Timelines[i]
		if t.ID == "" {
			return nil, fmt.Errorf("movedata: %s: timeline %d has no id", f.Name, i)
		}
		def.Timelines[t.ID] = &t
	}
	for role, cands := range f.ActionCandidates {
		def.ActionCandidates[role] = append([]string(nil), cands...)
	}

	for id, ms := range f.Moves {
		m := &game.MoveDef{
			ID:         id,
			Attack:     game.DefaultAttackSpec(),
			Projectile: ms.Projectile,
			SpawnTick:  ms.SpawnTick,
			Throw:      ms.Throw,
			Frames: game.FrameData{
				Startup:  ms.Frames.Startup,
				Active:   ms.Frames.Active,
				Recovery: ms.Frames.Recovery,
			},
		}
		if ms.Attack != nil {
			m.Attack = *ms.Attack
		}
		if ms.Hitbox != nil {
			m.Frames.Hitbox = ms.Hitbox.Rect(w, h)
		}
		if ms.Timeline != "" {
			t, ok := def.Timelines[ms.Timeline]
			if !ok {
				return nil, fmt.Errorf("movedata: %s: move %s references unknown timeline %q", f.Name, id, ms.Timeline)
			}
			m.Timeline = t
		}
		def.Moves[id] = m
	}

	return def, nil
}
