package game

import (
	"fmt"
	"math"
	"strings"
)

// GuardAttribute decides which guard posture can block an attack.
type GuardAttribute uint8

const (
	GuardMid      GuardAttribute = iota // Blockable standing or crouching
	GuardOverhead                       // Standing guard only
	GuardLow                            // Crouching guard only
)

// String returns the attribute name used in move tables
func (g GuardAttribute) String() string {
	switch g {
	case GuardOverhead:
		return "overhead"
	case GuardLow:
		return "low"
	default:
		return "mid"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g GuardAttribute) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GuardAttribute) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "mid":
		*g = GuardMid
	case "overhead", "high":
		*g = GuardOverhead
	case "low":
		*g = GuardLow
	default:
		return fmt.Errorf("unknown guard attribute %q", string(b))
	}
	return nil
}

// Blockable reports whether a guard in the given posture stops the attack.
func (g GuardAttribute) Blockable(crouching bool) bool {
	switch g {
	case GuardOverhead:
		return !crouching
	case GuardLow:
		return crouching
	default:
		return true
	}
}

// HitCancel selects how a move opens the cancel window on hit.
type HitCancel uint8

const (
	HitCancelNone   HitCancel = iota
	HitCancelWindow           // Fixed window after the hit
	HitCancelFull             // Rest of the move
)

// MarshalText implements encoding.TextMarshaler.
func (h HitCancel) MarshalText() ([]byte, error) {
	switch h {
	case HitCancelWindow:
		return []byte("window"), nil
	case HitCancelFull:
		return []byte("full"), nil
	}
	return []byte("none"), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HitCancel) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "none":
		*h = HitCancelNone
	case "window":
		*h = HitCancelWindow
	case "full":
		*h = HitCancelFull
	default:
		return fmt.Errorf("unknown hit cancel kind %q", string(b))
	}
	return nil
}

// AttackSpec is the combat data attached to a move identifier. It is kept
// separate from the timeline so geometry and balance can change independently.
type AttackSpec struct {
	Damage          int            `yaml:"damage" json:"damage"`
	KnockbackPx     int            `yaml:"knockback" json:"knockback"`
	HitstopFrames   int            `yaml:"hitstop" json:"hitstop"`
	HitstunFrames   int            `yaml:"hitstun" json:"hitstun"`
	BlockstunFrames int            `yaml:"blockstun" json:"blockstun"`
	RecoilPx        int            `yaml:"recoil" json:"recoil"`
	RecoveryBonus   int            `yaml:"recovery_bonus" json:"recoveryBonus"`
	ChipRatio       *float64       `yaml:"chip_ratio" json:"chipRatio,omitempty"` // nil uses the configured guard chip ratio
	Knockdown       bool           `yaml:"knockdown" json:"knockdown"`
	Guard           GuardAttribute `yaml:"guard" json:"guard"`
	HitCancel       HitCancel      `yaml:"hit_cancel" json:"hitCancel"`
}

// defaultAttackSpec is the conservative fallback for moves without table data.
var defaultAttackSpec = AttackSpec{
	Damage:          50,
	KnockbackPx:     12,
	HitstopFrames:   6,
	HitstunFrames:   20,
	BlockstunFrames: 12,
	RecoilPx:        3,
}

// Chip returns the guard damage for this attack. An authored ratio, zero
// included, overrides fallback.
func (s AttackSpec) Chip(fallback float64) int {
	ratio := fallback
	if s.ChipRatio != nil {
		ratio = *s.ChipRatio
	}
	return int(math.Max(0, math.Round(float64(s.Damage)*ratio)))
}

// DefaultAttackSpec returns the fallback attack spec.
func DefaultAttackSpec() AttackSpec {
	return defaultAttackSpec
}

// ComboMultiplier returns the damage multiplier for the k-th hit of a combo:
// 100% for the first hit, 10% less for each hit after, floored at 10%.
func ComboMultiplier(k int) float64 {
	k = max(1, k)
	return max(0.1, 1.0-0.1*float64(k-1))
}
