package game

import (
	"encoding/json"
	"time"
)

// EventType classifies match events.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick
	EventTypeHit
	EventTypeGuard
	EventTypeKnockdown
	EventTypeKO
	EventTypeSpecial
	EventTypeProjectileSpawn
	EventTypeProjectileHit
	EventTypeCinematicPhase
	EventTypeThrow
	EventTypeEffectRequest
	EventTypeSoundRequest
	EventTypeRoundReset
)

// EventVersion for backwards compatibility of the NDJSON log
const EventVersion uint8 = 1

// Event is one entry in the event stream.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Assigned by the log
	TickNum   uint64          `json:"tickNum"`
	MatchID   string          `json:"matchId"`
	Source    string          `json:"source"` // Side that caused the event, used for rate limiting
	Payload   json.RawMessage `json:"payload"`
}

var eventTypeNames = [...]string{
	EventTypeUnknown:         "unknown",
	EventTypeTick:            "tick",
	EventTypeHit:             "hit",
	EventTypeGuard:           "guard",
	EventTypeKnockdown:       "knockdown",
	EventTypeKO:              "ko",
	EventTypeSpecial:         "special",
	EventTypeProjectileSpawn: "projectile_spawn",
	EventTypeProjectileHit:   "projectile_hit",
	EventTypeCinematicPhase:  "cinematic_phase",
	EventTypeThrow:           "throw",
	EventTypeEffectRequest:   "effect_request",
	EventTypeSoundRequest:    "sound_request",
	EventTypeRoundReset:      "round_reset",
}

// String returns human-readable event type
func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// MarshalText writes the type name so the log stays readable.
func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText reads a type name back. Unknown names decode as EventTypeUnknown.
func (t *EventType) UnmarshalText(b []byte) error {
	*t = EventTypeUnknown
	for i, name := range eventTypeNames {
		if name == string(b) {
			*t = EventType(i)
			break
		}
	}
	return nil
}

// Typed payloads for different event types

// TickPayload marks a tick boundary.
type TickPayload struct {
	P1Health    int `json:"p1Health"`
	P2Health    int `json:"p2Health"`
	Projectiles int `json:"projectiles"`
	SuperFreeze int `json:"superFreeze"`
}

// HitPayload describes a landed, guarded or thrown attack.
type HitPayload struct {
	Attacker       string  `json:"attacker"`
	Defender       string  `json:"defender"`
	AttackID       string  `json:"attackId"`
	Damage         int     `json:"damage"`
	DefenderHP     int     `json:"defenderHp"`
	ComboCount     int     `json:"comboCount"`
	FrameAdvantage int     `json:"frameAdvantage"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
}

// KnockdownPayload names the fighter that went down.
type KnockdownPayload struct {
	Side string `json:"side"`
	KO   bool   `json:"ko"`
}

// KOPayload ends a round.
type KOPayload struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Finish string `json:"finish"` // attack id or finisher
}

// SpecialPayload records a recognized command.
type SpecialPayload struct {
	Side  string `json:"side"`
	Key   string `json:"key"`
	Power int    `json:"power"`
}

// ProjectilePayload describes a spawn or projectile hit.
type ProjectilePayload struct {
	ID     uint64  `json:"id"`
	Kind   string  `json:"kind"`
	Owner  string  `json:"owner"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Damage int     `json:"damage,omitempty"`
	Guard  bool    `json:"guard,omitempty"`
}

// CinematicPayload records a finisher phase transition.
type CinematicPayload struct {
	Attacker string `json:"attacker"`
	From     string `json:"from"`
	To       string `json:"to"`
	Damage   int    `json:"damage,omitempty"`
}

// RequestPayload mirrors a presentation request.
type RequestPayload struct {
	Name string  `json:"name"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// RoundResetPayload starts a new match id.
type RoundResetPayload struct {
	Previous string `json:"previous,omitempty"`
	P1       string `json:"p1"`
	P2       string `json:"p2"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, matchID, source string, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		MatchID:   matchID,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
