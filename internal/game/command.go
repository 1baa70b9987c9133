package game

import (
	"fmt"
	"strings"
)

// Token is one element of the command buffer. Directions are always relative
// to the fighter's facing, so a command reads the same on either side.
type Token uint8

const (
	TokNone Token = iota
	DirN          // Neutral
	DirF          // Forward
	DirB          // Back
	DirD          // Down
	DirDF         // Down-forward
	DirDB         // Down-back
	BtnP          // Punch-class button
	BtnK          // Kick-class button
)

var tokenNames = map[Token]string{
	DirN:  "DIR:N",
	DirF:  "DIR:F",
	DirB:  "DIR:B",
	DirD:  "DIR:D",
	DirDF: "DIR:DF",
	DirDB: "DIR:DB",
	BtnP:  "BTN:P",
	BtnK:  "BTN:K",
}

// String returns the table notation ("DIR:DF", "BTN:P").
func (t Token) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "NONE"
}

// IsButton reports whether the token is a button press.
func (t Token) IsButton() bool { return t == BtnP || t == BtnK }

// MarshalText implements encoding.TextMarshaler.
func (t Token) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText accepts "DIR:DF", "DF", "BTN:P" or "P".
func (t *Token) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for tok, name := range tokenNames {
		if s == name || s == name[strings.IndexByte(name, ':')+1:] {
			*t = tok
			return nil
		}
	}
	return fmt.Errorf("unknown command token %q", string(b))
}

// DirectionToken encodes a raw stick state relative to facing.
// moveX is the absolute horizontal input (-1, 0, 1).
func DirectionToken(moveX int, down bool, facing int) Token {
	rel := moveX * facing
	switch {
	case down && rel > 0:
		return DirDF
	case down && rel < 0:
		return DirDB
	case down:
		return DirD
	case rel > 0:
		return DirF
	case rel < 0:
		return DirB
	}
	return DirN
}

// EarlyKey names which recent-press timestamp a command may consume.
type EarlyKey string

const (
	EarlyKickRush     EarlyKey = "kick_rush"
	EarlyPunchHadoken EarlyKey = "punch_hadoken"
	EarlyPunchShinku  EarlyKey = "punch_shinku"
)

// buttonClass returns the class whose press refreshes an early key.
func (k EarlyKey) buttonClass() Token {
	if k == EarlyKickRush {
		return BtnK
	}
	return BtnP
}

var allEarlyKeys = []EarlyKey{EarlyKickRush, EarlyPunchHadoken, EarlyPunchShinku}

// CommandSpec describes one motion command.
type CommandSpec struct {
	Key            string    `yaml:"key" json:"key"`
	Sequences      [][]Token `yaml:"sequences" json:"sequences"`
	Immediate      []string  `yaml:"immediate" json:"immediate"`
	EarlyKey       EarlyKey  `yaml:"early_key" json:"earlyKey"`
	RequiresPower  bool      `yaml:"requires_power" json:"requiresPower"`
	MaxHealthRatio float64   `yaml:"max_health_ratio,omitempty" json:"maxHealthRatio,omitempty"`
}

func (c *CommandSpec) immediate(attackID string) bool {
	if attackID == "" {
		return false
	}
	for _, id := range c.Immediate {
		if id == attackID {
			return true
		}
	}
	return false
}

type bufferedToken struct {
	Tick  uint64
	Token Token
}

// CommandRecognizer keeps one fighter's rolling token buffer and the most
// recent button press per early key.
type CommandRecognizer struct {
	window  int
	early   int
	buffer  []bufferedToken
	lastDir Token

	// Tick of the last unconsumed press for each early key; zero means none.
	lastPress map[EarlyKey]uint64
}

// NewCommandRecognizer creates a recognizer with a token window and an early
// input grace window, both in ticks.
func NewCommandRecognizer(window, early int) *CommandRecognizer {
	return &CommandRecognizer{
		window:    max(1, window),
		early:     max(0, early),
		buffer:    make([]bufferedToken, 0, 32),
		lastPress: make(map[EarlyKey]uint64, len(allEarlyKeys)),
	}
}

// PushIntentToken appends a token and drops entries that fell out of the window.
// Direction tokens are only recorded when the direction changes.
func (c *CommandRecognizer) PushIntentToken(tok Token, tick uint64) {
	if tok == TokNone {
		return
	}
	if !tok.IsButton() {
		if tok == c.lastDir {
			c.trim(tick)
			return
		}
		c.lastDir = tok
	} else {
		for _, k := range allEarlyKeys {
			if k.buttonClass() == tok {
				// Stored as tick+1 so that a press on tick 0 is distinguishable from none.
				c.lastPress[k] = tick + 1
			}
		}
	}
	c.buffer = append(c.buffer, bufferedToken{Tick: tick, Token: tok})
	c.trim(tick)
}

func (c *CommandRecognizer) trim(tick uint64) {
	cut := 0
	for cut < len(c.buffer) && tick-c.buffer[cut].Tick > uint64(c.window) {
		cut++
	}
	if cut > 0 {
		n := copy(c.buffer, c.buffer[cut:])
		c.buffer = c.buffer[:n]
	}
}

// Reset clears the buffer and press history.
func (c *CommandRecognizer) Reset() {
	c.buffer = c.buffer[:0]
	c.lastDir = TokNone
	for k := range c.lastPress {
		delete(c.lastPress, k)
	}
}

// Tokens returns a copy of the buffered tokens, oldest first.
func (c *CommandRecognizer) Tokens() []Token {
	out := make([]Token, len(c.buffer))
	for i, b := range c.buffer {
		out[i] = b.Token
	}
	return out
}

// MatchSequence walks want from the end and, for each token, finds the nearest
// earlier occurrence in the buffer. Unrelated tokens in between are ignored.
func MatchSequence(buffer []Token, want []Token) bool {
	if len(want) == 0 {
		return false
	}
	pos := len(buffer)
	for i := len(want) - 1; i >= 0; i-- {
		found := -1
		for j := pos - 1; j >= 0; j-- {
			if buffer[j] == want[i] {
				found = j
				break
			}
		}
		if found < 0 {
			return false
		}
		pos = found
	}
	return true
}

func (c *CommandRecognizer) matchesAny(spec *CommandSpec) bool {
	tokens := c.Tokens()
	for _, seq := range spec.Sequences {
		if MatchSequence(tokens, seq) {
			return true
		}
	}
	return false
}

// consumeRecent reports whether the early key saw a press within the grace
// window and, if so, consumes it so one press cannot fire two moves.
func (c *CommandRecognizer) consumeRecent(key EarlyKey, tick uint64) bool {
	stored, ok := c.lastPress[key]
	if !ok || stored == 0 {
		return false
	}
	pressed := stored - 1
	if tick < pressed || tick-pressed > uint64(c.early) {
		return false
	}
	delete(c.lastPress, key)
	return true
}

// TryMatch returns the first spec (in priority order) that fires this tick.
// allowed lets the caller veto a spec (power, health) before the press is consumed.
func (c *CommandRecognizer) TryMatch(specs []CommandSpec, tick uint64, pressedAttackID string, allowed func(*CommandSpec) bool) (*CommandSpec, bool) {
	for i := range specs {
		spec := &specs[i]
		if allowed != nil && !allowed(spec) {
			continue
		}
		if !c.matchesAny(spec) {
			continue
		}
		if spec.immediate(pressedAttackID) {
			c.consumeRecent(spec.EarlyKey, tick)
			c.buffer = c.buffer[:0]
			return spec, true
		}
		if c.consumeRecent(spec.EarlyKey, tick) {
			c.buffer = c.buffer[:0]
			return spec, true
		}
	}
	return nil, false
}
