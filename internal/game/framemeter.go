package game

// FrameClass is what a fighter is doing on a given tick, for frame display.
type FrameClass uint8

const (
	FrameIdle FrameClass = iota
	FrameStartup
	FrameActive
	FrameRecovery
	FrameStun
	FrameSpecial
)

var frameClassNames = [...]string{
	FrameIdle:     "idle",
	FrameStartup:  "startup",
	FrameActive:   "active",
	FrameRecovery: "recovery",
	FrameStun:     "stun",
	FrameSpecial:  "special",
}

func (c FrameClass) String() string {
	if int(c) < len(frameClassNames) {
		return frameClassNames[c]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (c FrameClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ClassifyFrame reports the frame class of f's current tick.
func ClassifyFrame(f *Fighter) FrameClass {
	switch f.Mode {
	case ModeHitstun, ModeBlockstun, ModeKnockdown, ModeThrown:
		return FrameStun
	case ModeRushing, ModeCinematic, ModeDashing, ModeStepping:
		return FrameSpecial
	case ModeAttacking:
		if f.timeline == nil {
			return FrameRecovery
		}
		if f.timelineDone {
			return FrameRecovery
		}
		if fr, ok := f.currentFrame(); ok && fr.Active() {
			return FrameActive
		}
		info := f.timeline.Info()
		if f.elapsed < info.Startup {
			return FrameStartup
		}
		return FrameRecovery
	}
	return FrameIdle
}

// FrameHistorySize is the number of ticks kept per fighter.
const FrameHistorySize = 120

// Advantage is the latest frame advantage readout.
type Advantage struct {
	Value      int  `json:"value" msgpack:"value"`
	FramesLeft int  `json:"framesLeft" msgpack:"framesLeft"`
	Side       Side `json:"side" msgpack:"side"`
}

// Visible reports whether the readout should still be displayed.
func (a Advantage) Visible() bool { return a.FramesLeft > 0 }

// FrameMeter keeps a rolling per-fighter frame history.
type FrameMeter struct {
	history   [2][FrameHistorySize]FrameClass
	head      int
	count     int
	advantage Advantage
	display   int
}

// NewFrameMeter creates a meter whose advantage readout lasts display ticks.
func NewFrameMeter(display int) *FrameMeter {
	return &FrameMeter{display: max(1, display)}
}

// Push records one tick for both fighters.
func (m *FrameMeter) Push(p1, p2 FrameClass) {
	m.history[0][m.head] = p1
	m.history[1][m.head] = p2
	m.head = (m.head + 1) % FrameHistorySize
	m.count = min(m.count+1, FrameHistorySize)
	if m.advantage.FramesLeft > 0 {
		m.advantage.FramesLeft--
	}
}

// History returns side's classes oldest first.
func (m *FrameMeter) History(side Side) []FrameClass {
	row := 0
	if side == SideP2 {
		row = 1
	}
	out := make([]FrameClass, m.count)
	start := (m.head - m.count + FrameHistorySize) % FrameHistorySize
	for i := range m.count {
		out[i] = m.history[row][(start+i)%FrameHistorySize]
	}
	return out
}

// Len returns the number of recorded ticks.
func (m *FrameMeter) Len() int { return m.count }

// RecordAdvantage stores a new readout from side's point of view.
func (m *FrameMeter) RecordAdvantage(side Side, value int) {
	m.advantage = Advantage{Value: value, FramesLeft: m.display, Side: side}
}

// Advantage returns the current readout.
func (m *FrameMeter) Advantage() Advantage { return m.advantage }

// Reset clears the history and readout.
func (m *FrameMeter) Reset() {
	*m = FrameMeter{display: m.display}
}
