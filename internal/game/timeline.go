package game

// Frame is one authored step of a move timeline. Geometry is relative to the
// fighter's foot anchor for a right-facing fighter.
type Frame struct {
	Duration int    `yaml:"duration" json:"duration"`
	Hit      []Rect `yaml:"hit,omitempty" json:"hit,omitempty"`
	Hurt     []Rect `yaml:"hurt,omitempty" json:"hurt,omitempty"`
}

// Active reports whether the frame carries hit geometry.
func (f Frame) Active() bool { return len(f.Hit) > 0 }

// Timeline is an ordered list of frames for one move or reaction.
type Timeline struct {
	ID     string  `yaml:"id" json:"id"`
	Frames []Frame `yaml:"frames" json:"frames"`
	Loop   bool    `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// FrameInfo is the startup/active/recovery breakdown derived from a timeline.
type FrameInfo struct {
	Startup  int `json:"startup"`
	Active   int `json:"active"`
	Recovery int `json:"recovery"`
	Total    int `json:"total"`
}

// Info derives startup/active/recovery from where hit geometry appears.
// Startup counts every tick before the first active frame, active sums every
// active frame (gaps included in recovery), recovery is the remainder.
func (t *Timeline) Info() FrameInfo {
	var info FrameInfo
	seenActive := false
	for _, f := range t.Frames {
		d := max(1, f.Duration)
		info.Total += d
		if f.Active() {
			seenActive = true
			info.Active += d
			continue
		}
		if !seenActive {
			info.Startup += d
		}
	}
	info.Recovery = info.Total - info.Startup - info.Active
	return info
}

// TotalTicks is the summed frame duration.
func (t *Timeline) TotalTicks() int {
	n := 0
	for _, f := range t.Frames {
		n += max(1, f.Duration)
	}
	return n
}

// FrameAt returns the frame index for an elapsed tick count and whether the
// timeline has run out. Looping timelines never finish.
func (t *Timeline) FrameAt(elapsed int) (int, bool) {
	if len(t.Frames) == 0 {
		return 0, true
	}
	total := t.TotalTicks()
	if elapsed >= total {
		if !t.Loop {
			return len(t.Frames) - 1, true
		}
		elapsed %= total
	}
	acc := 0
	for i, f := range t.Frames {
		acc += max(1, f.Duration)
		if elapsed < acc {
			return i, false
		}
	}
	return len(t.Frames) - 1, true
}

// HitSignature identifies the hit group of a frame. Adjacent frames with
// identical signatures count as one hit.
func (t *Timeline) HitSignature(idx int) string {
	if idx < 0 || idx >= len(t.Frames) {
		return ""
	}
	return signature(t.Frames[idx].Hit)
}

// Synthesize builds a three-frame timeline from authored frame data: an empty
// startup frame, one active frame carrying hitbox, and an empty recovery frame.
// hurt is applied to every frame.
func Synthesize(id string, startup, active, recovery int, hitbox Rect, hurt []Rect) *Timeline {
	t := &Timeline{ID: id}
	if startup > 0 {
		t.Frames = append(t.Frames, Frame{Duration: startup, Hurt: hurt})
	}
	if active > 0 {
		t.Frames = append(t.Frames, Frame{Duration: active, Hit: []Rect{hitbox}, Hurt: hurt})
	}
	if recovery > 0 {
		t.Frames = append(t.Frames, Frame{Duration: recovery, Hurt: hurt})
	}
	return t
}

// holdTimeline is a single looping frame used for idle/walk and reactions
// that have no authored data.
func holdTimeline(id string, hurt []Rect) *Timeline {
	return &Timeline{ID: id, Frames: []Frame{{Duration: 1, Hurt: hurt}}, Loop: true}
}
