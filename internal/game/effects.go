package game

// RequestKind separates visual effect requests from sound requests.
type RequestKind uint8

const (
	RequestEffect RequestKind = iota
	RequestSound
)

func (k RequestKind) String() string {
	if k == RequestSound {
		return "sound"
	}
	return "effect"
}

// MarshalText implements encoding.TextMarshaler.
func (k RequestKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Presentation request names. The core only asks; playback happens elsewhere.
const (
	EffectSpark          = "spark"
	EffectHitBurst       = "hit_burst"
	EffectGuardBurst     = "guard_burst"
	EffectFinisherImpact = "finisher_impact"
	EffectSuperFlash     = "super_flash"

	SoundHit         = "hit"
	SoundGuard       = "guard"
	SoundSuperFreeze = "super_freeze"
	SoundKO          = "ko"
	SoundResumeAudio = "resume_bgm"
)

// Request is an intent-only presentation request.
type Request struct {
	Kind RequestKind `json:"kind" msgpack:"kind"`
	Name string      `json:"name" msgpack:"name"`
	X    float64     `json:"x" msgpack:"x"`
	Y    float64     `json:"y" msgpack:"y"`
	Tick uint64      `json:"tick" msgpack:"tick"`
}

// MaxRequestsPerTick caps the queue so a runaway multi-hit cannot grow it.
const MaxRequestsPerTick = 64

// RequestQueue collects requests produced during ticks until drained.
type RequestQueue struct {
	items []Request
	tick  uint64
}

// NewRequestQueue creates an empty queue with preallocated capacity.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{items: make([]Request, 0, MaxRequestsPerTick)}
}

// SetTick stamps subsequent requests with tick.
func (q *RequestQueue) SetTick(tick uint64) { q.tick = tick }

// Effect queues a visual effect at p.
func (q *RequestQueue) Effect(name string, p Point) {
	q.push(Request{Kind: RequestEffect, Name: name, X: p.X, Y: p.Y})
}

// Sound queues a sound cue.
func (q *RequestQueue) Sound(name string) {
	q.push(Request{Kind: RequestSound, Name: name})
}

func (q *RequestQueue) push(r Request) {
	if q == nil {
		return
	}
	if len(q.items) >= MaxRequestsPerTick {
		// Keep the newest requests.
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
	}
	r.Tick = q.tick
	q.items = append(q.items, r)
}

// Len returns the number of pending requests.
func (q *RequestQueue) Len() int { return len(q.items) }

// Drain appends pending requests to dst and empties the queue.
func (q *RequestQueue) Drain(dst []Request) []Request {
	dst = append(dst, q.items...)
	q.items = q.items[:0]
	return dst
}

// ForTick returns the pending requests stamped with tick.
func (q *RequestQueue) ForTick(tick uint64) []Request {
	i := len(q.items)
	for i > 0 && q.items[i-1].Tick == tick {
		i--
	}
	return q.items[i:]
}
