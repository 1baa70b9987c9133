package game

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"script-fighters/internal/config"
)

// Engine drives a Match in real time and is the only type safe for use from
// several goroutines. HTTP handlers latch intents; the ticker goroutine
// consumes them once per tick.
type Engine struct {
	mu      sync.Mutex
	match   *Match
	intents [2]Intent

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	// Stats
	tickCount int64

	eventLog *EventLog
	onTick   func(time.Duration)

	logger *zap.Logger
}

// NewEngine creates an engine with a fresh match between p1 and p2.
func NewEngine(sim config.SimulationConfig, cfg config.CombatConfig, p1, p2 *CharacterDefinition, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		match:    NewMatch(sim, cfg, p1, p2, logger.Named("match")),
		tickRate: max(1, sim.FPS),
		logger:   logger,
	}
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.done = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker, stop, done := e.ticker, e.stopChan, e.done
	e.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				e.Step()
			case <-stop:
				return
			}
		}
	}()

	e.logger.Info("engine started", zap.Int("tps", e.tickRate), zap.String("match_id", e.MatchID()))
}

// Stop stops the game loop and waits for the last tick. Safe to call twice.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.done
	e.mu.Unlock()

	<-done
	e.logger.Info("engine stopped", zap.Int64("ticks", e.tickCount))
}

// Running reports whether the ticker goroutine is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetIntent latches input for side. Held values (moveX, crouch) overwrite;
// edges (jump, attack) stick until the next tick consumes them.
func (e *Engine) SetIntent(side Side, in Intent) error {
	if side != SideP1 && side != SideP2 {
		return fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := &e.intents[side-1]
	cur.MoveX = clampi(in.MoveX, -1, 1)
	cur.Crouch = in.Crouch
	cur.Jump = cur.Jump || in.Jump
	if in.Attack != "" {
		cur.Attack = in.Attack
	}
	return nil
}

// Step runs one tick with the latched intents. The ticker calls it; tests may
// call it directly instead of starting the loop.
func (e *Engine) Step() {
	start := time.Now()

	e.mu.Lock()
	inputs := e.intents
	for i := range e.intents {
		e.intents[i].Jump = false
		e.intents[i].Attack = ""
	}
	e.match.Step(inputs)
	e.tickCount++
	onTick := e.onTick
	e.mu.Unlock()

	if onTick != nil {
		onTick(time.Since(start))
	}
}

// GetSnapshot returns a private copy of the latest snapshot. The copy is
// taken under the engine lock so readers never race the tick reusing its
// buffer.
func (e *Engine) GetSnapshot() *MatchSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.match.Snapshot().Clone()
	return &snap
}

// MatchID returns the current round id.
func (e *Engine) MatchID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.ID
}

// Reset starts a new round with a new match id and clears latched input.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intents = [2]Intent{}
	e.match.Reset()
}

// SetCharacters swaps character tables between ticks. nil keeps a side's table.
func (e *Engine) SetCharacters(p1, p2 *CharacterDefinition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.match.SetCharacters(p1, p2)
	e.logger.Info("characters updated", zap.String("match_id", e.match.ID))
}

// SetTraining validates and applies practice rules between ticks.
func (e *Engine) SetTraining(t config.TrainingConfig) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.match.SetTraining(t)
	e.logger.Info("training rules updated",
		zap.String("match_id", e.match.ID),
		zap.Bool("dummy_guard", t.DummyGuard),
		zap.String("dummy_state", t.DummyState),
		zap.Bool("auto_recover", t.AutoRecover))
	return nil
}

// Training returns the active practice rules.
func (e *Engine) Training() config.TrainingConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.Training()
}

// Character returns the table used by side.
func (e *Engine) Character(side Side) *CharacterDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.Fighter(side).Char
}

// DrainRequests appends pending presentation requests to dst.
func (e *Engine) DrainRequests(dst []Request) []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.DrainRequests(dst)
}

// SetCallbacks installs match observers.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.match.SetCallbacks(cb)
}

// SetTickObserver receives the duration of every tick.
func (e *Engine) SetTickObserver(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// WithMatch runs fn under the engine lock. fn must not retain m.
func (e *Engine) WithMatch(fn func(m *Match)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.match)
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.eventLog != nil && e.eventLog.Stats().Running {
		return nil
	}
	el := NewEventLog(e.logger.Named("events"))
	if err := el.Start(filePath); err != nil {
		return err
	}
	e.eventLog = el
	e.match.SetEventLog(el)
	return nil
}

// StopEventLog flushes and detaches the event log.
func (e *Engine) StopEventLog() {
	e.mu.Lock()
	el := e.eventLog
	e.match.SetEventLog(nil)
	e.mu.Unlock()
	if el != nil {
		el.Stop()
	}
}

// EventLogStats returns event log statistics for monitoring
func (e *Engine) EventLogStats() EventLogStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.eventLog == nil {
		return EventLogStats{}
	}
	return e.eventLog.Stats()
}
