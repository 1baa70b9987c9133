package game

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-fighters/internal/config"
)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultSimulation(), config.DefaultCombat(), testCharacter(), testCharacter(), nil)
}

func TestEngineSetIntent(t *testing.T) {
	e := newTestEngine()

	err := e.SetIntent(Side(3), Intent{MoveX: 1})
	assert.ErrorIs(t, err, ErrInvalidSide)

	require.NoError(t, e.SetIntent(SideP1, Intent{MoveX: 5}))
	e.Step()

	var x float64
	e.WithMatch(func(m *Match) { x = m.Fighter(SideP1).X })
	assert.Equal(t, 264.0, x, "move is clamped to one step")
	assert.Equal(t, uint64(1), e.GetSnapshot().Tick)
}

// TestEngineLatchesAttack verifies an attack survives a later neutral intent
func TestEngineLatchesAttack(t *testing.T) {
	e := newTestEngine()

	require.NoError(t, e.SetIntent(SideP1, Intent{Attack: "P1_P"}))
	require.NoError(t, e.SetIntent(SideP1, Intent{}))
	e.Step()

	var id string
	e.WithMatch(func(m *Match) { id = m.Fighter(SideP1).AttackID() })
	assert.Equal(t, "P1_P", id)

	// Consumed by the tick.
	e.Step()
	e.WithMatch(func(m *Match) { id = m.Fighter(SideP1).AttackID() })
	assert.Equal(t, "P1_P", id, "still the same attack, not a new one")
}

func TestEngineStartStop(t *testing.T) {
	e := newTestEngine()
	done := make(chan struct{}, 1)
	e.SetTickObserver(func(time.Duration) {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	e.Start()
	e.Start()
	assert.True(t, e.Running())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick within two seconds")
	}

	e.Stop()
	e.Stop()
	assert.False(t, e.Running())
	assert.Positive(t, e.GetSnapshot().Tick)
}

func TestEngineReset(t *testing.T) {
	e := newTestEngine()
	id := e.MatchID()
	for range 5 {
		e.Step()
	}

	e.Reset()
	assert.NotEqual(t, id, e.MatchID())
	assert.Equal(t, uint64(0), e.GetSnapshot().Tick)
}

// TestEngineEventLog verifies hits reach the NDJSON log
func TestEngineEventLog(t *testing.T) {
	e := newTestEngine()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, e.StartEventLog(path))
	assert.True(t, e.EventLogStats().Running)

	e.WithMatch(func(m *Match) { place(m, 400, 450) })
	for i := range 12 {
		if i == 0 {
			require.NoError(t, e.SetIntent(SideP1, Intent{Attack: "P1_S"}))
		}
		e.Step()
	}
	e.StopEventLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"hit"`)
	assert.False(t, e.EventLogStats().Running)

	var types []EventType
	for _, ev := range readEvents(t, path) {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventTypeHit)
}

func TestEngineSetCharacters(t *testing.T) {
	e := newTestEngine()
	other := testCharacter()
	other.Name = "other"

	e.SetCharacters(other, nil)
	assert.Equal(t, "other", e.Character(SideP1).Name)
	assert.Equal(t, "tester", e.Character(SideP2).Name)
}

func BenchmarkMatchStep(b *testing.B) {
	m := newTestMatch(b)
	in := [2]Intent{{MoveX: 1}, {MoveX: -1}}
	b.ResetTimer()
	for i := range b.N {
		if i%30 == 0 {
			in[0].Attack = "P1_P"
		} else {
			in[0].Attack = ""
		}
		m.Step(in)
		if m.Over() {
			m.Reset()
		}
	}
}
