package movedata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-fighters/internal/game"
)

func TestLoadBuiltin(t *testing.T) {
	lib, err := LoadBuiltin()
	require.NoError(t, err)
	assert.Empty(t, lib.Warnings())
	assert.Contains(t, lib.Names(), "ryuko")

	def, err := lib.Get("Ryuko")
	require.NoError(t, err)
	assert.Equal(t, 50.0, def.Width)
	assert.Equal(t, 90.0, def.Height)

	keys := make([]string, 0, len(def.Specials))
	for _, s := range def.Specials {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{game.SpecialFinisher, game.SpecialRush, game.SpecialShinku, game.SpecialHadoken}, keys)
}

func TestBuiltinMoveData(t *testing.T) {
	lib, err := LoadBuiltin()
	require.NoError(t, err)
	def, err := lib.Get("ryuko")
	require.NoError(t, err)

	tests := []struct {
		id       string
		damage   int
		startup  int
		active   int
		recovery int
		hitbox   game.Rect
	}{
		{"P1_P", 55, 4, 4, 7, game.Rect{X: 25, Y: -62, W: 15, H: 22}},
		{"P1_S", 65, 9, 6, 5, game.Rect{X: 25, Y: -85, W: 50, H: 22}},
		{"P1_K", 110, 5, 2, 8, game.Rect{X: 57, Y: -40, W: 48, H: 28}},
		{"RUSH", 90, 6, 18, 12, game.Rect{X: 65, Y: -60, W: 60, H: 40}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			m, ok := def.Move(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.damage, m.Attack.Damage)
			assert.Equal(t, tt.hitbox, m.Frames.Hitbox)

			info := def.TimelineFor(tt.id).Info()
			assert.Equal(t, tt.startup, info.Startup)
			assert.Equal(t, tt.active, info.Active)
			assert.Equal(t, tt.recovery, info.Recovery)
		})
	}

	hadoken, ok := def.Move(game.SpecialHadoken)
	require.True(t, ok)
	assert.Equal(t, game.ProjectileHadoken, hadoken.Projectile)
	assert.Equal(t, 20, hadoken.SpawnTick)
	assert.Equal(t, "6040", def.TimelineFor(game.SpecialHadoken).ID)

	throw, ok := def.Move("THROW")
	require.True(t, ok)
	assert.True(t, throw.Throw)
	assert.Equal(t, game.BtnP, def.ButtonFor("P1_S"))
	assert.Equal(t, game.BtnK, def.ButtonFor("P1_HS"))
	assert.Equal(t, game.TokNone, def.ButtonFor("P1_L"))
}

func TestGetUnknownCharacter(t *testing.T) {
	lib, err := LoadBuiltin()
	require.NoError(t, err)

	_, err = lib.Get("nobody")
	assert.ErrorIs(t, err, ErrUnknownCharacter)

	_, _, err = lib.Pair("ryuko", "nobody")
	assert.ErrorIs(t, err, ErrUnknownCharacter)
}

const kenjiYAML = `
name: kenji
body: {width: 48, height: 88}
punches: [JAB]
moves:
  JAB:
    frames: {startup: 2, active: 2, recovery: 4}
    hitbox: {w: 20, h: 10, offset_x: 0, offset_y: 20}
    attack: {damage: 30, chip_ratio: 0}
specials:
  - key: HADOKEN
    sequences: [[D, DF, F, P]]
    immediate: [JAB]
    early_key: punch_hadoken
`

func TestLoadDirectoryOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kenji.yaml"), []byte(kenjiYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	lib, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"kenji", "ryuko"}, lib.Names())

	def, err := lib.Get("kenji")
	require.NoError(t, err)
	jab, ok := def.Move("JAB")
	require.True(t, ok)
	assert.Equal(t, 30, jab.Attack.Damage)
	require.NotNil(t, jab.Attack.ChipRatio, "an explicit zero chip ratio is kept")
	assert.Equal(t, 0, jab.Attack.Chip(0.5))
	assert.Equal(t, game.Rect{X: 24, Y: -68, W: 20, H: 10}, jab.Frames.Hitbox)
	require.Len(t, def.Specials, 1)
	assert.Equal(t, [][]game.Token{{game.DirD, game.DirDF, game.DirF, game.BtnP}}, def.Specials[0].Sequences)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "name: [unclosed"},
		{"no name", "moves: {}"},
		{"unknown timeline", "name: x\nmoves:\n  A:\n    timeline: missing\n"},
		{"unknown token", "name: x\nspecials:\n  - key: A\n    sequences: [[UP, P]]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidationWarnings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "odd.yaml")
	body := "name: odd\nmoves:\n  FB:\n    projectile: hadoken\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	lib, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, lib.Warnings(), 1)
	_, err = lib.Get("odd")
	assert.NoError(t, err)
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "kenji.yaml")
	require.NoError(t, os.WriteFile(path, []byte(kenjiYAML), 0o644))

	select {
	case name := <-w.Events:
		assert.Equal(t, path, name)
	case <-time.After(2 * time.Second):
		t.Fatal("no watcher event")
	}
}

func TestReloaderAppliesLibrary(t *testing.T) {
	dir := t.TempDir()
	got := make(chan *Library, 4)
	r, err := NewReloader(dir, func(l *Library) { got <- l }, nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kenji.yaml"), []byte(kenjiYAML), 0o644))

	select {
	case lib := <-got:
		_, err := lib.Get("kenji")
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("library not reloaded")
	}
}
