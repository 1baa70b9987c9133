package game

import (
	"testing"

	"script-fighters/internal/config"
)

// Hit rects shared by the multi-hit fixtures.
var (
	upperRect = Rect{X: 25, Y: -80, W: 40, H: 20}
	lowerRect = Rect{X: 25, Y: -60, W: 40, H: 20}
)

// testCharacter mirrors the built-in roster closely enough for rule tests
// without depending on the YAML loader.
func testCharacter() *CharacterDefinition {
	twoHit := &Timeline{ID: "two_hit", Frames: []Frame{
		{Duration: 2},
		{Duration: 2, Hit: []Rect{upperRect}},
		{Duration: 2, Hit: []Rect{lowerRect}},
		{Duration: 3},
	}}
	sameHit := &Timeline{ID: "same_hit", Frames: []Frame{
		{Duration: 2},
		{Duration: 2, Hit: []Rect{upperRect}},
		{Duration: 2, Hit: []Rect{upperRect}},
		{Duration: 3},
	}}
	hadoken := &Timeline{ID: "6040", Frames: []Frame{{Duration: 8}, {Duration: 12}, {Duration: 16}}}
	shinku := &Timeline{ID: "8000", Frames: []Frame{{Duration: 6}, {Duration: 8}, {Duration: 22}}}
	multi := AttackSpec{Damage: 100, HitstopFrames: 2, HitstunFrames: 40, BlockstunFrames: 5}

	return &CharacterDefinition{
		Name:   "tester",
		Width:  50,
		Height: 90,
		Moves: map[string]*MoveDef{
			"P1_P": {
				ID:     "P1_P",
				Frames: FrameData{Startup: 4, Active: 4, Recovery: 7, Hitbox: Rect{X: 25, Y: -62, W: 15, H: 22}},
				Attack: AttackSpec{Damage: 55, KnockbackPx: 10, HitstopFrames: 6, HitstunFrames: 10, BlockstunFrames: 5},
			},
			"P1_S": {
				ID:     "P1_S",
				Frames: FrameData{Startup: 9, Active: 6, Recovery: 5, Hitbox: Rect{X: 25, Y: -85, W: 50, H: 22}},
				Attack: AttackSpec{Damage: 65, KnockbackPx: 10, HitstopFrames: 6, HitstunFrames: 15, BlockstunFrames: 7, RecoilPx: 1, HitCancel: HitCancelFull},
			},
			"P1_K": {
				ID:     "P1_K",
				Frames: FrameData{Startup: 5, Active: 2, Recovery: 8, Hitbox: Rect{X: 57, Y: -40, W: 48, H: 28}},
				Attack: AttackSpec{Damage: 110, KnockbackPx: 16, HitstopFrames: 8, HitstunFrames: 13, BlockstunFrames: 6, RecoilPx: 3},
			},
			"P1_HS": {
				ID:     "P1_HS",
				Frames: FrameData{Startup: 6, Active: 5, Recovery: 10, Hitbox: Rect{X: 59, Y: -42, W: 52, H: 30}},
				Attack: AttackSpec{Damage: 95, KnockbackPx: 16, HitstopFrames: 8, HitstunFrames: 14, BlockstunFrames: 7, RecoilPx: 3, Guard: GuardLow},
			},
			"TWO_HIT":  {ID: "TWO_HIT", Timeline: twoHit, Attack: multi},
			"SAME_HIT": {ID: "SAME_HIT", Timeline: sameHit, Attack: multi},
			SpecialRush: {
				ID:     SpecialRush,
				Frames: FrameData{Startup: 6, Active: 18, Recovery: 12, Hitbox: Rect{X: 65, Y: -60, W: 60, H: 40}},
				Attack: AttackSpec{Damage: 90, KnockbackPx: 18, HitstopFrames: 8, HitstunFrames: 22, BlockstunFrames: 6, RecoveryBonus: 10, Knockdown: true, HitCancel: HitCancelWindow},
			},
			SpecialHadoken: {
				ID:         SpecialHadoken,
				Timeline:   hadoken,
				Projectile: ProjectileHadoken,
				SpawnTick:  20,
				Attack:     AttackSpec{Damage: 55, HitstunFrames: 20, HitCancel: HitCancelWindow},
			},
			SpecialShinku: {
				ID:         SpecialShinku,
				Timeline:   shinku,
				Projectile: ProjectileShinku,
				SpawnTick:  14,
				Attack:     AttackSpec{Damage: 35, HitstunFrames: 12, HitCancel: HitCancelWindow},
			},
			"THROW": {
				ID:     "THROW",
				Frames: FrameData{Startup: 3, Active: 2, Recovery: 20},
				Throw:  true,
				Attack: AttackSpec{Damage: 100, HitstopFrames: 10},
			},
		},
		Timelines: map[string]*Timeline{
			hadoken.ID: hadoken,
			shinku.ID:  shinku,
		},
		PunchIDs: []string{"P1_P", "P1_S", "TWO_HIT", "SAME_HIT"},
		KickIDs:  []string{"P1_K", "P1_HS"},
		Specials: []CommandSpec{
			{
				Key:            SpecialFinisher,
				Sequences:      [][]Token{{BtnP, BtnP, DirF, BtnK, BtnP}},
				Immediate:      []string{"P1_P", "P1_S", "P1_K", "P1_HS"},
				EarlyKey:       EarlyPunchShinku,
				MaxHealthRatio: 0.2,
			},
			{
				Key:       SpecialRush,
				Sequences: [][]Token{{DirDB, BtnK}},
				Immediate: []string{"P1_K", "P1_HS"},
				EarlyKey:  EarlyKickRush,
			},
			{
				Key:           SpecialShinku,
				Sequences:     [][]Token{{DirD, DirDF, DirF, DirD, DirDF, DirF, BtnP}, {DirD, DirF, DirD, DirF, BtnP}},
				Immediate:     []string{"P1_P", "P1_S"},
				EarlyKey:      EarlyPunchShinku,
				RequiresPower: true,
			},
			{
				Key:       SpecialHadoken,
				Sequences: [][]Token{{DirD, DirDF, DirF, BtnP}, {DirD, DirF, BtnP}},
				Immediate: []string{"P1_P", "P1_S"},
				EarlyKey:  EarlyPunchHadoken,
			},
		},
		ActionCandidates: map[string][]string{
			SpecialHadoken: {"6040", "3000"},
		},
	}
}

func newTestFighter(side Side) *Fighter {
	return NewFighter(side, testCharacter(), config.DefaultSimulation(), config.DefaultCombat())
}

func newTestMatch(t testing.TB) *Match {
	t.Helper()
	return NewMatch(config.DefaultSimulation(), config.DefaultCombat(), testCharacter(), testCharacter(), nil)
}

// place puts both fighters on the ground at x1 and x2, facing each other.
func place(m *Match, x1, x2 float64) {
	p1, p2 := m.Fighter(SideP1), m.Fighter(SideP2)
	p1.X, p2.X = x1, x2
	p1.Facing, p2.Facing = 1, -1
}

// script returns the intents for one tick. Ticks start at 1.
type script func(tick int) [2]Intent

// run steps the match n times and collects every resolved outcome.
func run(m *Match, n int, in script) []HitOutcome {
	var outs []HitOutcome
	for i := 1; i <= n; i++ {
		var inputs [2]Intent
		if in != nil {
			inputs = in(i)
		}
		m.Step(inputs)
		outs = append(outs, m.Outcomes()...)
	}
	return outs
}

// pressAt presses attack for P1 on the given tick.
func pressAt(tick int, attack string) script {
	return func(i int) [2]Intent {
		if i == tick {
			return [2]Intent{{Attack: attack}}
		}
		return [2]Intent{}
	}
}
