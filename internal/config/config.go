// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation, combat and server settings.
//
// Values come from three layers, last one wins:
//
//	Default*()  ->  optional combat INI overlay  ->  environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimulationConfig holds the fixed-timestep and stage settings.
type SimulationConfig struct {
	FPS          int     // Ticks per second (the simulation is frame based)
	StageWidth   float64 // Logical stage width in pixels
	StageHeight  float64 // Logical stage height in pixels
	GroundY      float64 // Foot line
	Gravity      float64 // px/tick^2
	WalkSpeed    float64 // px/tick
	JumpVelocity float64 // Negative is up
	FighterW     float64 // Default body box width
	FighterH     float64 // Default body box height
	StartOffset  float64 // Distance of each fighter from stage center at round start
}

// DefaultSimulation returns the default simulation configuration.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		FPS:          60,
		StageWidth:   820,
		StageHeight:  540,
		GroundY:      470,
		Gravity:      0.8,
		WalkSpeed:    4.0,
		JumpVelocity: -14.0,
		FighterW:     50,
		FighterH:     90,
		StartOffset:  150,
	}
}

// SimulationFromEnv returns simulation configuration with environment overrides.
func SimulationFromEnv() SimulationConfig {
	cfg := DefaultSimulation()

	if fps := getEnvInt("SIM_FPS", 0); fps > 0 {
		cfg.FPS = fps
	}
	if w := getEnvFloat("STAGE_WIDTH", 0); w > 0 {
		cfg.StageWidth = w
	}

	return cfg
}

// =============================================================================
// COMBAT TUNABLES
// =============================================================================

// CombatConfig holds every combat tunable. Most values were tuned by feel,
// so they live here rather than as constants in the rules code.
type CombatConfig struct {
	MaxHealth int
	PowerMax  int
	SuperCost int

	PowerGainHit           int
	PowerGainGuard         int
	PowerGainSpecialUse    int
	PowerGainOnDamageRatio float64
	PowerGainShinkuHit     int

	InputBufferFrames  int // Command token window
	CommandEarlyFrames int // Early button grace for motion commands
	AttackBufferFrames int // Buffered attack FIFO window
	GuardBufferFrames  int // Back-hold latch

	HitstunGuardEarlyAcceptFrames int

	HitstopDefault   int
	HitstopBonus     int // Added to every confirmed hit or guard
	RecoilDefault    int
	HitstunDefault   int
	BlockstunDefault int

	KnockbackDecay   float64
	KnockbackStopEps float64
	KnockbackVXMax   float64

	GuardChipRatio           float64
	GuardKnockbackDefault    int
	GuardKnockbackMultiplier float64
	WallKnockbackMultiplier  float64

	HitCancelWindowFrames int

	DashDoubleTapWindow int
	StepForwardFrames   int
	StepForwardSpeed    float64
	StepBackFrames      int
	StepBackSpeed       float64

	RushStartupFrames  int
	RushFrames         int
	RushSpeed          float64
	RushRecoveryFrames int
	RushEarlyHitFrames int

	SuperFreezeFrames      int
	CinematicFreezeFrames  int
	KnockdownFrames        int
	ComboDisplayFrames     int
	AdvantageDisplayFrames int

	ThrowDamage       int
	ThrowHitstop      int
	ThrowRange        float64
	ThrowForwardLock  int
	ThrowBackLock     int
	ThrowBackDistance float64

	FinisherHealthRatio float64 // Finisher is only allowed at or below this health ratio
	FinisherDamage      int
}

// DefaultCombat returns the default combat tunables.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		MaxHealth: 1000,
		PowerMax:  1000,
		SuperCost: 500,

		PowerGainHit:           50,
		PowerGainGuard:         20,
		PowerGainSpecialUse:    10,
		PowerGainOnDamageRatio: 0.20,
		PowerGainShinkuHit:     30,

		InputBufferFrames:  25,
		CommandEarlyFrames: 2,
		AttackBufferFrames: 6,
		GuardBufferFrames:  2,

		HitstunGuardEarlyAcceptFrames: 2,

		HitstopDefault:   6,
		HitstopBonus:     4,
		RecoilDefault:    3,
		HitstunDefault:   20,
		BlockstunDefault: 12,

		KnockbackDecay:   0.70,
		KnockbackStopEps: 0.50,
		KnockbackVXMax:   12.0,

		GuardChipRatio:           0.0,
		GuardKnockbackDefault:    10,
		GuardKnockbackMultiplier: 1.20,
		WallKnockbackMultiplier:  2.0,

		HitCancelWindowFrames: 8,

		DashDoubleTapWindow: 12,
		StepForwardFrames:   10,
		StepForwardSpeed:    7.0,
		StepBackFrames:      12,
		StepBackSpeed:       7.5,

		RushStartupFrames:  6,
		RushFrames:         18,
		RushSpeed:          10.0,
		RushRecoveryFrames: 12,
		RushEarlyHitFrames: 6,

		SuperFreezeFrames:      30,
		CinematicFreezeFrames:  10,
		KnockdownFrames:        40,
		ComboDisplayFrames:     150,
		AdvantageDisplayFrames: 180,

		ThrowDamage:       100,
		ThrowHitstop:      10,
		ThrowRange:        40,
		ThrowForwardLock:  24,
		ThrowBackLock:     20,
		ThrowBackDistance: 100,

		FinisherHealthRatio: 0.20,
		FinisherDamage:      450,
	}
}

// CombatFromEnv returns combat tunables with the optional INI overlay
// (COMBAT_INI) and environment overrides applied.
func CombatFromEnv() (CombatConfig, error) {
	cfg := DefaultCombat()

	if path := os.Getenv("COMBAT_INI"); path != "" {
		overlaid, err := LoadCombatINI(path, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = overlaid
	}

	if v := getEnvFloat("WALL_KNOCKBACK_MULTIPLIER", -1); v >= 0 {
		cfg.WallKnockbackMultiplier = v
	}
	if v := getEnvFloat("GUARD_KNOCKBACK_MULTIPLIER", -1); v >= 0 {
		cfg.GuardKnockbackMultiplier = v
	}
	if v := getEnvFloat("GUARD_CHIP_RATIO", -1); v >= 0 {
		cfg.GuardChipRatio = v
	}
	if v := getEnvInt("HITSTOP_BONUS", -1); v >= 0 {
		cfg.HitstopBonus = v
	}

	return cfg, nil
}

// LoadCombatINI overlays the [combat] section of an INI file onto base.
// Keys are snake_case field names; missing keys keep the base value.
func LoadCombatINI(path string, base CombatConfig) (CombatConfig, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return base, fmt.Errorf("load combat ini %s: %w", path, err)
	}
	return applyCombatSection(f.Section("combat"), base), nil
}

func applyCombatSection(sec *ini.Section, cfg CombatConfig) CombatConfig {
	intKeys := map[string]*int{
		"max_health":               &cfg.MaxHealth,
		"power_max":                &cfg.PowerMax,
		"super_cost":               &cfg.SuperCost,
		"power_gain_hit":           &cfg.PowerGainHit,
		"power_gain_guard":         &cfg.PowerGainGuard,
		"input_buffer_frames":      &cfg.InputBufferFrames,
		"command_early_frames":     &cfg.CommandEarlyFrames,
		"guard_buffer_frames":      &cfg.GuardBufferFrames,
		"hitstop_bonus":            &cfg.HitstopBonus,
		"blockstun_default":        &cfg.BlockstunDefault,
		"hitstun_default":          &cfg.HitstunDefault,
		"guard_knockback_default":  &cfg.GuardKnockbackDefault,
		"hit_cancel_window_frames": &cfg.HitCancelWindowFrames,
		"super_freeze_frames":      &cfg.SuperFreezeFrames,
		"knockdown_frames":         &cfg.KnockdownFrames,
		"finisher_damage":          &cfg.FinisherDamage,
	}
	for name, dst := range intKeys {
		if sec.HasKey(name) {
			*dst = sec.Key(name).MustInt(*dst)
		}
	}

	floatKeys := map[string]*float64{
		"knockback_decay":            &cfg.KnockbackDecay,
		"knockback_stop_eps":         &cfg.KnockbackStopEps,
		"knockback_vx_max":           &cfg.KnockbackVXMax,
		"guard_chip_ratio":           &cfg.GuardChipRatio,
		"guard_knockback_multiplier": &cfg.GuardKnockbackMultiplier,
		"wall_knockback_multiplier":  &cfg.WallKnockbackMultiplier,
		"power_gain_on_damage_ratio": &cfg.PowerGainOnDamageRatio,
		"finisher_health_ratio":      &cfg.FinisherHealthRatio,
	}
	for name, dst := range floatKeys {
		if sec.HasKey(name) {
			*dst = sec.Key(name).MustFloat64(*dst)
		}
	}

	return cfg
}

// =============================================================================
// DATA CONFIGURATION
// =============================================================================

// DataConfig points the server at character/move tables.
type DataConfig struct {
	CharacterPath string // YAML file or directory; empty uses the built-in roster
	P1Character   string
	P2Character   string
	HotReload     bool
}

// DefaultData returns the default data configuration.
func DefaultData() DataConfig {
	return DataConfig{
		P1Character: "ryuko",
		P2Character: "ryuko",
	}
}

// DataFromEnv returns data configuration with environment variable overrides.
func DataFromEnv() DataConfig {
	cfg := DefaultData()

	cfg.CharacterPath = os.Getenv("CHARACTER_PATH")
	if v := os.Getenv("P1_CHARACTER"); v != "" {
		cfg.P1Character = strings.ToLower(v)
	}
	if v := os.Getenv("P2_CHARACTER"); v != "" {
		cfg.P2Character = strings.ToLower(v)
	}
	cfg.HotReload = os.Getenv("CHARACTER_HOT_RELOAD") == "true"

	return cfg
}

// =============================================================================
// TRAINING CONFIGURATION
// =============================================================================

// Dummy postures for TrainingConfig.DummyState.
const (
	DummyFree   = ""
	DummyStand  = "stand"
	DummyCrouch = "crouch"
	DummyJump   = "jump"
)

// TrainingConfig holds practice rules applied to a match.
type TrainingConfig struct {
	DummyGuard    bool   `json:"dummyGuard"`    // P2 guards whenever it is able to
	DummyState    string `json:"dummyState"`    // P2 posture lock
	AutoRecover   bool   `json:"autoRecover"`   // Refill health and power after a fighter settles
	HealthPercent int    `json:"healthPercent"` // Recovery target, percent of MaxHealth
	PowerPercent  int    `json:"powerPercent"`  // Recovery target, percent of PowerMax
	RecoverDelay  int    `json:"recoverDelay"`  // Free ticks before recovery applies
}

// DefaultTraining returns training rules that are all off.
func DefaultTraining() TrainingConfig {
	return TrainingConfig{
		HealthPercent: 100,
		PowerPercent:  100,
		RecoverDelay:  60,
	}
}

// Validate reports an unknown posture or an out-of-range percentage.
func (t TrainingConfig) Validate() error {
	switch t.DummyState {
	case DummyFree, DummyStand, DummyCrouch, DummyJump:
	default:
		return fmt.Errorf("training: unknown dummy state %q", t.DummyState)
	}
	if t.HealthPercent < 1 || t.HealthPercent > 100 {
		return fmt.Errorf("training: health percent %d outside [1,100]", t.HealthPercent)
	}
	if t.PowerPercent < 0 || t.PowerPercent > 100 {
		return fmt.Errorf("training: power percent %d outside [0,100]", t.PowerPercent)
	}
	if t.RecoverDelay < 0 {
		return fmt.Errorf("training: negative recover delay %d", t.RecoverDelay)
	}
	return nil
}

// TrainingFromEnv returns training rules with environment variable overrides.
func TrainingFromEnv() (TrainingConfig, error) {
	cfg := DefaultTraining()

	cfg.DummyGuard = os.Getenv("TRAINING_DUMMY_GUARD") == "true"
	cfg.DummyState = strings.ToLower(os.Getenv("TRAINING_DUMMY_STATE"))
	cfg.AutoRecover = os.Getenv("TRAINING_AUTO_RECOVER") == "true"
	cfg.HealthPercent = getEnvInt("TRAINING_HEALTH_PERCENT", cfg.HealthPercent)
	cfg.PowerPercent = getEnvInt("TRAINING_POWER_PERCENT", cfg.PowerPercent)
	cfg.RecoverDelay = getEnvInt("TRAINING_RECOVER_DELAY", cfg.RecoverDelay)

	if err := cfg.Validate(); err != nil {
		return TrainingConfig{}, err
	}
	return cfg, nil
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	CORSOrigins  []string
	BroadcastHz  int
	EventLogPath string
	DebugServer  bool
	DebugAddr    string
	LogFormat    string // "json" or "console"
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		BroadcastHz:  20,
		EventLogPath: "events.jsonl",
		DebugServer:  true,
		DebugAddr:    "127.0.0.1:6060",
		LogFormat:    "json",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if hz := getEnvInt("BROADCAST_HZ", 0); hz > 0 {
		cfg.BroadcastHz = hz
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = v
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugServer = false
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Simulation SimulationConfig
	Combat     CombatConfig
	Data       DataConfig
	Server     ServerConfig
	Training   TrainingConfig
}

// Load returns the complete configuration with environment overrides.
func Load() (AppConfig, error) {
	combat, err := CombatFromEnv()
	if err != nil {
		return AppConfig{}, err
	}
	training, err := TrainingFromEnv()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Simulation: SimulationFromEnv(),
		Combat:     combat,
		Data:       DataFromEnv(),
		Server:     ServerFromEnv(),
		Training:   training,
	}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
