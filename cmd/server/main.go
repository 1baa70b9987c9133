package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"script-fighters/internal/api"
	"script-fighters/internal/config"
	"script-fighters/internal/debugdraw"
	"script-fighters/internal/game"
	"script-fighters/internal/movedata"
)

func main() {
	// .env is optional; the parent directory wins so `go run ./cmd/server` works from the repo.
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		envErr = godotenv.Load(".env")
	}

	appConfig, cfgErr := config.Load()
	logger := newLogger(appConfig.Server.LogFormat)
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found, using environment variables only")
	}
	if cfgErr != nil {
		logger.Fatal("load configuration", zap.Error(cfgErr))
	}

	if err := run(appConfig, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(appConfig config.AppConfig, logger *zap.Logger) error {
	simCfg := appConfig.Simulation
	dataCfg := appConfig.Data
	serverCfg := appConfig.Server

	lib, err := movedata.Load(dataCfg.CharacterPath)
	if err != nil {
		return err
	}
	for _, w := range lib.Warnings() {
		logger.Warn("character table problem", zap.Error(w))
	}
	p1, p2, err := lib.Pair(dataCfg.P1Character, dataCfg.P2Character)
	if err != nil {
		return err
	}

	logger.Info("simulation configured",
		zap.Int("fps", simCfg.FPS),
		zap.Float64("stage_width", simCfg.StageWidth),
		zap.String("p1", p1.Name),
		zap.String("p2", p2.Name))

	engine := game.NewEngine(simCfg, appConfig.Combat, p1, p2, logger.Named("engine"))
	engine.SetCallbacks(api.MetricsCallbacks())
	engine.SetTickObserver(api.RecordTick)
	if err := engine.SetTraining(appConfig.Training); err != nil {
		return err
	}

	if path := serverCfg.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			logger.Warn("event log disabled", zap.Error(err))
		} else {
			logger.Info("event log started", zap.String("path", path))
		}
	}

	if dataCfg.HotReload && dataCfg.CharacterPath != "" {
		reloader, err := movedata.NewReloader(dataCfg.CharacterPath, func(lib *movedata.Library) {
			p1, p2, err := lib.Pair(dataCfg.P1Character, dataCfg.P2Character)
			if err != nil {
				logger.Warn("reloaded tables missing a fighter", zap.Error(err))
				return
			}
			engine.SetCharacters(p1, p2)
		}, logger.Named("movedata"))
		if err != nil {
			logger.Warn("character hot reload disabled", zap.Error(err))
		} else {
			defer reloader.Close()
			logger.Info("character hot reload enabled", zap.String("path", dataCfg.CharacterPath))
		}
	}

	debugSrv := api.StartDebugServer(api.ObservabilityFromEnv(serverCfg.DebugServer, serverCfg.DebugAddr), logger.Named("debug"))

	server := api.NewServer(engine, api.ServerOptions{
		Addr:        fmt.Sprintf(":%d", serverCfg.Port),
		CORSOrigins: serverCfg.CORSOrigins,
		BroadcastHz: serverCfg.BroadcastHz,
		Renderer:    debugdraw.NewRenderer(simCfg),
		Logger:      logger,
	})

	engine.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server ready", zap.Int("port", serverCfg.Port), zap.String("match_id", engine.MatchID()))

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	if debugSrv != nil {
		if err := debugSrv.Shutdown(ctx); err != nil {
			logger.Warn("debug server shutdown", zap.Error(err))
		}
	}
	engine.Stop()
	engine.StopEventLog()

	stats := engine.EventLogStats()
	logger.Info("stopped", zap.Uint64("events", stats.Total), zap.Uint64("events_dropped", stats.Dropped))
	return runErr
}

// newLogger builds a production JSON logger, or a colored development
// console logger when format is "console".
func newLogger(format string) *zap.Logger {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if l, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(l)
		}
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
