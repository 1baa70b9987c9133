package api

import (
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"script-fighters/internal/game"
)

// Metrics with bounded cardinality: labels are sides, move kinds and phase
// names, never match ids.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fight_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016},
	})

	hitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fight_hits_total",
		Help: "Landed attacks by attacker side and outcome",
	}, []string{"side", "outcome"}) // outcome: hit, guard, throw

	projectileHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fight_projectile_hits_total",
		Help: "Projectile contacts by attacker side",
	}, []string{"side"})

	damageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fight_damage_total",
		Help: "Damage dealt by attacker side",
	}, []string{"side"})

	specialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fight_specials_total",
		Help: "Recognized special commands",
	}, []string{"key"})

	cinematicPhases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fight_cinematic_phase_total",
		Help: "Finisher phase transitions",
	}, []string{"phase"})

	roundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fight_rounds_total",
		Help: "Finished rounds by winner",
	}, []string{"winner"})

	eventLogPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fight_event_log_pending",
		Help: "Events buffered but not yet written",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fight_event_log_dropped",
		Help: "Events dropped by rate limiting or a full buffer",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket frames sent by encoding",
	}, []string{"format"})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // Loopback only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv applies DEBUG_USER / DEBUG_PASS to the given address.
func ObservabilityFromEnv(enabled bool, addr string) ObservabilityConfig {
	cfg := DefaultObservabilityConfig()
	cfg.Enabled = enabled
	if addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	return cfg
}

// loopbackAddr reports whether addr binds to a loopback interface.
func loopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// DebugHandler serves pprof, Prometheus metrics and a health check.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server. The returned
// server is nil when disabled; callers shut it down with the HTTP server.
func StartDebugServer(cfg ObservabilityConfig, logger *zap.Logger) *http.Server {
	if !cfg.Enabled {
		logger.Info("debug server disabled")
		return nil
	}

	if !loopbackAddr(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		logger.Warn("debug server forced to loopback", zap.String("requested", cfg.ListenAddr))
		cfg.ListenAddr = DefaultObservabilityConfig().ListenAddr
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("debug server starting",
			zap.String("pprof", "http://"+cfg.ListenAddr+"/debug/pprof/"),
			zap.String("metrics", "http://"+cfg.ListenAddr+"/metrics"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("debug server error", zap.Error(err))
		}
	}()

	return srv
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// MetricsCallbacks returns match callbacks that feed the combat counters.
func MetricsCallbacks() game.Callbacks {
	return game.Callbacks{
		OnOutcome: func(out game.HitOutcome, projectile bool) {
			side := out.AttackerSide.String()
			if projectile {
				projectileHits.WithLabelValues(side).Inc()
			}
			outcome := "hit"
			switch {
			case out.Thrown:
				outcome = "throw"
			case out.Guarded:
				outcome = "guard"
			}
			hitsTotal.WithLabelValues(side, outcome).Inc()
			damageTotal.WithLabelValues(side).Add(float64(out.Damage))
		},
		OnSpecial: func(_ game.Side, key string) {
			specialsTotal.WithLabelValues(key).Inc()
		},
		OnCinematic: func(step game.CinematicStep) {
			cinematicPhases.WithLabelValues(step.To.String()).Inc()
		},
		OnKO: func(winner game.Side) {
			roundsTotal.WithLabelValues(winner.String()).Inc()
		},
	}
}

// UpdateEventLogStats mirrors the event log counters into gauges.
func UpdateEventLogStats(stats game.EventLogStats) {
	eventLogPending.Set(float64(stats.Pending))
	eventLogDropped.Set(float64(stats.Dropped))
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, route string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one sent frame.
func IncrementWSMessages(format string) {
	wsMessagesTotal.WithLabelValues(format).Inc()
}
