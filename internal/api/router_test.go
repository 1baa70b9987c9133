package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-fighters/internal/config"
	"script-fighters/internal/debugdraw"
	"script-fighters/internal/game"
	"script-fighters/internal/movedata"
)

func newTestEngine(t *testing.T) *game.Engine {
	t.Helper()
	lib, err := movedata.LoadBuiltin()
	require.NoError(t, err)
	p1, p2, err := lib.Pair("ryuko", "ryuko")
	require.NoError(t, err)
	return game.NewEngine(config.DefaultSimulation(), config.DefaultCombat(), p1, p2, nil)
}

func newTestRouter(t *testing.T, e *game.Engine, rl *RateLimitConfig) http.Handler {
	t.Helper()
	if rl == nil {
		rl = &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}
	}
	limiter := NewIPRateLimiter(*rl)
	t.Cleanup(limiter.Stop)
	return NewRouter(RouterConfig{
		Engine:         e,
		Renderer:       debugdraw.NewRenderer(config.DefaultSimulation()),
		RateLimiter:    limiter,
		DisableLogging: true,
	})
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestGetState(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	rec := do(h, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeMap(t, rec)
	assert.Equal(t, e.MatchID(), body["matchId"])
	fighters, ok := body["fighters"].([]any)
	require.True(t, ok)
	assert.Len(t, fighters, 2)
}

// TestPostInput verifies latched input moves a fighter on the next tick
func TestPostInput(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	rec := do(h, http.MethodPost, "/api/input/1", `{"moveX":1}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	e.Step()
	assert.Equal(t, 264.0, e.GetSnapshot().Fighters[0].X)
}

func TestPostInputErrors(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"bad side", "/api/input/3", `{"moveX":1}`},
		{"bad body", "/api/input/1", `{"moveX":`},
		{"unknown attack", "/api/input/2", `{"attack":"LASER"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeMap(t, rec)["error"])
		})
	}
}

func TestMatchReset(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)
	old := e.MatchID()
	e.Step()

	rec := do(h, http.MethodPost, "/api/match/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeMap(t, rec)["matchId"]
	assert.NotEqual(t, old, id)
	assert.Equal(t, e.MatchID(), id)
	assert.Equal(t, uint64(0), e.GetSnapshot().Tick)
}

func TestGetCharacter(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	rec := do(h, http.MethodGet, "/api/character?side=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, float64(game.SideP2), body["side"])

	char, ok := body["character"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ryuko", char["name"])
	assert.Contains(t, char["moves"], game.SpecialHadoken)
	assert.NotEmpty(t, char["specials"])

	rec = do(h, http.MethodGet, "/api/character?side=left", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventStats(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	rec := do(h, http.MethodGet, "/api/events/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["running"])

	rec = do(h, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeMap(t, rec), "rateLimit")
}

func TestHitboxPNG(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	rec := do(h, http.MethodGet, "/api/debug/hitboxes.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 820, img.Bounds().Dx())

	bare := NewRouter(RouterConfig{Engine: e, DisableLogging: true})
	rec = do(bare, http.MethodGet, "/api/debug/hitboxes.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/state", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/state", "").Code)

	rec := do(h, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/input/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginChecker(t *testing.T) {
	oc := NewOriginChecker([]string{"http://localhost:*", "https://arcade.example"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"https://arcade.example", true},
		{"http://localhost.evil.test", false},
		{"http://localhost:80.evil.test", false},
		{"https://evil.test", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, oc.Allowed(tt.origin))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.7:4000", "192.0.2.7"},
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.2 "}, "10.0.0.1:1", "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestIPRateLimiterSweep(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	t.Cleanup(rl.Stop)

	assert.True(t, rl.Allow("192.0.2.1"))
	assert.False(t, rl.Allow("192.0.2.1"))
	assert.True(t, rl.Allow("192.0.2.2"))

	stats := rl.GetStats()
	assert.Equal(t, uint64(2), stats.Allowed)
	assert.Equal(t, uint64(1), stats.Rejected)
	assert.Equal(t, 2, stats.Visitors)

	rl.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 0, rl.GetStats().Visitors)
	rl.Stop()
}

func TestTrainingEndpoint(t *testing.T) {
	e := newTestEngine(t)
	h := newTestRouter(t, e, nil)

	rec := do(h, http.MethodGet, "/api/training", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["dummyGuard"])
	assert.Equal(t, float64(100), decodeMap(t, rec)["healthPercent"])

	rec = do(h, http.MethodPut, "/api/training", `{"dummyGuard":true,"dummyState":"crouch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := e.Training()
	assert.True(t, tr.DummyGuard)
	assert.Equal(t, config.DummyCrouch, tr.DummyState)
	assert.Equal(t, 100, tr.HealthPercent, "omitted fields keep their value")

	tests := []struct {
		name string
		body string
	}{
		{"bad state", `{"dummyState":"lying"}`},
		{"bad percent", `{"healthPercent":0}`},
		{"bad body", `{"dummyGuard":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPut, "/api/training", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, config.DummyCrouch, e.Training().DummyState, "rejected updates change nothing")
}
