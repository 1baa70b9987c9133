package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"script-fighters/internal/game"
)

// maxInputBody bounds POST /api/input bodies.
const maxInputBody = 1 << 10

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	writeJSON(w, map[string]any{
		"matchId":   snap.MatchID,
		"tick":      snap.Tick,
		"sequence":  snap.Sequence,
		"over":      snap.Over,
		"rateLimit": h.limiter.GetStats(),
		"eventLog":  h.engine.EventLogStats(),
	})
}

// characterResponse is the command list and frame data of one side.
type characterResponse struct {
	Side      game.Side                 `json:"side"`
	Character *game.CharacterDefinition `json:"character"`
}

func (h *routerHandlers) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	side := game.SideP1
	if s := r.URL.Query().Get("side"); s != "" {
		var err error
		if side, err = game.ParseSide(s); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	char := h.engine.Character(side)
	if char == nil {
		writeError(w, "no character loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, characterResponse{Side: side, Character: char})
}

func (h *routerHandlers) handleEventStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.EventLogStats())
}

func (h *routerHandlers) handleHitboxPNG(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "debug rendering disabled", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.WritePNG(&buf, h.engine.GetSnapshot()); err != nil {
		h.logger.Error("render hitboxes", zap.Error(err))
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	side, err := game.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var in game.Intent
	r.Body = http.MaxBytesReader(w, r.Body, maxInputBody)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if in.Attack != "" {
		if char := h.engine.Character(side); char == nil || char.Moves[in.Attack] == nil {
			writeError(w, "unknown attack: "+in.Attack, http.StatusBadRequest)
			return
		}
	}

	if err := h.engine.SetIntent(side, in); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, game.ErrInvalidSide) {
			status = http.StatusBadRequest
		}
		writeError(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	snap := h.engine.GetSnapshot()
	h.logger.Info("match reset", zap.String("match_id", snap.MatchID))
	writeJSON(w, map[string]any{"matchId": snap.MatchID})
}

func (h *routerHandlers) handleGetTraining(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Training())
}

// handlePutTraining merges the body into the current rules, so clients may
// send only the fields they change.
func (h *routerHandlers) handlePutTraining(w http.ResponseWriter, r *http.Request) {
	t := h.engine.Training()
	r.Body = http.MaxBytesReader(w, r.Body, maxInputBody)
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.SetTraining(t); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, t)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
