package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"spacewar/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatMsgpack selects the binary encoding on snapshot endpoints.
const FormatMsgpack = "msgpack"

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Lifecycle())
}

func (h *routerHandlers) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.GetSnapshot()

	if r.URL.Query().Get("format") == FormatMsgpack {
		writeMsgpack(w, &snapshot)
		return
	}
	writeJSON(w, &snapshot)
}

func (h *routerHandlers) handleGetScores(w http.ResponseWriter, r *http.Request) {
	lc := h.engine.Lifecycle()

	players := make([]map[string]interface{}, 0, len(lc.Players))
	for _, p := range lc.Players {
		players = append(players, map[string]interface{}{
			"index": p.Index,
			"name":  p.Name,
			"score": p.Score,
			"isAi":  p.IsAI,
		})
	}

	writeJSON(w, map[string]interface{}{
		"scores":  h.engine.Scores(),
		"players": players,
	})
}

// keyRequest is the body of POST /api/keys and of websocket key messages
type keyRequest struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

func (h *routerHandlers) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		writeError(w, "Key is required", http.StatusBadRequest)
		return
	}

	applyKey(h.engine, req)
	writeJSON(w, map[string]bool{"success": true})
}

// applyKey routes a key event to the engine
func applyKey(engine EngineInterface, req keyRequest) {
	key := game.Key(req.Key)
	if req.Pressed {
		engine.KeyDown(key)
	} else {
		engine.KeyUp(key)
	}
}

func (h *routerHandlers) handleSetAI(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, "Invalid player index", http.StatusBadRequest)
		return
	}

	// Body is optional; an empty body enables the AI
	req := struct {
		AI *bool `json:"ai"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	ai := req.AI == nil || *req.AI

	if err := h.engine.SetPlayerAI(index, ai); err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{"success": true, "player": index, "isAi": ai})
}

func (h *routerHandlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	if !h.engine.RequestRestart() {
		writeError(w, "No finished match to restart", http.StatusConflict)
		return
	}
	log.Println("🔄 Restart requested via API")
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeMsgpack(w http.ResponseWriter, data interface{}) {
	body, err := msgpack.Marshal(data)
	if err != nil {
		writeError(w, "Encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.Write(body)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
