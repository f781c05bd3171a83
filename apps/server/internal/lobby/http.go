package lobby

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"

	"rummy-lite/apps/server/internal/codec"
	"rummy-lite/rummy"
)

const roomsPrefix = "/api/rooms/"

type HTTPHandler struct {
	lobby *Lobby
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewHTTPHandler(l *Lobby) *HTTPHandler {
	return &HTTPHandler{lobby: l}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms", h.handleList)
	mux.HandleFunc(roomsPrefix, h.handleRoom)
	mux.HandleFunc("/api/generate-code", h.handleGenerateCode)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": h.lobby.Codes(),
	})
}

// handleRoom serves GET /api/rooms/{code} and GET /api/rooms/{code}/exists.
func (h *HTTPHandler) handleRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, roomsPrefix))
	parts := strings.Split(path, "/")
	code := normalizeCode(parts[0])
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing room code")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "exists":
		writeJSON(w, http.StatusOK, map[string]any{
			"code":   code,
			"exists": h.lobby.Exists(code),
		})
	case len(parts) == 1:
		h.handleSnapshot(w, code)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *HTTPHandler) handleSnapshot(w http.ResponseWriter, code string) {
	rm := h.lobby.Get(code)
	if rm == nil {
		writeKindError(w, http.StatusNotFound, rummy.ErrGameNotFound)
		return
	}
	msg, err := codec.SnapshotToProto(rm.Snapshot())
	if err != nil {
		log.Printf("[Lobby] encode snapshot of room %s failed: %v", code, err)
		writeError(w, http.StatusInternalServerError, "encode snapshot failed")
		return
	}
	raw, err := protojson.Marshal(msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode snapshot failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *HTTPHandler) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	code, err := h.lobby.GenerateCode()
	if err != nil {
		var kindErr *rummy.Error
		if errors.As(err, &kindErr) {
			writeKindError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, "generate code failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code": code,
	})
}

func writeKindError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(rummy.KindOf(err))})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
