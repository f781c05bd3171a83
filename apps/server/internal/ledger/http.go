package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rummy-lite/apps/server/internal/auth"
	"rummy-lite/replay"
)

const historyPrefix = "/api/history/"

type HTTPHandler struct {
	auth   auth.Service
	ledger Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(authService auth.Service, ledgerService Service) *HTTPHandler {
	return &HTTPHandler{
		auth:   authService,
		ledger: ledgerService,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", h.handleRecent)
	mux.HandleFunc(historyPrefix, h.handleGame)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	account, ok := h.resolveAccount(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.ledger.ListRecent(ctx, account.ID, limit)
	if err != nil {
		log.Printf("[Ledger] list recent failed: player=%s err=%v", account.ID, err)
		writeError(w, http.StatusInternalServerError, "query recent games failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (h *HTTPHandler) handleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	account, ok := h.resolveAccount(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	path := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, historyPrefix))
	parts := strings.Split(path, "/")
	gameID := strings.TrimSpace(parts[0])
	if gameID == "" {
		writeError(w, http.StatusBadRequest, "missing game id")
		return
	}
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "replay") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	rec, err := h.ledger.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "query game failed")
		return
	}
	// Only participants may look at a game.
	if !rec.Participant(account.ID) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	spec := rec.Spec
	spec.Hero = account.ID
	tape, err := replay.GenerateReplayTape(spec)
	if err != nil {
		log.Printf("[Ledger] replay of game %s failed: %v", gameID, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, replay.ToWireReplayTape(tape))
}

func (h *HTTPHandler) resolveAccount(r *http.Request) (auth.Account, bool) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Account{}, false
	}
	return h.auth.ResolveSession(token)
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return clampLimit(n)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
