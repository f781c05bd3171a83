package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

type HTTPHandler struct {
	service Service
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type guestRequest struct {
	DisplayName string `json:"display_name"`
}

type sessionResponse struct {
	Account      Account `json:"account"`
	SessionToken string  `json:"session_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// sessionHandler serves a request whose bearer token already resolved.
type sessionHandler func(w http.ResponseWriter, r *http.Request, token string, account Account)

func NewHTTPHandler(service Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/guest", only(http.MethodPost, h.handleGuest))
	mux.HandleFunc("/api/auth/register", only(http.MethodPost, h.handleRegister))
	mux.HandleFunc("/api/auth/login", only(http.MethodPost, h.handleLogin))
	mux.HandleFunc("/api/auth/claim", only(http.MethodPost, h.withSession(h.handleClaim)))
	mux.HandleFunc("/api/auth/logout", only(http.MethodPost, h.handleLogout))
	mux.HandleFunc("/api/auth/me", only(http.MethodGet, h.withSession(h.handleMe)))
}

func only(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

func (h *HTTPHandler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		account, ok := h.service.ResolveSession(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		next(w, r, token, account)
	}
}

func (h *HTTPHandler) handleGuest(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	account, token, err := h.service.Guest(req.DisplayName)
	h.writeSession(w, "guest", account, token, err)
}

func (h *HTTPHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, token, err := h.service.Register(req.Username, req.Password)
	h.writeSession(w, "register", account, token, err)
}

func (h *HTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, token, err := h.service.Login(req.Username, req.Password)
	h.writeSession(w, "login", account, token, err)
}

func (h *HTTPHandler) handleClaim(w http.ResponseWriter, r *http.Request, token string, _ Account) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.Claim(token, req.Username, req.Password)
	h.writeSession(w, "claim", account, token, err)
}

func (h *HTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	h.service.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleMe(w http.ResponseWriter, _ *http.Request, _ string, account Account) {
	writeJSON(w, http.StatusOK, account)
}

func (h *HTTPHandler) writeSession(w http.ResponseWriter, op string, account Account, token string, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, sessionResponse{Account: account, SessionToken: token})
		return
	}
	switch {
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrNotGuest):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "invalid session token")
	default:
		log.Printf("[Auth] %s failed: %v", op, err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
