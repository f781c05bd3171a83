package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serveAuth(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHTTPHandler(NewManager(time.Hour)).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHTTPGuestClaimFlow(t *testing.T) {
	srv := serveAuth(t)

	resp, body := call(t, http.MethodPost, srv.URL+"/api/auth/guest", "", `{"display_name":"Linus"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("guest status %d: %v", resp.StatusCode, body)
	}
	token, _ := body["session_token"].(string)
	if token == "" {
		t.Fatalf("expected a session token, got %v", body)
	}

	resp, me := call(t, http.MethodGet, srv.URL+"/api/auth/me", token, "")
	if resp.StatusCode != http.StatusOK || me["username"] != "Linus" || me["guest"] != true {
		t.Fatalf("unexpected /me %d: %v", resp.StatusCode, me)
	}

	resp, body = call(t, http.MethodPost, srv.URL+"/api/auth/claim", token, `{"username":"linus_t","password":"secret12"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status %d: %v", resp.StatusCode, body)
	}
	if resp, _ := call(t, http.MethodPost, srv.URL+"/api/auth/claim", token, `{"username":"linus_2","password":"secret12"}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second claim: expected 409, got %d", resp.StatusCode)
	}

	resp, body = call(t, http.MethodPost, srv.URL+"/api/auth/login", "", `{"username":"linus_t","password":"secret12"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}

	if resp, _ := call(t, http.MethodPost, srv.URL+"/api/auth/logout", token, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, http.MethodGet, srv.URL+"/api/auth/me", token, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestHTTPRejections(t *testing.T) {
	srv := serveAuth(t)

	if resp, _ := call(t, http.MethodGet, srv.URL+"/api/auth/login", "", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, http.MethodPost, srv.URL+"/api/auth/register", "", `{"username":"ab","password":"secret12"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short username, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, http.MethodPost, srv.URL+"/api/auth/register", "", `{"username":"abc","password":"secret12","extra":1}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, http.MethodPost, srv.URL+"/api/auth/login", "", `{"username":"nobody","password":"secret12"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, http.MethodGet, srv.URL+"/api/auth/me", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := call(t, http.MethodPost, srv.URL+"/api/auth/claim", "nope", `{"username":"abc","password":"secret12"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for claim with bad token, got %d", resp.StatusCode)
	}
}
