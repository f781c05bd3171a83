package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]Service {
	t.Helper()
	sqliteManager, err := NewSQLiteManager(filepath.Join(t.TempDir(), "auth.db"), time.Hour)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteManager.Close() })
	return map[string]Service{
		"memory": NewManager(time.Hour),
		"sqlite": sqliteManager,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			account, token, err := m.Register("alice_01", "secret12")
			if err != nil {
				t.Fatalf("register failed: %v", err)
			}
			if account.ID == "" {
				t.Fatalf("expected account id")
			}
			if token == "" {
				t.Fatalf("expected non-empty token")
			}

			resolved, ok := m.ResolveSession(token)
			if !ok {
				t.Fatalf("expected valid session")
			}
			if resolved.ID != account.ID {
				t.Fatalf("expected same account id, got %s and %s", account.ID, resolved.ID)
			}
			if resolved.Username != "alice_01" {
				t.Fatalf("expected username alice_01, got %s", resolved.Username)
			}
			if resolved.Guest {
				t.Fatalf("registered account must not be a guest")
			}

			loggedIn, loginToken, err := m.Login("ALICE_01", "secret12")
			if err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if loggedIn.ID != account.ID {
				t.Fatalf("expected same account id after login")
			}
			if loginToken == "" || loginToken == token {
				t.Fatalf("expected a fresh login token")
			}
		})
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := m.Register("alice_01", "secret12"); err != nil {
				t.Fatalf("register failed: %v", err)
			}
			if _, _, err := m.Register("Alice_01", "secret12"); !errors.Is(err, ErrUsernameTaken) {
				t.Fatalf("expected ErrUsernameTaken, got %v", err)
			}
		})
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	m := NewManager(0)
	if _, _, err := m.Register("a", "secret12"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	if _, _, err := m.Register("alice_01", "123"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := m.Register("alice_01", "secret12"); err != nil {
				t.Fatalf("register failed: %v", err)
			}
			if _, _, err := m.Login("alice_01", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if _, _, err := m.Login("nobody", "secret12"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
			}
		})
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, token, err := m.Register("alice_01", "secret12")
			if err != nil {
				t.Fatalf("register failed: %v", err)
			}
			m.Logout(token)
			if _, ok := m.ResolveSession(token); ok {
				t.Fatalf("expected logged out token to be invalid")
			}
		})
	}
}
