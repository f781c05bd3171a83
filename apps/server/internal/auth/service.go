package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
	maxDisplayName    = 32
	opTimeout         = 5 * time.Second
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrNotGuest           = errors.New("account already has a password")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Account is the identity a session resolves to. ID doubles as the
// player id inside rooms and in the game ledger.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Guest    bool   `json:"guest"`
}

// Service is the auth/session contract consumed by gateway and HTTP handlers.
type Service interface {
	// Guest creates a password-less account shown as displayName.
	Guest(displayName string) (account Account, sessionToken string, err error)
	Register(username, password string) (account Account, sessionToken string, err error)
	Login(username, password string) (account Account, sessionToken string, err error)
	// Claim turns the guest behind sessionToken into a password account.
	// The account id, and with it the player's history, is kept.
	Claim(sessionToken, username, password string) (Account, error)
	ResolveSession(token string) (account Account, ok bool)
	Logout(token string)
	Close() error
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// checkCredentials validates a username/password pair for a new password
// account and returns the normalized username.
func checkCredentials(username, password string) (string, error) {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 || len(password) > 72 {
		return "", ErrInvalidPassword
	}
	return normalizeUsername(username), nil
}

// guestName trims a requested display name, falling back to a generated one.
func guestName(displayName string) string {
	name := strings.Join(strings.Fields(displayName), " ")
	if utf8.RuneCountInString(name) > maxDisplayName {
		name = string([]rune(name)[:maxDisplayName])
	}
	if name == "" {
		name = "guest_" + mustToken()[:6]
	}
	return name
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
