package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Manager keeps accounts and sessions in process memory. Everything is
// lost on restart; it is the default for single-binary deployments.
type Manager struct {
	mu sync.Mutex

	sessionTTL time.Duration
	sessions   map[string]session // token -> session
	accounts   map[string]*member // account id -> account
	byUsername map[string]string  // normalized username -> account id
}

type session struct {
	accountID string
	expiresAt time.Time
}

type member struct {
	Account
	passwordHash []byte
	lastLogin    time.Time
}

func NewManager(sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Manager{
		sessionTTL: sessionTTL,
		sessions:   make(map[string]session),
		accounts:   make(map[string]*member),
		byUsername: make(map[string]string),
	}
}

func (m *Manager) Close() error { return nil }

func (m *Manager) Guest(displayName string) (Account, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	acc := &member{
		Account:   Account{ID: uuid.NewString(), Username: guestName(displayName), Guest: true},
		lastLogin: now,
	}
	m.accounts[acc.ID] = acc
	return acc.Account, m.issueLocked(acc.ID, now), nil
}

func (m *Manager) Register(username, password string) (Account, string, error) {
	normalized, err := checkCredentials(username, password)
	if err != nil {
		return Account{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byUsername[normalized]; taken {
		return Account{}, "", ErrUsernameTaken
	}

	now := time.Now()
	acc := &member{
		Account:      Account{ID: uuid.NewString(), Username: normalized},
		passwordHash: hash,
		lastLogin:    now,
	}
	m.accounts[acc.ID] = acc
	m.byUsername[normalized] = acc.ID
	return acc.Account, m.issueLocked(acc.ID, now), nil
}

func (m *Manager) Login(username, password string) (Account, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Account{}, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts[m.byUsername[normalized]]
	if acc == nil || len(acc.passwordHash) == 0 {
		return Account{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return Account{}, "", ErrInvalidCredentials
	}

	now := time.Now()
	acc.lastLogin = now
	return acc.Account, m.issueLocked(acc.ID, now), nil
}

func (m *Manager) Claim(sessionToken, username, password string) (Account, error) {
	normalized, err := checkCredentials(username, password)
	if err != nil {
		return Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.sessionAccountLocked(sessionToken, time.Now())
	if acc == nil {
		return Account{}, ErrInvalidSession
	}
	if !acc.Guest {
		return Account{}, ErrNotGuest
	}
	if _, taken := m.byUsername[normalized]; taken {
		return Account{}, ErrUsernameTaken
	}

	acc.Username = normalized
	acc.Guest = false
	acc.passwordHash = hash
	m.byUsername[normalized] = acc.ID
	return acc.Account, nil
}

// ResolveSession validates token and slides its expiry forward.
func (m *Manager) ResolveSession(token string) (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.sessionAccountLocked(token, time.Now())
	if acc == nil {
		return Account{}, false
	}
	return acc.Account, true
}

func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) issueLocked(accountID string, now time.Time) string {
	token := mustToken()
	m.sessions[token] = session{accountID: accountID, expiresAt: now.Add(m.sessionTTL)}
	return token
}

// sessionAccountLocked resolves token, dropping it when expired.
func (m *Manager) sessionAccountLocked(token string, now time.Time) *member {
	s, ok := m.sessions[token]
	if !ok || token == "" {
		return nil
	}
	if !now.Before(s.expiresAt) {
		delete(m.sessions, token)
		return nil
	}
	s.expiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = s
	return m.accounts[s.accountID]
}
