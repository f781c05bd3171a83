package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dialect captures what differs between the SQL backends. Queries are
// written with ? placeholders and rebound per dialect.
type dialect struct {
	name     string
	numbered bool // $1, $2, ... instead of ?
	unique   func(err error) bool
	schema   []string
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLManager keeps accounts and sessions in a SQL database. Timestamps are
// stored as unix milliseconds on every dialect.
type SQLManager struct {
	db         *sql.DB
	d          dialect
	sessionTTL time.Duration
}

func newSQLManager(db *sql.DB, d dialect, sessionTTL time.Duration) (*SQLManager, error) {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s auth schema: %w", d.name, err)
		}
	}
	return &SQLManager{db: db, d: d, sessionTTL: sessionTTL}, nil
}

func (m *SQLManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// inTx runs fn in a transaction stamped with the current time.
func (m *SQLManager) inTx(ctx context.Context, fn func(tx *sql.Tx, nowMs int64) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx, time.Now().UTC().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (m *SQLManager) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, m.d.rebind(query), args...)
}

func (m *SQLManager) Guest(displayName string) (Account, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	account := Account{Username: guestName(displayName), Guest: true}
	var token string
	// The hidden username only has to be unique; retry on the rare clash.
	for i := 0; i < 5; i++ {
		account.ID = uuid.NewString()
		err := m.inTx(ctx, func(tx *sql.Tx, nowMs int64) error {
			if _, err := m.exec(ctx, tx, `
INSERT INTO accounts (id, username, display_name, is_guest, created_at_ms, updated_at_ms, last_login_at_ms)
VALUES (?, ?, ?, 1, ?, ?, ?)
`, account.ID, "guest_"+mustToken()[:12], account.Username, nowMs, nowMs, nowMs); err != nil {
				return err
			}
			var err error
			token, err = m.issueSessionTx(ctx, tx, account.ID, nowMs)
			return err
		})
		if err == nil {
			return account, token, nil
		}
		if !m.d.unique(err) {
			return Account{}, "", err
		}
	}
	return Account{}, "", fmt.Errorf("failed to allocate guest account")
}

func (m *SQLManager) Register(username, password string) (Account, string, error) {
	normalized, err := checkCredentials(username, password)
	if err != nil {
		return Account{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	account := Account{ID: uuid.NewString(), Username: normalized}
	var token string
	err = m.inTx(ctx, func(tx *sql.Tx, nowMs int64) error {
		if _, err := m.exec(ctx, tx, `
INSERT INTO accounts (id, username, display_name, is_guest, created_at_ms, updated_at_ms, last_login_at_ms)
VALUES (?, ?, ?, 0, ?, ?, ?)
`, account.ID, normalized, normalized, nowMs, nowMs, nowMs); err != nil {
			return err
		}
		if err := m.addPasswordTx(ctx, tx, account.ID, normalized, hash, nowMs); err != nil {
			return err
		}
		var err error
		token, err = m.issueSessionTx(ctx, tx, account.ID, nowMs)
		return err
	})
	if err != nil {
		if m.d.unique(err) {
			return Account{}, "", ErrUsernameTaken
		}
		return Account{}, "", err
	}
	return account, token, nil
}

func (m *SQLManager) Login(username, password string) (Account, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Account{}, "", ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	account := Account{Username: normalized}
	var hash string
	err := m.db.QueryRowContext(ctx, m.d.rebind(`
SELECT account_id, password_hash
FROM auth_identities
WHERE provider = 'local'
  AND provider_subject = ?
`), normalized).Scan(&account.ID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Account{}, "", ErrInvalidCredentials
	}

	var token string
	err = m.inTx(ctx, func(tx *sql.Tx, nowMs int64) error {
		if _, err := m.exec(ctx, tx, `
UPDATE accounts SET last_login_at_ms = ?, updated_at_ms = ? WHERE id = ?
`, nowMs, nowMs, account.ID); err != nil {
			return err
		}
		var err error
		token, err = m.issueSessionTx(ctx, tx, account.ID, nowMs)
		return err
	})
	if err != nil {
		return Account{}, "", err
	}
	return account, token, nil
}

func (m *SQLManager) Claim(sessionToken, username, password string) (Account, error) {
	normalized, err := checkCredentials(username, password)
	if err != nil {
		return Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	account := Account{Username: normalized}
	err = m.inTx(ctx, func(tx *sql.Tx, nowMs int64) error {
		var isGuest int
		err := tx.QueryRowContext(ctx, m.d.rebind(`
SELECT a.id, a.is_guest
FROM auth_sessions AS s
JOIN accounts AS a ON a.id = s.account_id
WHERE s.token = ?
  AND s.revoked_at_ms IS NULL
  AND s.expires_at_ms > ?
`), strings.TrimSpace(sessionToken), nowMs).Scan(&account.ID, &isGuest)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidSession
		}
		if err != nil {
			return err
		}
		if isGuest == 0 {
			return ErrNotGuest
		}
		if _, err := m.exec(ctx, tx, `
UPDATE accounts
SET username = ?, display_name = ?, is_guest = 0, updated_at_ms = ?
WHERE id = ?
`, normalized, normalized, nowMs, account.ID); err != nil {
			return err
		}
		return m.addPasswordTx(ctx, tx, account.ID, normalized, hash, nowMs)
	})
	if err != nil {
		if m.d.unique(err) {
			return Account{}, ErrUsernameTaken
		}
		return Account{}, err
	}
	return account, nil
}

// ResolveSession validates token and slides its expiry forward.
func (m *SQLManager) ResolveSession(token string) (Account, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Account{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var account Account
	err := m.inTx(ctx, func(tx *sql.Tx, nowMs int64) error {
		res, err := m.exec(ctx, tx, `
UPDATE auth_sessions
SET last_seen_at_ms = ?, expires_at_ms = ?
WHERE token = ?
  AND revoked_at_ms IS NULL
  AND expires_at_ms > ?
`, nowMs, nowMs+m.sessionTTL.Milliseconds(), token, nowMs)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return ErrInvalidSession
		}
		var isGuest int
		if err := tx.QueryRowContext(ctx, m.d.rebind(`
SELECT a.id, CASE WHEN a.display_name <> '' THEN a.display_name ELSE a.username END, a.is_guest
FROM auth_sessions AS s
JOIN accounts AS a ON a.id = s.account_id
WHERE s.token = ?
`), token).Scan(&account.ID, &account.Username, &isGuest); err != nil {
			return err
		}
		account.Guest = isGuest != 0
		return nil
	})
	return account, err == nil
}

func (m *SQLManager) Logout(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_ = m.inTx(ctx, func(tx *sql.Tx, nowMs int64) error {
		_, err := m.exec(ctx, tx, `
UPDATE auth_sessions SET revoked_at_ms = ? WHERE token = ? AND revoked_at_ms IS NULL
`, nowMs, token)
		return err
	})
}

func (m *SQLManager) addPasswordTx(ctx context.Context, tx *sql.Tx, accountID, username string, hash []byte, nowMs int64) error {
	_, err := m.exec(ctx, tx, `
INSERT INTO auth_identities (account_id, provider, provider_subject, password_hash, created_at_ms, updated_at_ms)
VALUES (?, 'local', ?, ?, ?, ?)
`, accountID, username, string(hash), nowMs, nowMs)
	return err
}

func (m *SQLManager) issueSessionTx(ctx context.Context, tx *sql.Tx, accountID string, nowMs int64) (string, error) {
	token := mustToken()
	if _, err := m.exec(ctx, tx, `
INSERT INTO auth_sessions (token, account_id, issued_at_ms, expires_at_ms, last_seen_at_ms)
VALUES (?, ?, ?, ?, ?)
`, token, accountID, nowMs, nowMs+m.sessionTTL.Milliseconds(), nowMs); err != nil {
		return "", err
	}
	return token, nil
}
