package auth

import (
	"fmt"
	"time"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

// NewService opens the auth backend named by mode.
func NewService(mode, sqlitePath, dsn string, sessionTTL time.Duration) (Service, error) {
	var (
		m   *SQLManager
		err error
	)
	switch mode {
	case "", ModeMemory:
		return NewManager(sessionTTL), nil
	case ModeSQLite:
		m, err = NewSQLiteManager(sqlitePath, sessionTTL)
	case ModePostgres:
		m, err = NewPostgresManager(dsn, sessionTTL)
	default:
		return nil, fmt.Errorf("invalid auth mode %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s auth store: %w", mode, err)
	}
	return m, nil
}
