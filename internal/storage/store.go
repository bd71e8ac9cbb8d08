package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/raine/storefront/internal/auth"
)

// SQLiteStore implements Store using SQLite. Tokens are encrypted at rest.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// The encryptionKey is used to encrypt/decrypt token entries.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout so a shell and a one-shot command can share the file
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict database permissions")
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}
	return nil
}

// LoadTokens reads and decrypts the token entries.
func (s *SQLiteStore) LoadTokens(ctx context.Context) (auth.TokenPair, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM entries WHERE key IN (?, ?)",
		KeyAccessToken, KeyRefreshToken,
	)
	if err != nil {
		return auth.TokenPair{}, false, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var pair auth.TokenPair
	found := false
	for rows.Next() {
		var key, encrypted string
		if err := rows.Scan(&key, &encrypted); err != nil {
			return auth.TokenPair{}, false, fmt.Errorf("failed to scan token row: %w", err)
		}
		plain, err := Decrypt(encrypted, s.encryptionKey)
		if err != nil {
			return auth.TokenPair{}, false, fmt.Errorf("failed to decrypt %s: %w", key, err)
		}
		found = true
		switch key {
		case KeyAccessToken:
			pair.Access = string(plain)
		case KeyRefreshToken:
			pair.Refresh = string(plain)
		}
	}
	if err := rows.Err(); err != nil {
		return auth.TokenPair{}, false, fmt.Errorf("failed to read tokens: %w", err)
	}

	return pair, found, nil
}

// SaveTokens writes both token entries in one transaction.
func (s *SQLiteStore) SaveTokens(ctx context.Context, pair auth.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, err := Encrypt([]byte(pair.Access), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refresh, err := Encrypt([]byte(pair.Refresh), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, e := range []struct{ key, value string }{
		{KeyAccessToken, access},
		{KeyRefreshToken, refresh},
	} {
		if err := upsert(ctx, tx, e.key, e.value, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// DeleteTokens removes both token entries.
func (s *SQLiteStore) DeleteTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE key IN (?, ?)",
		KeyAccessToken, KeyRefreshToken,
	)
	if err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// LoadCart returns the cart JSON, or nil if none is stored.
func (s *SQLiteStore) LoadCart(ctx context.Context) ([]byte, error) {
	value, err := s.get(ctx, KeyCart)
	if err != nil || value == "" {
		return nil, err
	}
	return []byte(value), nil
}

// SaveCart replaces the cart JSON.
func (s *SQLiteStore) SaveCart(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsert(ctx, s.db, KeyCart, string(data), time.Now()); err != nil {
		return err
	}
	return nil
}

// InstallationID returns the persisted client id, generating one on first use.
func (s *SQLiteStore) InstallationID(ctx context.Context) (string, error) {
	id, err := s.get(ctx, KeyInstallationID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id = uuid.New().String()
	// Keep an id written concurrently by another process
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, KeyInstallationID, id, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to save installation id: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx, "SELECT value FROM entries WHERE key = ?", KeyInstallationID).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to query installation id: %w", err)
	}
	return stored, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// get returns the raw value for key, or "" if it does not exist.
func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", key, err)
	}
	return value, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, key, value string, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
