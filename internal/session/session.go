package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"
)

const tokenKey = "access_token"

// Identity is the locally decoded view of the signed-in user. It is derived
// from the access token's claims without signature verification and is used
// for display and optimistic sender attribution only; the server attributes
// senders from its own session credential.
type Identity struct {
	UserID   int64
	FullName string
	Role     string
}

// Store persists session state in a small sqlite database under the
// campuschat home directory. Reads always go to the database so that a
// credential written by another process (or a login in another terminal)
// is observed by the very next call.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the session database at dir/state.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	path := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveToken stores the access token, replacing any previous one.
func (s *Store) SaveToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token cannot be empty")
	}
	_, err := s.db.Exec(
		`INSERT INTO session (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		tokenKey, token,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// ClearToken removes the stored credential.
func (s *Store) ClearToken() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Token reads the current credential directly from storage. It is never
// cached between calls. The second return reports whether a non-empty
// credential is present.
func (s *Store) Token() (string, bool) {
	var value string
	if err := s.db.QueryRow(`SELECT value FROM session WHERE key = ?`, tokenKey).Scan(&value); err != nil {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// Identity decodes the stored token's claims. Returns ok=false when no
// token is present or the claims cannot be read.
func (s *Store) Identity() (Identity, bool) {
	raw, ok := s.Token()
	if !ok {
		return Identity{}, false
	}
	return identityFromToken(raw)
}

func identityFromToken(raw string) (Identity, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	// Display-only decode; the token is validated by the server per request.
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Identity{}, false
	}

	id := Identity{}
	if v, ok := claimInt64(claims, "user_id"); ok {
		id.UserID = v
	} else if v, ok := claimInt64(claims, "sub"); ok {
		id.UserID = v
	}
	if v, ok := claims["full_name"].(string); ok {
		id.FullName = v
	} else if v, ok := claims["name"].(string); ok {
		id.FullName = v
	}
	if v, ok := claims["role"].(string); ok {
		id.Role = v
	}
	return id, id.UserID != 0
}

func claimInt64(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
