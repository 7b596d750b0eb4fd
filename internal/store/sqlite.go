package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pepper/internal/domain"
	"pepper/internal/shared"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('child', 'staff')),
		age INTEGER,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

	CREATE TABLE IF NOT EXISTS messages (
		message_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		timestamp_ns INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp_ns);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	query := `
	INSERT INTO users (user_id, name, email, password_hash, role, age, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	var age interface{}
	if user.Age != nil {
		age = *user.Age
	}

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Name, user.Email, user.PasswordHash,
		string(user.Role), age, user.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteConstraintError(err) && strings.Contains(err.Error(), "users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	var role string
	var age sql.NullInt64
	var createdAt int64

	err := row.Scan(&user.UserID, &user.Name, &user.Email, &user.PasswordHash, &role, &age, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Role = domain.Role(role)
	if age.Valid {
		a := int(age.Int64)
		user.Age = &a
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, name, email, password_hash, role, age, created_at
		FROM users WHERE user_id = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT user_id, name, email, password_hash, role, age, created_at
		FROM users WHERE email = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// ListChildren returns all child users sorted by name.
func (s *SQLiteStore) ListChildren(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT user_id, name, email, password_hash, role, age, created_at
		FROM users WHERE role = ? ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, string(domain.RoleChild))
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer closeRows(rows, "children")

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return users, nil
}

// CreateSession inserts a session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	query := `
	INSERT INTO sessions (session_id, user_id, title, created_at)
	VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		session.SessionID, session.UserID, session.Title, session.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT session_id, user_id, title, created_at FROM sessions WHERE session_id = ?`
	row := s.db.QueryRowContext(ctx, query, sessionID)

	var session domain.Session
	var createdAt int64
	err := row.Scan(&session.SessionID, &session.UserID, &session.Title, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	return &session, nil
}

// ListUserSessions returns a user's sessions, most recent first.
func (s *SQLiteStore) ListUserSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error) {
	query := `
		SELECT session_id, user_id, title, created_at
		FROM sessions WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer closeRows(rows, "sessions")

	var sessions []*domain.Session
	for rows.Next() {
		var session domain.Session
		var createdAt int64
		if err := rows.Scan(&session.SessionID, &session.UserID, &session.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		session.CreatedAt = time.Unix(createdAt, 0)
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session row.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// InsertMessage writes a single message row.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	query := `
	INSERT INTO messages (message_id, session_id, role, content, timestamp_ns)
	VALUES (?, ?, ?, ?, ?)`

	err := s.execWithRetry(ctx, query,
		msg.MessageID, msg.SessionID, string(msg.Role), msg.Content, msg.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// execWithRetry runs a write statement, retrying on SQLite concurrency
// errors with exponential backoff.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...interface{}) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("database locked, retrying write", "attempt", i+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// InsertMessages writes a batch of message rows in one statement.
func (s *SQLiteStore) InsertMessages(ctx context.Context, msgs []*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return err
		}
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO messages (message_id, session_id, role, content, timestamp_ns) VALUES `)
	args := make([]interface{}, 0, len(msgs)*5)
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, msg.MessageID, msg.SessionID, string(msg.Role), msg.Content, msg.Timestamp.UnixNano())
	}

	if err := s.execWithRetry(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert message batch: %w", err)
	}
	return nil
}

// ListSessionMessages returns the role/content projection ordered by timestamp.
func (s *SQLiteStore) ListSessionMessages(ctx context.Context, sessionID string) ([]*domain.StoredMessage, error) {
	query := `
		SELECT role, content FROM messages
		WHERE session_id = ? ORDER BY timestamp_ns`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer closeRows(rows, "messages")

	var msgs []*domain.StoredMessage
	for rows.Next() {
		var msg domain.StoredMessage
		var role string
		if err := rows.Scan(&role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Role = domain.MessageRole(role)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// DeleteSessionMessages removes all messages for a session.
func (s *SQLiteStore) DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session messages: %w", err)
	}
	return result.RowsAffected()
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "rows", what, "error", err)
	}
}
