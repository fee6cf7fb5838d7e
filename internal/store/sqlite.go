package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	// Queue concurrent writers instead of failing with SQLITE_BUSY. The
	// busy timeout is per-connection, so it has to go in the DSN rather
	// than a one-off PRAGMA.
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		sep := "?"
		if strings.Contains(dataSourceName, "?") {
			sep = "&"
		}
		dataSourceName += sep + "_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        username TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        avatar_url TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        last_login DATETIME DEFAULT CURRENT_TIMESTAMP,
        device TEXT NOT NULL DEFAULT '',
        ip TEXT NOT NULL DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER NOT NULL,
        date TEXT NOT NULL, -- canonical YYYY-MM-DD
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_id, date),
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS thoughts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        log_id INTEGER NOT NULL,
        text TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (log_id) REFERENCES logs (id)
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT NOT NULL,
        pinned BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'ai')),
        content TEXT NOT NULL,
        date_context TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

// SyncUser creates the user on first sight and refreshes profile, last-login
// and device metadata on every subsequent call. The upsert is atomic on the
// external id.
func (s *SQLiteStore) SyncUser(externalUserID string, profile UserProfile, device, ip string) (*User, error) {
	now := time.Now()
	var user User
	err := s.db.QueryRow(`
        INSERT INTO users (external_user_id, username, email, avatar_url, created_at, last_login, device, ip)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(external_user_id) DO UPDATE SET
            username = excluded.username,
            email = excluded.email,
            avatar_url = excluded.avatar_url,
            last_login = excluded.last_login,
            device = excluded.device,
            ip = excluded.ip
        RETURNING id, external_user_id, username, email, avatar_url, created_at, last_login, device, ip`,
		externalUserID, profile.Username, profile.Email, profile.AvatarURL, now, now, device, ip,
	).Scan(&user.ID, &user.ExternalUserID, &user.Username, &user.Email, &user.AvatarURL,
		&user.CreatedAt, &user.LastLogin, &user.Device, &user.IP)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow(`
        SELECT id, external_user_id, username, email, avatar_url, created_at, last_login, device, ip
        FROM users WHERE external_user_id = ?`, externalUserID,
	).Scan(&user.ID, &user.ExternalUserID, &user.Username, &user.Email, &user.AvatarURL,
		&user.CreatedAt, &user.LastLogin, &user.Device, &user.IP)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Log methods

// AppendThought writes one thought under (userID, date). The log row upsert
// and the thought insert run in one transaction; the ON CONFLICT clause keeps
// two concurrent writers from ever producing two logs for the same day.
func (s *SQLiteStore) AppendThought(userID int64, date, text string, ts time.Time) (*Log, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var logID int64
	err = tx.QueryRow(`
        INSERT INTO logs (user_id, date, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id, date) DO UPDATE SET updated_at = excluded.updated_at
        RETURNING id`,
		userID, date, ts, ts,
	).Scan(&logID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert log: %w", err)
	}

	_, err = tx.Exec("INSERT INTO thoughts (log_id, text, created_at) VALUES (?, ?, ?)", logID, text, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert thought: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit thought append: %w", err)
	}
	return s.GetLogByDate(userID, date)
}

// GetLogByDate returns the log with its thoughts in insertion order, or nil
// when the user wrote nothing that day.
func (s *SQLiteStore) GetLogByDate(userID int64, date string) (*Log, error) {
	var l Log
	err := s.db.QueryRow(
		"SELECT id, user_id, date, created_at, updated_at FROM logs WHERE user_id = ? AND date = ?",
		userID, date,
	).Scan(&l.ID, &l.UserID, &l.Date, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get log: %w", err)
	}

	thoughts, err := s.getThoughtsByLogID(l.ID)
	if err != nil {
		return nil, err
	}
	l.Thoughts = thoughts
	return &l, nil
}

// GetLogs lists a user's logs newest-date first. Pass date for an exact day,
// or from/to for an inclusive range; all empty means everything.
func (s *SQLiteStore) GetLogs(userID int64, date, from, to string) ([]Log, error) {
	query := "SELECT id, user_id, date, created_at, updated_at FROM logs WHERE user_id = ?"
	args := []any{userID}
	if date != "" {
		query += " AND date = ?"
		args = append(args, date)
	} else if from != "" && to != "" {
		query += " AND date >= ? AND date <= ?"
		args = append(args, from, to)
	}
	query += " ORDER BY date DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.UserID, &l.Date, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log rows: %w", err)
	}

	for i := range logs {
		thoughts, err := s.getThoughtsByLogID(logs[i].ID)
		if err != nil {
			return nil, err
		}
		logs[i].Thoughts = thoughts
	}
	return logs, nil
}

func (s *SQLiteStore) getThoughtsByLogID(logID int64) ([]Thought, error) {
	rows, err := s.db.Query("SELECT id, text, created_at FROM thoughts WHERE log_id = ? ORDER BY id ASC", logID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thoughts: %w", err)
	}
	defer rows.Close()

	var thoughts []Thought
	for rows.Next() {
		var t Thought
		if err := rows.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thought row: %w", err)
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, rows.Err()
}

// Chat methods

func (s *SQLiteStore) CreateChat(userID int64, title string) (*Chat, error) {
	chatID := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec(
		"INSERT INTO chats (id, user_id, title, pinned, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		chatID, userID, title, false, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}
	return &Chat{ID: chatID, UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) GetChatByID(chatID string, userID int64) (*Chat, error) {
	var chat Chat
	err := s.db.QueryRow(
		"SELECT id, user_id, title, pinned, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?",
		chatID, userID,
	).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Pinned, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found or not owned
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

func (s *SQLiteStore) GetChatsByUserID(userID int64) ([]Chat, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, title, pinned, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Pinned, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// DeleteChat removes the chat and its messages. Returns false when the chat
// does not exist or belongs to someone else.
func (s *SQLiteStore) DeleteChat(chatID string, userID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete chat: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}

	if _, err = tx.Exec("DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return false, fmt.Errorf("failed to delete chat messages: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit chat delete: %w", err)
	}
	return true, nil
}

// TogglePin flips the pinned flag and returns the updated chat, or nil when
// the chat is absent or foreign.
func (s *SQLiteStore) TogglePin(chatID string, userID int64) (*Chat, error) {
	var chat Chat
	err := s.db.QueryRow(`
        UPDATE chats SET pinned = NOT pinned
        WHERE id = ? AND user_id = ?
        RETURNING id, user_id, title, pinned, created_at, updated_at`,
		chatID, userID,
	).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Pinned, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found or not owned
		}
		return nil, fmt.Errorf("failed to toggle pin: %w", err)
	}
	return &chat, nil
}

// Message methods

// CreateMessage inserts the message and bumps the parent chat's updated_at
// in the same transaction. Ownership of the chat must be verified by the
// caller before this point.
func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO messages (id, chat_id, sender, content, date_context, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChatID, msg.Sender, msg.Content, msg.DateContext, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.Exec("UPDATE chats SET updated_at = ? WHERE id = ?", msg.CreatedAt, msg.ChatID)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessagesByChatID(chatID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, chat_id, sender, content, date_context, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC, id ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Sender, &msg.Content, &msg.DateContext, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
