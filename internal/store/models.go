package store

import "time"

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	AvatarURL      string    `json:"avatar_url"`
	CreatedAt      time.Time `json:"created_at"`
	LastLogin      time.Time `json:"last_login"`
	Device         string    `json:"device"`
	IP             string    `json:"ip"`
}

// Log groups the thoughts one user wrote on one calendar day. Date is the
// canonical YYYY-MM-DD string; (UserID, Date) is unique.
type Log struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      string    `json:"date"`
	Thoughts  []Thought `json:"thoughts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Thought is a single immutable journal entry. Insertion order is
// chronological order.
type Thought struct {
	ID        int64     `json:"-"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
}

type Chat struct {
	ID        string    `json:"id"` // UUID
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID          string    `json:"id"` // UUID
	ChatID      string    `json:"chat_id"`
	Sender      string    `json:"sender"` // "user" or "ai"
	Content     string    `json:"content"`
	DateContext *string   `json:"date_context,omitempty"` // YYYY-MM-DD, AI replies only
	CreatedAt   time.Time `json:"created_at"`
}

// UserProfile is the identity-provider view of a user, refreshed on every
// authenticated request.
type UserProfile struct {
	Username  string
	Email     string
	AvatarURL string
}
