package core

import (
	"fmt"
	"sort"

	"logbook.app/backend/internal/store"
)

// ChatService owns chat and message operations. Every operation that names a
// chat verifies ownership against the requesting user via the parent chat
// lookup; chat ids from the caller are never trusted on their own.
type ChatService struct {
	dbStore *store.SQLiteStore
}

func NewChatService(db *store.SQLiteStore) *ChatService {
	return &ChatService{dbStore: db}
}

// ListChats returns the user's chats with pinned ones first, then by last
// activity. The store only guarantees retrieval order by recency; the pinned
// resort happens here.
func (s *ChatService) ListChats(userID int64) ([]store.Chat, error) {
	chats, err := s.dbStore.GetChatsByUserID(userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].Pinned && !chats[j].Pinned
	})
	return chats, nil
}

func (s *ChatService) CreateChat(userID int64, title string) (*store.Chat, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidPayload)
	}
	return s.dbStore.CreateChat(userID, title)
}

func (s *ChatService) DeleteChat(userID int64, chatID string) error {
	deleted, err := s.dbStore.DeleteChat(chatID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *ChatService) TogglePin(userID int64, chatID string) (*store.Chat, error) {
	chat, err := s.dbStore.TogglePin(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrNotFound
	}
	return chat, nil
}

// ListMessages returns the chat's messages in ascending creation order.
func (s *ChatService) ListMessages(userID int64, chatID string) ([]store.Message, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrNotFound
	}
	return s.dbStore.GetMessagesByChatID(chatID)
}

// AppendMessage records one turn in the chat and touches the chat's last
// activity. Sender must be "user" or "ai"; dateContext may be nil.
func (s *ChatService) AppendMessage(userID int64, chatID, sender, content string, dateContext *string) (*store.Message, error) {
	if sender != store.SenderUser && sender != store.SenderAI {
		return nil, fmt.Errorf("%w: sender must be %q or %q", ErrInvalidPayload, store.SenderUser, store.SenderAI)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidPayload)
	}

	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrNotFound
	}

	msg := store.Message{
		ChatID:      chat.ID,
		Sender:      sender,
		Content:     content,
		DateContext: dateContext,
	}
	if err := s.dbStore.CreateMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
