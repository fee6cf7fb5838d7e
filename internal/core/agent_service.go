package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"logbook.app/backend/internal/store"
)

const summarySystemInstruction = "You are a friendly assistant summarizing user journal logs. " +
	"Analyze mood, key activities, and give insights in a natural, helpful way."

// Analysis is the agent's answer: the summary text and the date it covers.
type Analysis struct {
	Text string `json:"analysis"`
	Date string `json:"date"`
}

// AgentService runs the analyze pipeline: resolve a date from the prompt,
// fetch that day's log, summarize it with the model, and optionally record
// the exchange in a chat.
type AgentService struct {
	dbStore  *store.SQLiteStore
	resolver *DateResolver
	chats    *ChatService
	llm      Completer
	logger   *zap.Logger
}

func NewAgentService(db *store.SQLiteStore, resolver *DateResolver, chats *ChatService, llm Completer, logger *zap.Logger) *AgentService {
	return &AgentService{
		dbStore:  db,
		resolver: resolver,
		chats:    chats,
		llm:      llm,
		logger:   logger,
	}
}

// Analyze resolves a date from the prompt and summarizes the user's log for
// it. When chatID is non-empty the prompt and the reply (tagged with the
// resolved date) are appended to that chat. Store and model failures collapse
// into ErrAnalysisFailed; the cause only goes to the server log.
func (s *AgentService) Analyze(ctx context.Context, userID int64, prompt, chatID string) (*Analysis, error) {
	date, err := s.resolver.Resolve(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrInvalidDateExtraction) {
			return nil, err
		}
		s.logger.Error("date resolution failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, ErrAnalysisFailed
	}

	text, err := s.summarize(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	if chatID != "" {
		if err := s.recordExchange(userID, chatID, prompt, text, date); err != nil {
			return nil, err
		}
	}

	return &Analysis{Text: text, Date: date}, nil
}

func (s *AgentService) summarize(ctx context.Context, userID int64, date string) (string, error) {
	logDoc, err := s.dbStore.GetLogByDate(userID, date)
	if err != nil {
		s.logger.Error("log lookup failed", zap.Int64("user_id", userID), zap.String("date", date), zap.Error(err))
		return "", ErrAnalysisFailed
	}

	// Deterministic answer for an empty day; no model call.
	if logDoc == nil || len(logDoc.Thoughts) == 0 {
		return fmt.Sprintf("No logs found for %s. Try writing some thoughts first.", date), nil
	}

	userContent := fmt.Sprintf("Logs for %s:\n%s\nSummarize and provide insights.", date, renderThoughts(logDoc.Thoughts))

	summary, err := s.llm.Complete(ctx, summarySystemInstruction, userContent)
	if err != nil {
		s.logger.Error("summarization failed", zap.Int64("user_id", userID), zap.String("date", date), zap.Error(err))
		return "", ErrAnalysisFailed
	}
	// The model's text is the summary, verbatim.
	return summary, nil
}

func (s *AgentService) recordExchange(userID int64, chatID, prompt, analysis, date string) error {
	if _, err := s.chats.AppendMessage(userID, chatID, store.SenderUser, prompt, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		s.logger.Error("failed to record user message", zap.String("chat_id", chatID), zap.Error(err))
		return ErrAnalysisFailed
	}
	if _, err := s.chats.AppendMessage(userID, chatID, store.SenderAI, analysis, &date); err != nil {
		s.logger.Error("failed to record ai message", zap.String("chat_id", chatID), zap.Error(err))
		return ErrAnalysisFailed
	}
	return nil
}

// renderThoughts numbers each thought from 1 in insertion order, with its
// local wall-clock time.
func renderThoughts(thoughts []store.Thought) string {
	lines := make([]string, 0, len(thoughts))
	for i, t := range thoughts {
		lines = append(lines, fmt.Sprintf("Thought %d (%s): %s", i+1, t.CreatedAt.Local().Format("3:04:05 PM"), t.Text))
	}
	return strings.Join(lines, "\n")
}
