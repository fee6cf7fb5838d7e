package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"logbook.app/backend/internal/core"
	"logbook.app/backend/internal/store"
)

type APIHandler struct {
	dbStore      *store.SQLiteStore
	logService   *core.LogService
	chatService  *core.ChatService
	agentService *core.AgentService
	jwtSecret    []byte
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewAPIHandler(db *store.SQLiteStore, logs *core.LogService, chats *core.ChatService, agent *core.AgentService, jwtSecret []byte, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		dbStore:      db,
		logService:   logs,
		chatService:  chats,
		agentService: agent,
		jwtSecret:    jwtSecret,
		validate:     validator.New(),
		logger:       logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the core error taxonomy onto HTTP statuses. Nothing
// beyond the generic message leaks for analysis failures.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, core.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInvalidDateExtraction):
		writeError(w, http.StatusBadRequest, "Could not extract a valid date")
	case errors.Is(err, core.ErrAnalysisFailed):
		writeError(w, http.StatusInternalServerError, "Analysis failed")
	default:
		h.logger.Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// User handlers

func (h *APIHandler) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	// The middleware already synced the row for this request.
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Log handlers

type createThoughtRequest struct {
	Text string `json:"text" validate:"required"`
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (h *APIHandler) CreateThoughtHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req createThoughtRequest
	if !h.decode(w, r, &req) {
		return
	}

	logDoc, err := h.logService.AddThought(userID, req.Text, req.Date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, logDoc)
}

func (h *APIHandler) ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	q := r.URL.Query()

	logs, err := h.logService.GetLogs(userID, q.Get("date"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []store.Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// Chat handlers

type createChatRequest struct {
	Title string `json:"title" validate:"required"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req createChatRequest
	if !h.decode(w, r, &req) {
		return
	}

	chat, err := h.chatService.CreateChat(userID, req.Title)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	chats, err := h.chatService.ListChats(userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	if err := h.chatService.DeleteChat(userID, chatID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) TogglePinHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	chat, err := h.chatService.TogglePin(userID, chatID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Message handlers

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	messages, err := h.chatService.ListMessages(userID, chatID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type appendMessageRequest struct {
	Sender      string  `json:"sender" validate:"required,oneof=user ai"`
	Content     string  `json:"content" validate:"required"`
	DateContext *string `json:"date_context,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (h *APIHandler) AppendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	chatID := chi.URLParam(r, "chatID")

	var req appendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.chatService.AppendMessage(userID, chatID, req.Sender, req.Content, req.DateContext)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Agent handlers

type analyzeRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	ChatID string `json:"chat_id,omitempty" validate:"omitempty,uuid4"`
}

func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	analysis, err := h.agentService.Analyze(r.Context(), userID, req.Prompt, req.ChatID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
