package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"logbook.app/backend/internal/config"
)

// Completer is the narrow seam to the generative model. Both call sites in
// the pipeline (date fallback extraction and summarization) go through it,
// so tests can swap in a fake and count calls.
type Completer interface {
	Complete(ctx context.Context, systemInstruction, userContent string) (string, error)
}

type LLMService struct {
	client     *genai.Client
	modelName  string
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
}

func NewLLMService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:     client,
		modelName:  cfg.ModelName,
		timeout:    cfg.ModelTimeout,
		maxRetries: cfg.ModelMaxRetries,
		logger:     logger,
	}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("error closing GenAI client", zap.Error(err))
		}
	}
}

// Complete sends one system-instructed generation request. Each attempt is
// bounded by the configured timeout, and a failed attempt is retried once
// with exponential backoff before the error is surfaced. The original design
// blocked indefinitely with no retry; this is the documented change.
func (s *LLMService) Complete(ctx context.Context, systemInstruction, userContent string) (string, error) {
	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	backoff := retry.WithMaxRetries(uint64(s.maxRetries), retry.NewExponential(500*time.Millisecond))

	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		resp, err := model.GenerateContent(attemptCtx, genai.Text(userContent))
		if err != nil {
			s.logger.Warn("gemini request failed, may retry", zap.Error(err))
			return retry.RetryableError(err)
		}

		text, err = extractText(resp)
		if err != nil {
			// An empty candidate list is not a transport hiccup; retrying
			// with the same prompt is still the cheapest recovery.
			s.logger.Warn("gemini response unusable, may retry", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("model response contained no text parts")
	}
	return sb.String(), nil
}
