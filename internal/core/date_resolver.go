package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateLayout is the canonical calendar-day format used as the log key.
const DateLayout = "2006-01-02"

const dateExtractionInstruction = "You are a helpful assistant. " +
	"Extract a valid date (YYYY-MM-DD) from the user's text. " +
	"If no date, return today's date."

var dateFormatRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DateResolver turns free text into a canonical calendar date. A
// deterministic natural-language parser runs first; the generative model is
// only consulted when the parser finds nothing.
type DateResolver struct {
	parser *when.Parser
	llm    Completer
	now    func() time.Time // injectable for tests
}

func NewDateResolver(llm Completer) *DateResolver {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return &DateResolver{
		parser: w,
		llm:    llm,
		now:    time.Now,
	}
}

// Resolve returns the date as a YYYY-MM-DD string. Time-of-day from the
// deterministic parser is discarded. A model answer that is not strictly
// YYYY-MM-DD fails with ErrInvalidDateExtraction; the resolver never guesses.
func (r *DateResolver) Resolve(ctx context.Context, text string) (string, error) {
	base := r.now()

	// Parser errors and misses both degrade to the model path. Ambiguous
	// references ("the 5th") resolve by the parser's en/common rules.
	if result, err := r.parser.Parse(text, base); err == nil && result != nil {
		return result.Time.Format(DateLayout), nil
	}

	raw, err := r.llm.Complete(ctx, dateExtractionInstruction, text)
	if err != nil {
		return "", fmt.Errorf("date fallback completion: %w", err)
	}

	candidate := strings.TrimSpace(raw)
	if !dateFormatRe.MatchString(candidate) {
		return "", ErrInvalidDateExtraction
	}
	if _, err := time.Parse(DateLayout, candidate); err != nil {
		return "", ErrInvalidDateExtraction
	}
	return candidate, nil
}
