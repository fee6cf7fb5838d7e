package core

import "errors"

var (
	// ErrNotFound covers chats and logs that are absent or owned by another
	// user; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPayload marks a request missing a required field or carrying
	// a value outside its enum.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidDateExtraction means the fallback model returned something
	// that is not a YYYY-MM-DD date. The resolver never guesses past this.
	ErrInvalidDateExtraction = errors.New("could not extract a valid date")

	// ErrAnalysisFailed is the single opaque error for store or model
	// failures inside the analyze pipeline. The cause is logged server-side
	// only.
	ErrAnalysisFailed = errors.New("analysis failed")
)
