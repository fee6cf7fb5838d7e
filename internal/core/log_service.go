package core

import (
	"fmt"
	"time"

	"logbook.app/backend/internal/store"
)

// LogService handles journal writes and reads. Thoughts are immutable; the
// store does the atomic log-per-day upsert.
type LogService struct {
	dbStore *store.SQLiteStore
}

func NewLogService(db *store.SQLiteStore) *LogService {
	return &LogService{dbStore: db}
}

// AddThought appends a thought to the user's log for the given date, creating
// the log on first write. An empty date means today.
func (s *LogService) AddThought(userID int64, text, date string) (*store.Log, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidPayload)
	}

	now := time.Now()
	if date == "" {
		date = now.Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidPayload)
	}

	return s.dbStore.AppendThought(userID, date, text, now)
}

// GetLogs lists logs for an exact date, an inclusive from/to range, or all of
// the user's history when no filter is given.
func (s *LogService) GetLogs(userID int64, date, from, to string) ([]store.Log, error) {
	return s.dbStore.GetLogs(userID, date, from, to)
}
