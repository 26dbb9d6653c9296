package model

import (
	"time"

	"telegram-mood-diary/internal/domain"
)

// Entry is one day's diary record: nine 1-10 scores plus an optional
// free-text comment. Entries are keyed by (chat id, date); saving a second
// entry for the same date replaces the first.
type Entry struct {
	ChatID        int64     `json:"-"`
	Date          string    `json:"date"` // YYYY-MM-DD
	Mood          int       `json:"mood"`
	Sleep         int       `json:"sleep"`
	Comment       string    `json:"comment,omitempty"`
	Balance       int       `json:"balance"`
	Mania         int       `json:"mania"`
	Depression    int       `json:"depression"`
	Anxiety       int       `json:"anxiety"`
	Irritability  int       `json:"irritability"`
	Productivity  int       `json:"productivity"`
	Sociability   int       `json:"sociability"`
	CreatedAt     time.Time `json:"-"`
}

// EntryMetrics lists the scored fields in prompt order.
var EntryMetrics = []string{
	"mood", "sleep", "balance", "mania", "depression",
	"anxiety", "irritability", "productivity", "sociability",
}

const (
	ScoreMin = 1
	ScoreMax = 10

	CommentMaxLen = 500
)

// ValidScore reports whether v is inside the 1-10 scoring range.
func ValidScore(v int) bool { return v >= ScoreMin && v <= ScoreMax }

// Score returns the named metric's value.
func (e *Entry) Score(metric string) int {
	switch metric {
	case "mood":
		return e.Mood
	case "sleep":
		return e.Sleep
	case "balance":
		return e.Balance
	case "mania":
		return e.Mania
	case "depression":
		return e.Depression
	case "anxiety":
		return e.Anxiety
	case "irritability":
		return e.Irritability
	case "productivity":
		return e.Productivity
	case "sociability":
		return e.Sociability
	}
	return 0
}

// SetScore assigns the named metric. Unknown names are ignored.
func (e *Entry) SetScore(metric string, v int) {
	switch metric {
	case "mood":
		e.Mood = v
	case "sleep":
		e.Sleep = v
	case "balance":
		e.Balance = v
	case "mania":
		e.Mania = v
	case "depression":
		e.Depression = v
	case "anxiety":
		e.Anxiety = v
	case "irritability":
		e.Irritability = v
	case "productivity":
		e.Productivity = v
	case "sociability":
		e.Sociability = v
	}
}

// Validate checks all scores and the date format.
func (e *Entry) Validate() error {
	if e.ChatID <= 0 {
		return domain.ErrInvalidArgument
	}
	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return domain.ErrInvalidArgument
	}
	for _, m := range EntryMetrics {
		if !ValidScore(e.Score(m)) {
			return domain.ErrInvalidArgument
		}
	}
	if len(e.Comment) > CommentMaxLen {
		e.Comment = e.Comment[:CommentMaxLen]
	}
	return nil
}
