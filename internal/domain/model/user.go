package model

import (
	"time"

	"telegram-mood-diary/internal/domain"

	"github.com/google/uuid"
)

// User is a domain entity representing one Telegram chat in our system.
// NotificationTime is the local HH:MM at which the daily diary reminder
// fires; nil means reminders are off. TzOffsetMinutes shifts the user's
// local clock relative to UTC (e.g. +180 for UTC+3).
type User struct {
	ID               string
	ChatID           int64
	Username         string
	FirstName        string
	NotificationTime *string
	TzOffsetMinutes  int
	RegisteredAt     time.Time
	LastActiveAt     time.Time
}

func NewUser(id string, chatID int64, username, firstName string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if chatID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		ChatID:       chatID,
		Username:     username,
		FirstName:    firstName,
		RegisteredAt: time.Now(),
		LastActiveAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }

// LocalClock returns the user's wall clock for the given instant as "HH:MM".
func (u *User) LocalClock(now time.Time) string {
	local := now.UTC().Add(time.Duration(u.TzOffsetMinutes) * time.Minute)
	return local.Format("15:04")
}

// ValidateClock checks an "HH:MM" reminder time string.
func ValidateClock(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}
