package model

import (
	"strings"
	"time"

	"telegram-mood-diary/internal/domain"
)

// ImpressionCategory buckets an impression by what kind of state it records.
type ImpressionCategory string

const (
	CategoryCraving  ImpressionCategory = "craving"
	CategoryEmotion  ImpressionCategory = "emotion"
	CategoryPhysical ImpressionCategory = "physical"
	CategoryThoughts ImpressionCategory = "thoughts"
	CategoryOther    ImpressionCategory = "other"
)

// ImpressionCategories lists the selectable categories in keyboard order.
var ImpressionCategories = []ImpressionCategory{
	CategoryCraving, CategoryEmotion, CategoryPhysical, CategoryThoughts, CategoryOther,
}

func ValidCategory(c ImpressionCategory) bool {
	for _, v := range ImpressionCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Impression is a timestamped free-form observation. Intensity and Category
// are optional (zero / empty when skipped). EntryDate, when set, links the
// impression to the diary entry of that date.
type Impression struct {
	ID        int64
	ChatID    int64
	Text      string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM:SS
	Category  ImpressionCategory
	Intensity int // 0 = not set
	EntryDate string
	CreatedAt time.Time
	Tags      []Tag
}

func (i *Impression) Validate() error {
	if i.ChatID <= 0 || strings.TrimSpace(i.Text) == "" {
		return domain.ErrInvalidArgument
	}
	if i.Intensity != 0 && !ValidScore(i.Intensity) {
		return domain.ErrInvalidArgument
	}
	if i.Category != "" && !ValidCategory(i.Category) {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Tag labels impressions. Names are unique per chat and normalized to
// lowercase on creation.
type Tag struct {
	ID     int64
	ChatID int64
	Name   string
	Color  string
}

// NormalizeTagName lowercases and trims a user-supplied tag name.
func NormalizeTagName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
