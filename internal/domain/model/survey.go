package model

import (
	"strconv"
	"strings"
	"time"

	"telegram-mood-diary/internal/domain"
)

// QuestionType selects how an answer is prompted for and validated.
type QuestionType string

const (
	QuestionScale  QuestionType = "scale"  // numeric 1-10
	QuestionText   QuestionType = "text"   // free text
	QuestionYesNo  QuestionType = "yesno"  // yes / no
	QuestionChoice QuestionType = "choice" // one of Config options
)

func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionScale, QuestionText, QuestionYesNo, QuestionChoice:
		return true
	}
	return false
}

// SurveyTemplate is a named, ordered questionnaire. System templates are
// seeded at startup and shared by all users; user templates belong to their
// creator. Deactivated templates are hidden from listings but their past
// responses stay queryable.
type SurveyTemplate struct {
	ID            int64
	Name          string
	Description   string
	IsSystem      bool
	CreatorChatID int64
	Icon          string
	IsActive      bool
	CreatedAt     time.Time
	Questions     []SurveyQuestion
}

// OwnedBy reports whether chatID may modify the template.
func (t *SurveyTemplate) OwnedBy(chatID int64) bool {
	return !t.IsSystem && t.CreatorChatID == chatID
}

func (t *SurveyTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return domain.ErrInvalidArgument
	}
	if len(t.Questions) == 0 {
		return domain.ErrInvalidArgument
	}
	for i := range t.Questions {
		if err := t.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SurveyQuestion is one prompt inside a template. Config holds
// comma-separated options for choice questions.
type SurveyQuestion struct {
	ID         int64
	TemplateID int64
	Text       string
	Type       QuestionType
	OrderIndex int
	IsRequired bool
	Config     string
}

func (q *SurveyQuestion) Validate() error {
	if strings.TrimSpace(q.Text) == "" || !ValidQuestionType(q.Type) {
		return domain.ErrInvalidArgument
	}
	if q.Type == QuestionChoice && len(q.Options()) < 2 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Options splits the choice config into its option list.
func (q *SurveyQuestion) Options() []string {
	if q.Config == "" {
		return nil
	}
	parts := strings.Split(q.Config, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CheckAnswer validates a raw answer string against the question type and
// returns the canonical form to store.
func (q *SurveyQuestion) CheckAnswer(raw string) (string, error) {
	ans := strings.TrimSpace(raw)
	if ans == "" {
		if q.IsRequired {
			return "", domain.ErrInvalidArgument
		}
		return "", nil
	}
	switch q.Type {
	case QuestionScale:
		v, err := strconv.Atoi(ans)
		if err != nil || !ValidScore(v) {
			return "", domain.ErrInvalidArgument
		}
		return strconv.Itoa(v), nil
	case QuestionYesNo:
		switch strings.ToLower(ans) {
		case "yes", "y", "да":
			return "yes", nil
		case "no", "n", "нет":
			return "no", nil
		}
		return "", domain.ErrInvalidArgument
	case QuestionChoice:
		for _, opt := range q.Options() {
			if strings.EqualFold(opt, ans) {
				return opt, nil
			}
		}
		return "", domain.ErrInvalidArgument
	default: // QuestionText
		return ans, nil
	}
}

// SurveyResponse is one completed fill of a template. Answers are keyed by
// question ID (as a string, for stable JSON encoding).
type SurveyResponse struct {
	ID         int64             `json:"-"`
	ChatID     int64             `json:"-"`
	TemplateID int64             `json:"template_id"`
	Date       string            `json:"date"` // YYYY-MM-DD
	Time       string            `json:"time"` // HH:MM:SS
	Answers    map[string]string `json:"answers"`
	CreatedAt  time.Time         `json:"-"`
}

// SurveyPreference carries a user's per-template settings.
type SurveyPreference struct {
	ChatID              int64
	TemplateID          int64
	IsFavorite          bool
	NotificationEnabled bool
	NotificationTime    string // local HH:MM, empty when disabled
}
