package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ SurveyUseCase = (*surveyUC)(nil)

// SurveyUseCase manages questionnaire templates, responses, and per-user
// preferences.
type SurveyUseCase interface {
	// Templates lists active system templates plus the chat's own.
	Templates(ctx context.Context, chatID int64) ([]model.SurveyTemplate, error)
	// Template returns one template if the chat may see it.
	Template(ctx context.Context, chatID, templateID int64) (*model.SurveyTemplate, error)
	// Create stores a user template. Name collisions fail with
	// ErrAlreadyExists.
	Create(ctx context.Context, chatID int64, t *model.SurveyTemplate) (int64, error)
	// Remove deletes a user's own template, or deactivates it instead when
	// responses already reference it.
	Remove(ctx context.Context, chatID, templateID int64) (deleted bool, err error)
	// SubmitResponse validates the answers against the template's questions
	// and stores them, dated by the user's local clock.
	SubmitResponse(ctx context.Context, chatID, templateID int64, answers map[string]string) (int64, error)
	Responses(ctx context.Context, chatID, templateID int64, fromDate, toDate string) ([]model.SurveyResponse, error)

	SetFavorite(ctx context.Context, chatID, templateID int64, favorite bool) error
	Favorites(ctx context.Context, chatID int64) ([]model.SurveyTemplate, error)
	// SetReminder enables a daily reminder for the template at the given
	// local "HH:MM".
	SetReminder(ctx context.Context, chatID, templateID int64, clock string) error
	DisableReminder(ctx context.Context, chatID, templateID int64) error
}

type surveyUC struct {
	surveys repository.SurveyRepository
	users   repository.UserRepository
	tm      repository.TransactionManager
	cache   SummaryCache
	log     *zerolog.Logger
}

func NewSurveyUseCase(
	surveys repository.SurveyRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	cache SummaryCache,
	logger *zerolog.Logger,
) *surveyUC {
	return &surveyUC{surveys: surveys, users: users, tm: tm, cache: cache, log: logger}
}

func (u *surveyUC) Templates(ctx context.Context, chatID int64) ([]model.SurveyTemplate, error) {
	return u.surveys.FindTemplates(ctx, repository.NoTX, chatID)
}

func (u *surveyUC) Template(ctx context.Context, chatID, templateID int64) (*model.SurveyTemplate, error) {
	t, err := u.surveys.FindTemplateByID(ctx, repository.NoTX, templateID)
	if err != nil {
		return nil, err
	}
	// Another user's private template is invisible, not forbidden.
	if !t.IsSystem && t.CreatorChatID != chatID {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (u *surveyUC) Create(ctx context.Context, chatID int64, t *model.SurveyTemplate) (int64, error) {
	defer logging.TraceDuration(u.log, "SurveyUC.Create")()

	t.IsSystem = false
	t.CreatorChatID = chatID
	t.IsActive = true
	if err := t.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.surveys.FindTemplateByName(ctx, tx, chatID, t.Name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyExists
		}
		id, err = u.surveys.SaveTemplate(ctx, tx, t)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (u *surveyUC) Remove(ctx context.Context, chatID, templateID int64) (bool, error) {
	t, err := u.surveys.FindTemplateByID(ctx, repository.NoTX, templateID)
	if err != nil {
		return false, err
	}
	if t.IsSystem {
		return false, domain.ErrSystemTemplate
	}
	if !t.OwnedBy(chatID) {
		return false, domain.ErrNotOwner
	}
	responses, err := u.surveys.FindResponses(ctx, repository.NoTX, chatID, templateID, "", "")
	if err != nil {
		return false, err
	}
	if len(responses) > 0 {
		// Past responses keep referencing the template, so hide it instead
		// of dropping the rows.
		return false, u.surveys.SetTemplateActive(ctx, repository.NoTX, templateID, false)
	}
	return true, u.surveys.DeleteTemplate(ctx, repository.NoTX, templateID)
}

func (u *surveyUC) SubmitResponse(ctx context.Context, chatID, templateID int64, answers map[string]string) (int64, error) {
	defer logging.TraceDuration(u.log, "SurveyUC.SubmitResponse")()

	t, err := u.Template(ctx, chatID, templateID)
	if err != nil {
		return 0, err
	}
	if !t.IsActive {
		return 0, domain.ErrTemplateInactive
	}

	clean := make(map[string]string, len(answers))
	for _, q := range t.Questions {
		key := strconv.FormatInt(q.ID, 10)
		canon, err := q.CheckAnswer(answers[key])
		if err != nil {
			return 0, err
		}
		if canon != "" {
			clean[key] = canon
		}
	}

	local := u.localNow(ctx, chatID)
	resp := &model.SurveyResponse{
		ChatID:     chatID,
		TemplateID: templateID,
		Date:       local.Format("2006-01-02"),
		Time:       local.Format("15:04:05"),
		Answers:    clean,
		CreatedAt:  time.Now(),
	}
	id, err := u.surveys.SaveResponse(ctx, repository.NoTX, resp)
	if err != nil {
		return 0, err
	}
	u.dropCache(ctx, chatID)
	return id, nil
}

func (u *surveyUC) Responses(ctx context.Context, chatID, templateID int64, fromDate, toDate string) ([]model.SurveyResponse, error) {
	return u.surveys.FindResponses(ctx, repository.NoTX, chatID, templateID, fromDate, toDate)
}

func (u *surveyUC) SetFavorite(ctx context.Context, chatID, templateID int64, favorite bool) error {
	if _, err := u.Template(ctx, chatID, templateID); err != nil {
		return err
	}
	p, err := u.preference(ctx, chatID, templateID)
	if err != nil {
		return err
	}
	p.IsFavorite = favorite
	return u.surveys.SavePreference(ctx, repository.NoTX, p)
}

func (u *surveyUC) Favorites(ctx context.Context, chatID int64) ([]model.SurveyTemplate, error) {
	return u.surveys.FindFavorites(ctx, repository.NoTX, chatID)
}

func (u *surveyUC) SetReminder(ctx context.Context, chatID, templateID int64, clock string) error {
	if err := model.ValidateClock(clock); err != nil {
		return err
	}
	if _, err := u.Template(ctx, chatID, templateID); err != nil {
		return err
	}
	p, err := u.preference(ctx, chatID, templateID)
	if err != nil {
		return err
	}
	p.NotificationEnabled = true
	p.NotificationTime = clock
	return u.surveys.SavePreference(ctx, repository.NoTX, p)
}

func (u *surveyUC) DisableReminder(ctx context.Context, chatID, templateID int64) error {
	p, err := u.preference(ctx, chatID, templateID)
	if err != nil {
		return err
	}
	p.NotificationEnabled = false
	p.NotificationTime = ""
	return u.surveys.SavePreference(ctx, repository.NoTX, p)
}

// preference loads the chat's settings row, falling back to a fresh one.
func (u *surveyUC) preference(ctx context.Context, chatID, templateID int64) (*model.SurveyPreference, error) {
	p, err := u.surveys.FindPreference(ctx, repository.NoTX, chatID, templateID)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.SurveyPreference{ChatID: chatID, TemplateID: templateID}, nil
	}
	return p, err
}

func (u *surveyUC) localNow(ctx context.Context, chatID int64) time.Time {
	now := time.Now().UTC()
	usr, err := u.users.FindByChatID(ctx, repository.NoTX, chatID)
	if err != nil {
		return now
	}
	return now.Add(time.Duration(usr.TzOffsetMinutes) * time.Minute)
}

func (u *surveyUC) dropCache(ctx context.Context, chatID int64) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, chatID); err != nil {
		u.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to invalidate summary cache")
	}
}
