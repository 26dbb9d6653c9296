package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/usecase"
)

// BotFacade composes usecases into one-shot bot commands. Methods return
// ready-to-send strings so the Telegram adapter just forwards them to the
// chat; multi-step flows live in the adapter and talk to the usecases
// directly.
type BotFacade struct {
	UserUC       usecase.UserUseCase
	EntryUC      usecase.EntryUseCase
	ImpressionUC usecase.ImpressionUseCase
	SurveyUC     usecase.SurveyUseCase
	StatsUC      usecase.StatsUseCase
	ExportUC     usecase.ExportUseCase
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	entryUC usecase.EntryUseCase,
	impressionUC usecase.ImpressionUseCase,
	surveyUC usecase.SurveyUseCase,
	statsUC usecase.StatsUseCase,
	exportUC usecase.ExportUseCase,
) *BotFacade {
	return &BotFacade{
		UserUC:       userUC,
		EntryUC:      entryUC,
		ImpressionUC: impressionUC,
		SurveyUC:     surveyUC,
		StatsUC:      statsUC,
		ExportUC:     exportUC,
	}
}

// HandleStart registers or fetches the user and returns a welcome string.
func (b *BotFacade) HandleStart(ctx context.Context, chatID int64, username, firstName string) (string, error) {
	u, err := b.UserUC.RegisterOrFetch(ctx, chatID, username, firstName)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hello %s!\n\nI keep your daily mood diary.\n"+
		"/entry — record today's scores\n"+
		"/impression — jot down a quick observation\n"+
		"/surveys — questionnaires\n"+
		"/help — everything else", name), nil
}

// HandleHelp returns the command reference.
func (b *BotFacade) HandleHelp() string {
	return strings.Join([]string{
		"Diary:",
		"/entry — fill today's diary (9 scores + comment)",
		"/today — show today's entry",
		"/delete_entry <YYYY-MM-DD> — remove an entry",
		"/stats — score averages",
		"",
		"Impressions:",
		"/impression — record an observation",
		"/impressions [YYYY-MM-DD] — list impressions",
		"/analytics [days] — impression breakdown",
		"/link <id> <YYYY-MM-DD> — tie one to a diary entry",
		"/unlink <id> — untie it again",
		"/tags — your tag list",
		"",
		"Surveys:",
		"/surveys — list questionnaires",
		"/create_survey — build your own",
		"/fill — fill a questionnaire",
		"/delete_survey — remove one of yours",
		"/favorites — starred questionnaires",
		"",
		"Settings:",
		"/notify <HH:MM> — daily diary reminder",
		"/notify_off — disable the reminder",
		"/timezone <±HH:MM> — set your UTC offset",
		"/summary [days] — combined daily overview",
		"/export <csv|json|impressions|responses> — download your data",
		"/cancel — abort the current dialog",
	}, "\n")
}

// HandleToday shows today's entry, if recorded.
func (b *BotFacade) HandleToday(ctx context.Context, chatID int64) (string, error) {
	date, err := b.localDate(ctx, chatID)
	if err != nil {
		return "", err
	}
	e, err := b.EntryUC.Get(ctx, chatID, date)
	if errors.Is(err, domain.ErrNotFound) {
		return "No entry for today yet. Send /entry to record one.", nil
	}
	if err != nil {
		return "", fmt.Errorf("load entry: %w", err)
	}
	return formatEntry(e), nil
}

// HandleDeleteEntry removes the entry for the given date.
func (b *BotFacade) HandleDeleteEntry(ctx context.Context, chatID int64, date string) (string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "Usage: /delete_entry YYYY-MM-DD", nil
	}
	err := b.EntryUC.Delete(ctx, chatID, date)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("No entry on %s.", date), nil
	}
	if err != nil {
		return "", fmt.Errorf("delete entry: %w", err)
	}
	return fmt.Sprintf("Entry for %s deleted.", date), nil
}

// HandleStats renders per-metric averages over the whole history.
func (b *BotFacade) HandleStats(ctx context.Context, chatID int64) (string, error) {
	sum, err := b.StatsUC.EntrySummary(ctx, chatID, "", "")
	if err != nil {
		return "", fmt.Errorf("entry summary: %w", err)
	}
	if sum.Count == 0 {
		return "No entries yet. Send /entry to start.", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %d entries, %s … %s\n\n", sum.Count, sum.FirstDate, sum.LastDate)
	for _, m := range model.EntryMetrics {
		fmt.Fprintf(&sb, "%s: %.1f\n", m, sum.Averages[m])
	}
	return sb.String(), nil
}

// HandleImpressions lists impressions, optionally restricted to one date.
func (b *BotFacade) HandleImpressions(ctx context.Context, chatID int64, date string) (string, error) {
	f := repository.ImpressionFilter{WithTags: true}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return "Usage: /impressions [YYYY-MM-DD]", nil
		}
		f.Date = date
	}
	imps, err := b.ImpressionUC.List(ctx, chatID, f)
	if err != nil {
		return "", fmt.Errorf("list impressions: %w", err)
	}
	if len(imps) == 0 {
		return "Nothing recorded. Send /impression to add one.", nil
	}
	var sb strings.Builder
	for i := range imps {
		imp := &imps[i]
		fmt.Fprintf(&sb, "#%d %s %s", imp.ID, imp.Date, clockOf(imp.Time))
		if imp.Category != "" {
			fmt.Fprintf(&sb, " [%s]", imp.Category)
		}
		if imp.Intensity > 0 {
			fmt.Fprintf(&sb, " (%d/10)", imp.Intensity)
		}
		fmt.Fprintf(&sb, "\n%s\n", imp.Text)
		if len(imp.Tags) > 0 {
			names := make([]string, 0, len(imp.Tags))
			for _, t := range imp.Tags {
				names = append(names, "#"+t.Name)
			}
			fmt.Fprintf(&sb, "%s\n", strings.Join(names, " "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// HandleAnalytics renders the impression breakdown; days == 0 means all time.
func (b *BotFacade) HandleAnalytics(ctx context.Context, chatID int64, days int) (string, error) {
	a, err := b.StatsUC.ImpressionAnalytics(ctx, chatID, days)
	if err != nil {
		return "", fmt.Errorf("impression analytics: %w", err)
	}
	if a.Total == 0 {
		return "No impressions to analyze yet.", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 %d impressions\n\nBy category:\n", a.Total)
	for _, c := range model.ImpressionCategories {
		if n := a.ByCategory[string(c)]; n > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", c, n)
		}
	}
	sb.WriteString("\nBy time of day:\n")
	for _, part := range []string{"morning", "afternoon", "evening", "night"} {
		if n := a.ByTimeOfDay[part]; n > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", part, n)
		}
	}
	if a.WithIntensity > 0 {
		fmt.Fprintf(&sb, "\nAverage intensity: %.1f (%d rated)\n", a.AvgIntensity, a.WithIntensity)
	}
	if len(a.TopTags) > 0 {
		sb.WriteString("\nTop tags:\n")
		for _, t := range a.TopTags {
			fmt.Fprintf(&sb, "  #%s × %d\n", t.Name, t.Count)
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// HandleSummary renders the combined daily overview.
func (b *BotFacade) HandleSummary(ctx context.Context, chatID int64, days int) (string, error) {
	rows, err := b.StatsUC.CombinedDaily(ctx, chatID, days)
	if err != nil {
		return "", fmt.Errorf("combined summary: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("🗓 Daily overview:\n\n")
	for _, d := range rows {
		mark := "—"
		if d.HasEntry {
			mark = fmt.Sprintf("mood %d", d.Mood)
		}
		fmt.Fprintf(&sb, "%s: %s, %d impressions, %d surveys\n", d.Date, mark, d.Impressions, d.Responses)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// HandleTags lists the chat's tag catalog.
func (b *BotFacade) HandleTags(ctx context.Context, chatID int64) (string, error) {
	tags, err := b.ImpressionUC.Tags(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("list tags: %w", err)
	}
	if len(tags) == 0 {
		return "No tags yet. Tags are added while recording an impression.", nil
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, "#"+t.Name)
	}
	return strings.Join(names, " "), nil
}

// HandleNotify stores the daily diary reminder clock.
func (b *BotFacade) HandleNotify(ctx context.Context, chatID int64, clock string) (string, error) {
	err := b.UserUC.SetReminder(ctx, chatID, clock)
	if errors.Is(err, domain.ErrInvalidArgument) {
		return "Usage: /notify HH:MM (for example /notify 21:30)", nil
	}
	if err != nil {
		return "", fmt.Errorf("set reminder: %w", err)
	}
	return fmt.Sprintf("Daily reminder set for %s. Set your offset with /timezone if needed.", clock), nil
}

// HandleNotifyOff disables the diary reminder.
func (b *BotFacade) HandleNotifyOff(ctx context.Context, chatID int64) (string, error) {
	if err := b.UserUC.DisableReminder(ctx, chatID); err != nil {
		return "", fmt.Errorf("disable reminder: %w", err)
	}
	return "Daily reminder disabled.", nil
}

// HandleTimezone parses and stores a UTC offset like "+03:00", "-5" or "0".
func (b *BotFacade) HandleTimezone(ctx context.Context, chatID int64, raw string) (string, error) {
	offset, err := ParseOffset(raw)
	if err != nil {
		return "Usage: /timezone ±HH:MM (for example /timezone +03:00)", nil
	}
	if err := b.UserUC.SetTimezone(ctx, chatID, offset); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return "That offset is outside UTC-12 … UTC+14.", nil
		}
		return "", fmt.Errorf("set timezone: %w", err)
	}
	return fmt.Sprintf("Timezone set to UTC%s.", FormatOffset(offset)), nil
}

// HandleListSurveys lists the questionnaires visible to the chat.
func (b *BotFacade) HandleListSurveys(ctx context.Context, chatID int64) (string, error) {
	templates, err := b.SurveyUC.Templates(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("list surveys: %w", err)
	}
	if len(templates) == 0 {
		return "No questionnaires available. Create one with /create_survey.", nil
	}
	var sb strings.Builder
	sb.WriteString("Questionnaires:\n")
	for i := range templates {
		t := &templates[i]
		owner := "yours"
		if t.IsSystem {
			owner = "built-in"
		}
		fmt.Fprintf(&sb, "%d. %s (%s, %d questions)\n", t.ID, t.Name, owner, len(t.Questions))
	}
	sb.WriteString("\nFill one with /fill")
	return sb.String(), nil
}

// HandleFavorites lists starred questionnaires.
func (b *BotFacade) HandleFavorites(ctx context.Context, chatID int64) (string, error) {
	favs, err := b.SurveyUC.Favorites(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("list favorites: %w", err)
	}
	if len(favs) == 0 {
		return "No favorites yet. Star one with /favorite <id>.", nil
	}
	var sb strings.Builder
	sb.WriteString("⭐ Favorites:\n")
	for i := range favs {
		fmt.Fprintf(&sb, "%d. %s\n", favs[i].ID, favs[i].Name)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// HandleFavorite stars or unstars a questionnaire.
func (b *BotFacade) HandleFavorite(ctx context.Context, chatID int64, rawID string, on bool) (string, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "Usage: /favorite <survey id> (see /surveys)", nil
	}
	err = b.SurveyUC.SetFavorite(ctx, chatID, id, on)
	if errors.Is(err, domain.ErrNotFound) {
		return "No such questionnaire. See /surveys.", nil
	}
	if err != nil {
		return "", fmt.Errorf("set favorite: %w", err)
	}
	if on {
		return "Starred.", nil
	}
	return "Unstarred.", nil
}

// HandleSurveyReminder enables a daily reminder for one questionnaire.
func (b *BotFacade) HandleSurveyReminder(ctx context.Context, chatID int64, rawID, clock string) (string, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "Usage: /survey_notify <survey id> <HH:MM>", nil
	}
	err = b.SurveyUC.SetReminder(ctx, chatID, id, clock)
	if errors.Is(err, domain.ErrInvalidArgument) {
		return "Usage: /survey_notify <survey id> <HH:MM>", nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "No such questionnaire. See /surveys.", nil
	}
	if err != nil {
		return "", fmt.Errorf("set survey reminder: %w", err)
	}
	return fmt.Sprintf("Reminder for questionnaire %d set to %s.", id, clock), nil
}

// HandleSurveyReminderOff disables a questionnaire reminder.
func (b *BotFacade) HandleSurveyReminderOff(ctx context.Context, chatID int64, rawID string) (string, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "Usage: /survey_notify_off <survey id>", nil
	}
	if err := b.SurveyUC.DisableReminder(ctx, chatID, id); err != nil {
		return "", fmt.Errorf("disable survey reminder: %w", err)
	}
	return fmt.Sprintf("Reminder for questionnaire %d disabled.", id), nil
}

// HandleLinkImpression ties an impression to a diary entry by date.
func (b *BotFacade) HandleLinkImpression(ctx context.Context, chatID int64, rawID, date string) (string, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "Usage: /link <impression id> <YYYY-MM-DD>", nil
	}
	err = b.ImpressionUC.LinkToEntry(ctx, chatID, id, date)
	if errors.Is(err, domain.ErrInvalidArgument) {
		return "Usage: /link <impression id> <YYYY-MM-DD>", nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "Impression or entry not found. Check /impressions and /today.", nil
	}
	if err != nil {
		return "", fmt.Errorf("link impression: %w", err)
	}
	return fmt.Sprintf("Impression #%d linked to the entry of %s.", id, date), nil
}

// HandleUnlinkImpression clears an impression's diary entry reference.
func (b *BotFacade) HandleUnlinkImpression(ctx context.Context, chatID int64, rawID string) (string, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "Usage: /unlink <impression id>", nil
	}
	err = b.ImpressionUC.Unlink(ctx, chatID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "Impression not found. Check /impressions.", nil
	}
	if err != nil {
		return "", fmt.Errorf("unlink impression: %w", err)
	}
	return fmt.Sprintf("Impression #%d unlinked.", id), nil
}

// HandleAdminStats renders operator-facing counters.
func (b *BotFacade) HandleAdminStats(ctx context.Context) (string, error) {
	total, err := b.UserUC.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count users: %w", err)
	}
	inactive, err := b.UserUC.CountInactiveSince(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return "", fmt.Errorf("count inactive users: %w", err)
	}
	return fmt.Sprintf("👥 Users: %d\n💤 Inactive (30d): %d", total, inactive), nil
}

// HandleExport renders the chat's data as a downloadable file.
func (b *BotFacade) HandleExport(ctx context.Context, chatID int64, format string) (filename string, data []byte, err error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return b.ExportUC.AllJSON(ctx, chatID)
	case "csv", "":
		return b.ExportUC.EntriesCSV(ctx, chatID)
	case "impressions":
		return b.ExportUC.ImpressionsCSV(ctx, chatID)
	case "responses":
		return b.ExportUC.ResponsesCSV(ctx, chatID)
	default:
		return "", nil, domain.ErrInvalidArgument
	}
}

// localDate returns today's date on the user's clock, falling back to UTC
// for unknown chats.
func (b *BotFacade) localDate(ctx context.Context, chatID int64) (string, error) {
	now := time.Now().UTC()
	u, err := b.UserUC.GetByChatID(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return now.Format("2006-01-02"), nil
	}
	if err != nil {
		return "", err
	}
	return now.Add(time.Duration(u.TzOffsetMinutes) * time.Minute).Format("2006-01-02"), nil
}

func formatEntry(e *model.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📔 Entry for %s\n\n", e.Date)
	for _, m := range model.EntryMetrics {
		fmt.Fprintf(&sb, "%s: %d/10\n", m, e.Score(m))
	}
	if e.Comment != "" {
		fmt.Fprintf(&sb, "\n%s", e.Comment)
	}
	return sb.String()
}

func clockOf(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}

// ParseOffset reads "+03:00", "-5:30", "3" or "0" into minutes.
func ParseOffset(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, domain.ErrInvalidArgument
	}
	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}
	hh := s
	mm := "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm = s[:i], s[i+1:]
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, domain.ErrInvalidArgument
	}
	return sign * (h*60 + m), nil
}

// FormatOffset renders minutes back into "±HH:MM".
func FormatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}
