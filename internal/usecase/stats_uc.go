package usecase

import (
	"context"
	"sort"
	"strconv"
	"time"

	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// EntrySummary aggregates a chat's diary entries: per-metric means over the
// covered range.
type EntrySummary struct {
	Count     int                `json:"count"`
	FirstDate string             `json:"first_date,omitempty"`
	LastDate  string             `json:"last_date,omitempty"`
	Averages  map[string]float64 `json:"averages"`
}

// TagCount is one tag with its usage count.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ImpressionAnalytics buckets a chat's impressions by category, time of day,
// and weekday, and surfaces the most used tags.
type ImpressionAnalytics struct {
	Total         int            `json:"total"`
	ByCategory    map[string]int `json:"by_category"`
	ByTimeOfDay   map[string]int `json:"by_time_of_day"`
	ByWeekday     map[string]int `json:"by_weekday"`
	AvgIntensity  float64        `json:"avg_intensity"`
	WithIntensity int            `json:"with_intensity"`
	TopTags       []TagCount     `json:"top_tags"`
}

// CombinedDay is one calendar day across all record kinds.
type CombinedDay struct {
	Date        string `json:"date"`
	HasEntry    bool   `json:"has_entry"`
	Mood        int    `json:"mood,omitempty"`
	Impressions int    `json:"impressions"`
	Responses   int    `json:"responses"`
}

// StatsUseCase computes read-only summaries. Whole-history summaries are
// served from the Redis cache when fresh.
type StatsUseCase interface {
	EntrySummary(ctx context.Context, chatID int64, fromDate, toDate string) (*EntrySummary, error)
	// ImpressionAnalytics covers the last periodDays days; 0 means all time.
	ImpressionAnalytics(ctx context.Context, chatID int64, periodDays int) (*ImpressionAnalytics, error)
	// CombinedDaily returns the last `days` calendar days, oldest first.
	CombinedDaily(ctx context.Context, chatID int64, days int) ([]CombinedDay, error)
}

type statsUC struct {
	entries     repository.EntryRepository
	impressions repository.ImpressionRepository
	surveys     repository.SurveyRepository
	cache       SummaryCache
	log         *zerolog.Logger
	now         func() time.Time
}

func NewStatsUseCase(
	entries repository.EntryRepository,
	impressions repository.ImpressionRepository,
	surveys repository.SurveyRepository,
	cache SummaryCache,
	logger *zerolog.Logger,
) *statsUC {
	return &statsUC{
		entries:     entries,
		impressions: impressions,
		surveys:     surveys,
		cache:       cache,
		log:         logger,
		now:         time.Now,
	}
}

func (u *statsUC) EntrySummary(ctx context.Context, chatID int64, fromDate, toDate string) (*EntrySummary, error) {
	defer logging.TraceDuration(u.log, "StatsUC.EntrySummary")()

	cacheable := fromDate == "" && toDate == ""
	if cacheable && u.cache != nil {
		var cached EntrySummary
		if ok, err := u.cache.Get(ctx, chatID, "entries", &cached); err != nil {
			u.log.Warn().Err(err).Msg("summary cache read failed")
		} else if ok {
			return &cached, nil
		}
	}

	entries, err := u.entries.Find(ctx, repository.NoTX, chatID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	sum := &EntrySummary{Count: len(entries), Averages: map[string]float64{}}
	if len(entries) > 0 {
		// Find returns newest first.
		sum.LastDate = entries[0].Date
		sum.FirstDate = entries[len(entries)-1].Date
		for _, m := range model.EntryMetrics {
			total := 0
			for i := range entries {
				total += entries[i].Score(m)
			}
			sum.Averages[m] = round1(float64(total) / float64(len(entries)))
		}
	}

	if cacheable && u.cache != nil {
		if err := u.cache.Put(ctx, chatID, "entries", sum); err != nil {
			u.log.Warn().Err(err).Msg("summary cache write failed")
		}
	}
	return sum, nil
}

func (u *statsUC) ImpressionAnalytics(ctx context.Context, chatID int64, periodDays int) (*ImpressionAnalytics, error) {
	defer logging.TraceDuration(u.log, "StatsUC.ImpressionAnalytics")()

	cacheable := periodDays == 0
	if cacheable && u.cache != nil {
		var cached ImpressionAnalytics
		if ok, err := u.cache.Get(ctx, chatID, "impressions", &cached); err != nil {
			u.log.Warn().Err(err).Msg("summary cache read failed")
		} else if ok {
			return &cached, nil
		}
	}

	f := repository.ImpressionFilter{WithTags: true}
	if periodDays > 0 {
		f.FromDate = u.now().UTC().AddDate(0, 0, -periodDays).Format("2006-01-02")
	}
	imps, err := u.impressions.Find(ctx, repository.NoTX, chatID, f)
	if err != nil {
		return nil, err
	}

	a := &ImpressionAnalytics{
		Total:       len(imps),
		ByCategory:  map[string]int{},
		ByTimeOfDay: map[string]int{},
		ByWeekday:   map[string]int{},
	}
	intensitySum := 0
	tagCounts := map[string]int{}
	for i := range imps {
		imp := &imps[i]
		cat := string(imp.Category)
		if cat == "" {
			cat = string(model.CategoryOther)
		}
		a.ByCategory[cat]++
		a.ByTimeOfDay[timeOfDay(imp.Time)]++
		if d, err := time.Parse("2006-01-02", imp.Date); err == nil {
			a.ByWeekday[d.Weekday().String()]++
		}
		if imp.Intensity > 0 {
			a.WithIntensity++
			intensitySum += imp.Intensity
		}
		for _, t := range imp.Tags {
			tagCounts[t.Name]++
		}
	}
	if a.WithIntensity > 0 {
		a.AvgIntensity = round1(float64(intensitySum) / float64(a.WithIntensity))
	}
	a.TopTags = topTags(tagCounts, 5)

	if cacheable && u.cache != nil {
		if err := u.cache.Put(ctx, chatID, "impressions", a); err != nil {
			u.log.Warn().Err(err).Msg("summary cache write failed")
		}
	}
	return a, nil
}

func (u *statsUC) CombinedDaily(ctx context.Context, chatID int64, days int) ([]CombinedDay, error) {
	defer logging.TraceDuration(u.log, "StatsUC.CombinedDaily")()

	if days <= 0 {
		days = 7
	}
	today := u.now().UTC()
	from := today.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	entries, err := u.entries.Find(ctx, repository.NoTX, chatID, from, "")
	if err != nil {
		return nil, err
	}
	imps, err := u.impressions.Find(ctx, repository.NoTX, chatID, repository.ImpressionFilter{FromDate: from})
	if err != nil {
		return nil, err
	}
	resps, err := u.surveys.FindResponses(ctx, repository.NoTX, chatID, 0, from, "")
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*CombinedDay, days)
	out := make([]CombinedDay, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -(days - 1 - i)).Format("2006-01-02")
		out[i] = CombinedDay{Date: date}
		byDate[date] = &out[i]
	}
	for i := range entries {
		if d, ok := byDate[entries[i].Date]; ok {
			d.HasEntry = true
			d.Mood = entries[i].Mood
		}
	}
	for i := range imps {
		if d, ok := byDate[imps[i].Date]; ok {
			d.Impressions++
		}
	}
	for i := range resps {
		if d, ok := byDate[resps[i].Date]; ok {
			d.Responses++
		}
	}
	return out, nil
}

// timeOfDay buckets an "HH:MM:SS" clock into four day parts.
func timeOfDay(clock string) string {
	hour := 0
	if len(clock) >= 2 {
		if h, err := strconv.Atoi(clock[:2]); err == nil {
			hour = h
		}
	}
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func topTags(counts map[string]int, limit int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
