package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/logging"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ExportUseCase = (*exportUC)(nil)

// ExportUseCase renders a chat's records as downloadable files. Filenames
// carry a ULID so repeated exports never collide in the user's chat history.
type ExportUseCase interface {
	EntriesCSV(ctx context.Context, chatID int64) (filename string, data []byte, err error)
	ImpressionsCSV(ctx context.Context, chatID int64) (filename string, data []byte, err error)
	// ResponsesCSV renders survey responses in long form, one row per
	// answered question.
	ResponsesCSV(ctx context.Context, chatID int64) (filename string, data []byte, err error)
	// AllJSON bundles entries, impressions, and survey responses into one
	// JSON document.
	AllJSON(ctx context.Context, chatID int64) (filename string, data []byte, err error)
}

type exportUC struct {
	entries     repository.EntryRepository
	impressions repository.ImpressionRepository
	surveys     repository.SurveyRepository
	log         *zerolog.Logger
}

func NewExportUseCase(
	entries repository.EntryRepository,
	impressions repository.ImpressionRepository,
	surveys repository.SurveyRepository,
	logger *zerolog.Logger,
) *exportUC {
	return &exportUC{entries: entries, impressions: impressions, surveys: surveys, log: logger}
}

func (u *exportUC) EntriesCSV(ctx context.Context, chatID int64) (string, []byte, error) {
	defer logging.TraceDuration(u.log, "ExportUC.EntriesCSV")()

	entries, err := u.entries.Find(ctx, repository.NoTX, chatID, "", "")
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := append([]string{"date"}, model.EntryMetrics...)
	header = append(header, "comment")
	_ = w.Write(header)
	for i := range entries {
		e := &entries[i]
		row := make([]string, 0, len(header))
		row = append(row, e.Date)
		for _, m := range model.EntryMetrics {
			row = append(row, strconv.Itoa(e.Score(m)))
		}
		row = append(row, e.Comment)
		_ = w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("entries_%s.csv", strings.ToLower(ulid.Make().String())), buf.Bytes(), nil
}

func (u *exportUC) ImpressionsCSV(ctx context.Context, chatID int64) (string, []byte, error) {
	defer logging.TraceDuration(u.log, "ExportUC.ImpressionsCSV")()

	imps, err := u.impressions.Find(ctx, repository.NoTX, chatID, repository.ImpressionFilter{WithTags: true})
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "time", "category", "intensity", "text", "tags", "entry_date"})
	for i := range imps {
		imp := &imps[i]
		intensity := ""
		if imp.Intensity > 0 {
			intensity = strconv.Itoa(imp.Intensity)
		}
		names := make([]string, 0, len(imp.Tags))
		for _, t := range imp.Tags {
			names = append(names, t.Name)
		}
		_ = w.Write([]string{
			imp.Date, imp.Time, string(imp.Category), intensity,
			imp.Text, strings.Join(names, ";"), imp.EntryDate,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("impressions_%s.csv", strings.ToLower(ulid.Make().String())), buf.Bytes(), nil
}

func (u *exportUC) ResponsesCSV(ctx context.Context, chatID int64) (string, []byte, error) {
	defer logging.TraceDuration(u.log, "ExportUC.ResponsesCSV")()

	resps, err := u.surveys.FindResponses(ctx, repository.NoTX, chatID, 0, "", "")
	if err != nil {
		return "", nil, err
	}

	// Template names and question texts are resolved once per template.
	type tplInfo struct {
		name      string
		questions map[string]string
	}
	seen := make(map[int64]tplInfo)
	lookup := func(id int64) tplInfo {
		if info, ok := seen[id]; ok {
			return info
		}
		info := tplInfo{name: strconv.FormatInt(id, 10), questions: map[string]string{}}
		if t, err := u.surveys.FindTemplateByID(ctx, repository.NoTX, id); err == nil {
			info.name = t.Name
			for _, q := range t.Questions {
				info.questions[strconv.FormatInt(q.ID, 10)] = q.Text
			}
		}
		seen[id] = info
		return info
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "time", "survey", "question", "answer"})
	for i := range resps {
		resp := &resps[i]
		info := lookup(resp.TemplateID)
		keys := make([]string, 0, len(resp.Answers))
		for k := range resp.Answers {
			keys = append(keys, k)
		}
		// Keys are question IDs; sort numerically so rows follow question order.
		sort.Slice(keys, func(a, b int) bool {
			ka, _ := strconv.ParseInt(keys[a], 10, 64)
			kb, _ := strconv.ParseInt(keys[b], 10, 64)
			return ka < kb
		})
		for _, k := range keys {
			question := info.questions[k]
			if question == "" {
				question = k
			}
			_ = w.Write([]string{resp.Date, resp.Time, info.name, question, resp.Answers[k]})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("responses_%s.csv", strings.ToLower(ulid.Make().String())), buf.Bytes(), nil
}

func (u *exportUC) AllJSON(ctx context.Context, chatID int64) (string, []byte, error) {
	defer logging.TraceDuration(u.log, "ExportUC.AllJSON")()

	entries, err := u.entries.Find(ctx, repository.NoTX, chatID, "", "")
	if err != nil {
		return "", nil, err
	}
	imps, err := u.impressions.Find(ctx, repository.NoTX, chatID, repository.ImpressionFilter{WithTags: true})
	if err != nil {
		return "", nil, err
	}
	resps, err := u.surveys.FindResponses(ctx, repository.NoTX, chatID, 0, "", "")
	if err != nil {
		return "", nil, err
	}

	type impressionOut struct {
		Date      string   `json:"date"`
		Time      string   `json:"time"`
		Category  string   `json:"category,omitempty"`
		Intensity int      `json:"intensity,omitempty"`
		Text      string   `json:"text"`
		Tags      []string `json:"tags,omitempty"`
		EntryDate string   `json:"entry_date,omitempty"`
	}
	impsOut := make([]impressionOut, 0, len(imps))
	for i := range imps {
		imp := &imps[i]
		names := make([]string, 0, len(imp.Tags))
		for _, t := range imp.Tags {
			names = append(names, t.Name)
		}
		impsOut = append(impsOut, impressionOut{
			Date: imp.Date, Time: imp.Time, Category: string(imp.Category),
			Intensity: imp.Intensity, Text: imp.Text, Tags: names, EntryDate: imp.EntryDate,
		})
	}

	doc := struct {
		Entries         []model.Entry          `json:"entries"`
		Impressions     []impressionOut        `json:"impressions"`
		SurveyResponses []model.SurveyResponse `json:"survey_responses"`
	}{entries, impsOut, resps}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("diary_%s.json", strings.ToLower(ulid.Make().String())), data, nil
}
