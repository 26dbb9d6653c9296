package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// noopTM runs the callback without a real transaction.
type noopTM struct{}

func (noopTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.User
	saveErr error // used by tests to simulate save failures
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, _ repository.Tx, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ChatID] = &cp
	return nil
}

func (m *memUserRepo) FindByChatID(ctx context.Context, _ repository.Tx, chatID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindWithReminder(ctx context.Context, _ repository.Tx) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		if u.NotificationTime != nil {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUserRepo) CountUsers(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memUserRepo) CountInactiveUsers(ctx context.Context, _ repository.Tx, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.store {
		if u.LastActiveAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// memEntryRepo keys entries by chat then date.
type memEntryRepo struct {
	mu    sync.RWMutex
	store map[int64]map[string]*model.Entry
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{store: make(map[int64]map[string]*model.Entry)}
}

func (m *memEntryRepo) Upsert(ctx context.Context, _ repository.Tx, e *model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store[e.ChatID] == nil {
		m.store[e.ChatID] = make(map[string]*model.Entry)
	}
	cp := *e
	m.store[e.ChatID][e.Date] = &cp
	return nil
}

func (m *memEntryRepo) Find(ctx context.Context, _ repository.Tx, chatID int64, fromDate, toDate string) ([]model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Entry
	for date, e := range m.store[chatID] {
		if fromDate != "" && date < fromDate {
			continue
		}
		if toDate != "" && date > toDate {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (m *memEntryRepo) FindByDate(ctx context.Context, _ repository.Tx, chatID int64, date string) (*model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[chatID][date]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntryRepo) Delete(ctx context.Context, _ repository.Tx, chatID int64, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[chatID][date]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store[chatID], date)
	return nil
}

func (m *memEntryRepo) Count(ctx context.Context, _ repository.Tx, chatID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store[chatID]), nil
}

// memImpressionRepo stores impressions and tags with sequential IDs.
type memImpressionRepo struct {
	mu      sync.RWMutex
	nextID  int64
	store   map[int64]*model.Impression
	tags    map[int64]*model.Tag
	tagRefs map[int64][]int64 // impression ID -> tag IDs
}

func newMemImpressionRepo() *memImpressionRepo {
	return &memImpressionRepo{
		store:   make(map[int64]*model.Impression),
		tags:    make(map[int64]*model.Tag),
		tagRefs: make(map[int64][]int64),
	}
}

func (m *memImpressionRepo) Save(ctx context.Context, _ repository.Tx, imp *model.Impression) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *imp
	cp.ID = m.nextID
	m.store[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memImpressionRepo) Find(ctx context.Context, _ repository.Tx, chatID int64, f repository.ImpressionFilter) ([]model.Impression, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Impression
	for _, imp := range m.store {
		if imp.ChatID != chatID {
			continue
		}
		if f.Date != "" && imp.Date != f.Date {
			continue
		}
		if f.FromDate != "" && imp.Date < f.FromDate {
			continue
		}
		if f.ToDate != "" && imp.Date > f.ToDate {
			continue
		}
		if f.Category != "" && imp.Category != f.Category {
			continue
		}
		cp := *imp
		if f.WithTags {
			cp.Tags = m.tagsOf(imp.ID)
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memImpressionRepo) FindByID(ctx context.Context, _ repository.Tx, chatID, id int64) (*model.Impression, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	imp, ok := m.store[id]
	if !ok || imp.ChatID != chatID {
		return nil, domain.ErrNotFound
	}
	cp := *imp
	cp.Tags = m.tagsOf(id)
	return &cp, nil
}

func (m *memImpressionRepo) Delete(ctx context.Context, _ repository.Tx, chatID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	imp, ok := m.store[id]
	if !ok || imp.ChatID != chatID {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	delete(m.tagRefs, id)
	return nil
}

func (m *memImpressionRepo) SetEntryDate(ctx context.Context, _ repository.Tx, chatID, id int64, entryDate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	imp, ok := m.store[id]
	if !ok || imp.ChatID != chatID {
		return domain.ErrNotFound
	}
	imp.EntryDate = entryDate
	return nil
}

func (m *memImpressionRepo) UpsertTag(ctx context.Context, _ repository.Tx, chatID int64, name, color string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tags {
		if t.ChatID == chatID && t.Name == name {
			return id, nil
		}
	}
	m.nextID++
	m.tags[m.nextID] = &model.Tag{ID: m.nextID, ChatID: chatID, Name: name, Color: color}
	return m.nextID, nil
}

func (m *memImpressionRepo) AttachTags(ctx context.Context, _ repository.Tx, impressionID int64, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagRefs[impressionID] = append(m.tagRefs[impressionID], tagIDs...)
	return nil
}

func (m *memImpressionRepo) FindTags(ctx context.Context, _ repository.Tx, chatID int64) ([]model.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Tag
	for _, t := range m.tags {
		if t.ChatID == chatID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memImpressionRepo) tagsOf(impressionID int64) []model.Tag {
	var out []model.Tag
	for _, id := range m.tagRefs[impressionID] {
		if t, ok := m.tags[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// memSurveyRepo backs the survey use case in tests.
type memSurveyRepo struct {
	mu        sync.RWMutex
	nextID    int64
	templates map[int64]*model.SurveyTemplate
	responses map[int64]*model.SurveyResponse
	prefs     map[[2]int64]*model.SurveyPreference // (chatID, templateID)
}

func newMemSurveyRepo() *memSurveyRepo {
	return &memSurveyRepo{
		templates: make(map[int64]*model.SurveyTemplate),
		responses: make(map[int64]*model.SurveyResponse),
		prefs:     make(map[[2]int64]*model.SurveyPreference),
	}
}

func (m *memSurveyRepo) SaveTemplate(ctx context.Context, _ repository.Tx, t *model.SurveyTemplate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *t
	cp.ID = m.nextID
	cp.Questions = make([]model.SurveyQuestion, len(t.Questions))
	for i, q := range t.Questions {
		m.nextID++
		q.ID = m.nextID
		q.TemplateID = cp.ID
		cp.Questions[i] = q
	}
	m.templates[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memSurveyRepo) FindTemplates(ctx context.Context, _ repository.Tx, chatID int64) ([]model.SurveyTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SurveyTemplate
	for _, t := range m.templates {
		if t.IsActive && (t.IsSystem || t.CreatorChatID == chatID) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsSystem != out[j].IsSystem {
			return out[i].IsSystem
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memSurveyRepo) FindTemplateByID(ctx context.Context, _ repository.Tx, id int64) (*model.SurveyTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memSurveyRepo) FindTemplateByName(ctx context.Context, _ repository.Tx, chatID int64, name string) (*model.SurveyTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.templates {
		if !t.IsSystem && t.CreatorChatID != chatID {
			continue
		}
		if strings.EqualFold(t.Name, name) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSurveyRepo) SetTemplateActive(ctx context.Context, _ repository.Tx, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.IsActive = active
	return nil
}

func (m *memSurveyRepo) DeleteTemplate(ctx context.Context, _ repository.Tx, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memSurveyRepo) SaveResponse(ctx context.Context, _ repository.Tx, resp *model.SurveyResponse) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *resp
	cp.ID = m.nextID
	m.responses[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memSurveyRepo) FindResponses(ctx context.Context, _ repository.Tx, chatID, templateID int64, fromDate, toDate string) ([]model.SurveyResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SurveyResponse
	for _, r := range m.responses {
		if r.ChatID != chatID {
			continue
		}
		if templateID != 0 && r.TemplateID != templateID {
			continue
		}
		if fromDate != "" && r.Date < fromDate {
			continue
		}
		if toDate != "" && r.Date > toDate {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSurveyRepo) CountResponsesOn(ctx context.Context, _ repository.Tx, chatID, templateID int64, date string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.responses {
		if r.ChatID == chatID && r.TemplateID == templateID && r.Date == date {
			n++
		}
	}
	return n, nil
}

func (m *memSurveyRepo) SavePreference(ctx context.Context, _ repository.Tx, p *model.SurveyPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.prefs[[2]int64{p.ChatID, p.TemplateID}] = &cp
	return nil
}

func (m *memSurveyRepo) FindPreference(ctx context.Context, _ repository.Tx, chatID, templateID int64) (*model.SurveyPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[[2]int64{chatID, templateID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memSurveyRepo) FindFavorites(ctx context.Context, _ repository.Tx, chatID int64) ([]model.SurveyTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SurveyTemplate
	for _, p := range m.prefs {
		if p.ChatID != chatID || !p.IsFavorite {
			continue
		}
		if t, ok := m.templates[p.TemplateID]; ok && t.IsActive {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memSurveyRepo) FindDueReminders(ctx context.Context, _ repository.Tx) ([]model.SurveyPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SurveyPreference
	for _, p := range m.prefs {
		if !p.NotificationEnabled {
			continue
		}
		if t, ok := m.templates[p.TemplateID]; !ok || !t.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// memCache is an in-memory SummaryCache recording invalidations.
type memCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []int64
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, chatID int64, kind string, dst interface{}) (bool, error) {
	return false, nil
}

func (c *memCache) Put(ctx context.Context, chatID int64, kind string, v interface{}) error {
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, chatID)
	return nil
}

// mockBot records outgoing messages.
type mockBot struct {
	mu       sync.Mutex
	messages map[int64][]string
	sendErr  error
}

func newMockBot() *mockBot { return &mockBot{messages: make(map[int64][]string)} }

func (b *mockBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[chatID] = append(b.messages[chatID], text)
	return nil
}

func (b *mockBot) SendDocument(ctx context.Context, chatID int64, filename string, data []byte) error {
	return nil
}
