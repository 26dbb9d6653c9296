package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"telegram-mood-diary/internal/conversation"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/usecase"
)

const (
	stepImpressionText conversation.Step = iota
	stepImpressionCategory
	stepImpressionIntensity
	stepImpressionTags
)

type pendingImpression struct {
	imp  model.Impression
	tags []string
}

// impressionFlow captures a free-text observation with optional category,
// intensity, and tags. Every step past the text accepts /skip.
type impressionFlow struct {
	reg         *conversation.Registry
	impressions usecase.ImpressionUseCase

	mu      sync.Mutex
	pending map[int64]*pendingImpression
}

func newImpressionFlow(reg *conversation.Registry, impressions usecase.ImpressionUseCase) *impressionFlow {
	return &impressionFlow{reg: reg, impressions: impressions, pending: make(map[int64]*pendingImpression)}
}

func (f *impressionFlow) Start(ctx context.Context, chatID int64) (reply, error) {
	f.mu.Lock()
	f.pending[chatID] = &pendingImpression{imp: model.Impression{ChatID: chatID}}
	f.mu.Unlock()
	f.reg.Register(chatID, conversation.FlowImpression, stepImpressionText)
	return reply{
		text:     "What did you notice? Describe it in a sentence or two.",
		keyboard: removeKeyboard(),
	}, nil
}

func (f *impressionFlow) OnText(ctx context.Context, chatID int64, st conversation.State, text string) (reply, error) {
	f.mu.Lock()
	p := f.pending[chatID]
	f.mu.Unlock()
	if p == nil {
		f.reg.End(chatID, conversation.FlowImpression)
		return reply{text: "That dialog is gone, send /impression to start over.", keyboard: removeKeyboard()}, nil
	}

	text = strings.TrimSpace(text)
	skipped := strings.EqualFold(text, "/skip")

	switch st.Step {
	case stepImpressionText:
		if text == "" || skipped {
			return reply{text: "The description cannot be empty. What did you notice?"}, nil
		}
		p.imp.Text = text
		f.reg.Register(chatID, conversation.FlowImpression, stepImpressionCategory)
		return reply{
			text:     "Pick a category, or /skip.",
			keyboard: categoryKeyboard(),
		}, nil

	case stepImpressionCategory:
		if !skipped {
			c := model.ImpressionCategory(strings.ToLower(text))
			if !model.ValidCategory(c) {
				return reply{text: "Pick one of the buttons, or /skip.", keyboard: categoryKeyboard()}, nil
			}
			p.imp.Category = c
		}
		f.reg.Register(chatID, conversation.FlowImpression, stepImpressionIntensity)
		return reply{
			text:     "How intense was it, 1-10? Or /skip.",
			keyboard: scoreKeyboard(),
		}, nil

	case stepImpressionIntensity:
		if !skipped {
			v, err := strconv.Atoi(text)
			if err != nil || !model.ValidScore(v) {
				return reply{text: "A number from 1 to 10, or /skip.", keyboard: scoreKeyboard()}, nil
			}
			p.imp.Intensity = v
		}
		f.reg.Register(chatID, conversation.FlowImpression, stepImpressionTags)
		return reply{
			text:     "Tags, comma separated (e.g. work, sleep)? Or /skip.",
			keyboard: removeKeyboard(),
		}, nil

	default: // stepImpressionTags
		if !skipped && text != "" {
			for _, name := range strings.Split(text, ",") {
				if n := model.NormalizeTagName(name); n != "" {
					p.tags = append(p.tags, n)
				}
			}
		}
		id, err := f.impressions.Add(ctx, &p.imp, p.tags)
		if err != nil {
			return reply{}, fmt.Errorf("save impression: %w", err)
		}
		f.reg.End(chatID, conversation.FlowImpression)
		f.cancel(chatID)
		return reply{
			text:     fmt.Sprintf("Recorded as #%d. Link it to a diary entry with /link %d <date>.", id, id),
			keyboard: removeKeyboard(),
		}, nil
	}
}

func (f *impressionFlow) cancel(chatID int64) {
	f.mu.Lock()
	delete(f.pending, chatID)
	f.mu.Unlock()
}
