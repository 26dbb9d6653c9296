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

// Entry flow steps: one per scored metric, then the comment.
var stepEntryComment = conversation.Step(len(model.EntryMetrics))

var metricPrompts = map[string]string{
	"mood":         "How is your mood?",
	"sleep":        "How well did you sleep?",
	"balance":      "How balanced do you feel?",
	"mania":        "Mania level?",
	"depression":   "Depression level?",
	"anxiety":      "Anxiety level?",
	"irritability": "Irritability level?",
	"productivity": "How productive were you?",
	"sociability":  "How sociable were you?",
}

// entryFlow collects the nine diary scores and an optional comment.
// Partial input lives here, keyed by chat; the registry only tracks the
// position.
type entryFlow struct {
	reg     *conversation.Registry
	entries usecase.EntryUseCase

	mu      sync.Mutex
	pending map[int64]*model.Entry
}

func newEntryFlow(reg *conversation.Registry, entries usecase.EntryUseCase) *entryFlow {
	return &entryFlow{reg: reg, entries: entries, pending: make(map[int64]*model.Entry)}
}

func (f *entryFlow) Start(ctx context.Context, chatID int64) (reply, error) {
	f.mu.Lock()
	f.pending[chatID] = &model.Entry{ChatID: chatID}
	f.mu.Unlock()
	f.reg.Register(chatID, conversation.FlowEntry, 0)
	return reply{
		text:     fmt.Sprintf("Let's record today.\n\n%s (1-10)", metricPrompts[model.EntryMetrics[0]]),
		keyboard: scoreKeyboard(),
	}, nil
}

func (f *entryFlow) OnText(ctx context.Context, chatID int64, st conversation.State, text string) (reply, error) {
	f.mu.Lock()
	e := f.pending[chatID]
	f.mu.Unlock()
	if e == nil {
		// Partial input lost (restart); abort cleanly.
		f.reg.End(chatID, conversation.FlowEntry)
		return reply{text: "That dialog is gone, send /entry to start over.", keyboard: removeKeyboard()}, nil
	}

	if st.Step < stepEntryComment {
		metric := model.EntryMetrics[st.Step]
		v, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || !model.ValidScore(v) {
			return reply{text: fmt.Sprintf("Please answer with a number from 1 to 10.\n\n%s (1-10)", metricPrompts[metric])}, nil
		}
		e.SetScore(metric, v)

		next := st.Step + 1
		f.reg.Register(chatID, conversation.FlowEntry, next)
		if next == stepEntryComment {
			return reply{
				text:     "Any comment for today? Send /skip to leave it empty.",
				keyboard: removeKeyboard(),
			}, nil
		}
		return reply{
			text:     fmt.Sprintf("%s (1-10)", metricPrompts[model.EntryMetrics[next]]),
			keyboard: scoreKeyboard(),
		}, nil
	}

	if !strings.EqualFold(strings.TrimSpace(text), "/skip") {
		e.Comment = strings.TrimSpace(text)
	}
	if err := f.entries.Save(ctx, e); err != nil {
		return reply{}, fmt.Errorf("save entry: %w", err)
	}
	f.reg.End(chatID, conversation.FlowEntry)
	f.cancel(chatID)
	return reply{text: fmt.Sprintf("Saved ✅\n\n%s", formatEntrySummary(e)), keyboard: removeKeyboard()}, nil
}

func (f *entryFlow) cancel(chatID int64) {
	f.mu.Lock()
	delete(f.pending, chatID)
	f.mu.Unlock()
}

func formatEntrySummary(e *model.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Entry for %s:\n", e.Date)
	for _, m := range model.EntryMetrics {
		fmt.Fprintf(&sb, "%s %d", m, e.Score(m))
		sb.WriteString("  ")
	}
	return strings.TrimRight(sb.String(), " ")
}
