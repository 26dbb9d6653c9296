package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"telegram-mood-diary/internal/conversation"
	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/usecase"
)

const (
	stepDeletePick conversation.Step = iota
	stepDeleteConfirm
)

type pendingDelete struct {
	templateID int64
	name       string
}

// surveyDeleteFlow removes one of the chat's own questionnaires after an
// explicit confirmation.
type surveyDeleteFlow struct {
	reg     *conversation.Registry
	surveys usecase.SurveyUseCase

	mu      sync.Mutex
	pending map[int64]*pendingDelete
}

func newSurveyDeleteFlow(reg *conversation.Registry, surveys usecase.SurveyUseCase) *surveyDeleteFlow {
	return &surveyDeleteFlow{reg: reg, surveys: surveys, pending: make(map[int64]*pendingDelete)}
}

func (f *surveyDeleteFlow) Start(ctx context.Context, chatID int64) (reply, error) {
	templates, err := f.surveys.Templates(ctx, chatID)
	if err != nil {
		return reply{}, fmt.Errorf("list surveys: %w", err)
	}
	var sb strings.Builder
	own := 0
	sb.WriteString("Which questionnaire should go? Send its number:\n")
	for i := range templates {
		if templates[i].IsSystem {
			continue
		}
		fmt.Fprintf(&sb, "%d. %s\n", templates[i].ID, templates[i].Name)
		own++
	}
	if own == 0 {
		return reply{text: "You have no questionnaires of your own. Built-in ones cannot be removed.", keyboard: removeKeyboard()}, nil
	}

	f.mu.Lock()
	f.pending[chatID] = &pendingDelete{}
	f.mu.Unlock()
	f.reg.Register(chatID, conversation.FlowSurveyDelete, stepDeletePick)
	return reply{text: strings.TrimRight(sb.String(), "\n"), keyboard: removeKeyboard()}, nil
}

func (f *surveyDeleteFlow) OnText(ctx context.Context, chatID int64, st conversation.State, text string) (reply, error) {
	f.mu.Lock()
	p := f.pending[chatID]
	f.mu.Unlock()
	if p == nil {
		f.reg.End(chatID, conversation.FlowSurveyDelete)
		return reply{text: "That dialog is gone, send /delete_survey to start over.", keyboard: removeKeyboard()}, nil
	}

	text = strings.TrimSpace(text)

	if st.Step == stepDeletePick {
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return reply{text: "Send the questionnaire's number from the list."}, nil
		}
		tpl, err := f.surveys.Template(ctx, chatID, id)
		if errors.Is(err, domain.ErrNotFound) {
			return reply{text: "No questionnaire with that number. Try again."}, nil
		}
		if err != nil {
			return reply{}, fmt.Errorf("load survey: %w", err)
		}
		if tpl.IsSystem {
			return reply{text: "Built-in questionnaires cannot be removed. Pick another number."}, nil
		}
		p.templateID = tpl.ID
		p.name = tpl.Name
		f.reg.Register(chatID, conversation.FlowSurveyDelete, stepDeleteConfirm)
		return reply{
			text:     fmt.Sprintf("Remove %q? Past responses are kept either way.", tpl.Name),
			keyboard: yesNoKeyboard(),
		}, nil
	}

	switch strings.ToLower(text) {
	case "yes", "y":
	case "no", "n":
		f.reg.End(chatID, conversation.FlowSurveyDelete)
		f.cancel(chatID)
		return reply{text: "Kept.", keyboard: removeKeyboard()}, nil
	default:
		return reply{text: "yes or no?", keyboard: yesNoKeyboard()}, nil
	}

	deleted, err := f.surveys.Remove(ctx, chatID, p.templateID)
	if errors.Is(err, domain.ErrNotOwner) || errors.Is(err, domain.ErrSystemTemplate) {
		f.reg.End(chatID, conversation.FlowSurveyDelete)
		f.cancel(chatID)
		return reply{text: "You cannot remove that questionnaire.", keyboard: removeKeyboard()}, nil
	}
	if err != nil {
		return reply{}, fmt.Errorf("remove survey: %w", err)
	}
	f.reg.End(chatID, conversation.FlowSurveyDelete)
	f.cancel(chatID)
	if deleted {
		return reply{text: fmt.Sprintf("%q removed.", p.name), keyboard: removeKeyboard()}, nil
	}
	return reply{
		text:     fmt.Sprintf("%q hidden. It had responses, so the history is kept.", p.name),
		keyboard: removeKeyboard(),
	}, nil
}

func (f *surveyDeleteFlow) cancel(chatID int64) {
	f.mu.Lock()
	delete(f.pending, chatID)
	f.mu.Unlock()
}
