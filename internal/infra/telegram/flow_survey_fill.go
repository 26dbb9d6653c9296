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
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/usecase"
)

// Step 0 picks the template; step 1+i answers question i.
const stepFillPick conversation.Step = 0

type pendingFill struct {
	tpl     *model.SurveyTemplate
	answers map[string]string
}

// surveyFillFlow walks a chat through one questionnaire, question by
// question, then submits the response.
type surveyFillFlow struct {
	reg     *conversation.Registry
	surveys usecase.SurveyUseCase

	mu      sync.Mutex
	pending map[int64]*pendingFill
}

func newSurveyFillFlow(reg *conversation.Registry, surveys usecase.SurveyUseCase) *surveyFillFlow {
	return &surveyFillFlow{reg: reg, surveys: surveys, pending: make(map[int64]*pendingFill)}
}

func (f *surveyFillFlow) Start(ctx context.Context, chatID int64) (reply, error) {
	templates, err := f.surveys.Templates(ctx, chatID)
	if err != nil {
		return reply{}, fmt.Errorf("list surveys: %w", err)
	}
	if len(templates) == 0 {
		return reply{text: "No questionnaires available. Create one with /create_survey.", keyboard: removeKeyboard()}, nil
	}

	f.mu.Lock()
	f.pending[chatID] = &pendingFill{answers: make(map[string]string)}
	f.mu.Unlock()
	f.reg.Register(chatID, conversation.FlowSurveyFill, stepFillPick)

	var sb strings.Builder
	sb.WriteString("Which questionnaire? Send its number:\n")
	for i := range templates {
		fmt.Fprintf(&sb, "%d. %s\n", templates[i].ID, templates[i].Name)
	}
	return reply{text: strings.TrimRight(sb.String(), "\n"), keyboard: removeKeyboard()}, nil
}

func (f *surveyFillFlow) OnText(ctx context.Context, chatID int64, st conversation.State, text string) (reply, error) {
	f.mu.Lock()
	p := f.pending[chatID]
	f.mu.Unlock()
	if p == nil {
		f.reg.End(chatID, conversation.FlowSurveyFill)
		return reply{text: "That dialog is gone, send /fill to start over.", keyboard: removeKeyboard()}, nil
	}

	text = strings.TrimSpace(text)

	if st.Step == stepFillPick {
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
		if len(tpl.Questions) == 0 {
			f.reg.End(chatID, conversation.FlowSurveyFill)
			f.cancel(chatID)
			return reply{text: "That questionnaire has no questions.", keyboard: removeKeyboard()}, nil
		}
		p.tpl = tpl
		f.reg.Register(chatID, conversation.FlowSurveyFill, 1)
		return f.ask(&tpl.Questions[0]), nil
	}

	idx := int(st.Step) - 1
	if idx >= len(p.tpl.Questions) {
		// Stale step after a template change; start over.
		f.reg.End(chatID, conversation.FlowSurveyFill)
		f.cancel(chatID)
		return reply{text: "Something went wrong, send /fill to start over.", keyboard: removeKeyboard()}, nil
	}
	q := &p.tpl.Questions[idx]

	raw := text
	if strings.EqualFold(raw, "/skip") {
		raw = ""
	}
	canon, err := q.CheckAnswer(raw)
	if err != nil {
		rep := f.ask(q)
		rep.text = "That answer does not fit.\n\n" + rep.text
		return rep, nil
	}
	if canon != "" {
		p.answers[strconv.FormatInt(q.ID, 10)] = canon
	}

	if idx+1 < len(p.tpl.Questions) {
		f.reg.Register(chatID, conversation.FlowSurveyFill, conversation.Step(idx+2))
		return f.ask(&p.tpl.Questions[idx+1]), nil
	}

	if _, err := f.surveys.SubmitResponse(ctx, chatID, p.tpl.ID, p.answers); err != nil {
		return reply{}, fmt.Errorf("submit response: %w", err)
	}
	f.reg.End(chatID, conversation.FlowSurveyFill)
	f.cancel(chatID)
	return reply{text: fmt.Sprintf("%q recorded, thank you ✅", p.tpl.Name), keyboard: removeKeyboard()}, nil
}

func (f *surveyFillFlow) ask(q *model.SurveyQuestion) reply {
	suffix := ""
	if !q.IsRequired {
		suffix = " (/skip to leave blank)"
	}
	switch q.Type {
	case model.QuestionScale:
		return reply{text: q.Text + " (1-10)" + suffix, keyboard: scoreKeyboard()}
	case model.QuestionYesNo:
		return reply{text: q.Text + suffix, keyboard: yesNoKeyboard()}
	case model.QuestionChoice:
		return reply{text: q.Text + suffix, keyboard: optionsKeyboard(q.Options())}
	default:
		return reply{text: q.Text + suffix, keyboard: removeKeyboard()}
	}
}

func (f *surveyFillFlow) cancel(chatID int64) {
	f.mu.Lock()
	delete(f.pending, chatID)
	f.mu.Unlock()
}
