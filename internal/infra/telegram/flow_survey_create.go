package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"telegram-mood-diary/internal/conversation"
	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/usecase"
)

const (
	stepCreateName conversation.Step = iota
	stepCreateDescription
	stepCreateQuestionText
	stepCreateQuestionType
	stepCreateQuestionOptions
	stepCreateQuestionRequired
)

type pendingTemplate struct {
	tpl model.SurveyTemplate
	cur model.SurveyQuestion
}

// surveyCreateFlow builds a user questionnaire: name, description, then a
// question loop terminated by /done.
type surveyCreateFlow struct {
	reg     *conversation.Registry
	surveys usecase.SurveyUseCase

	mu      sync.Mutex
	pending map[int64]*pendingTemplate
}

func newSurveyCreateFlow(reg *conversation.Registry, surveys usecase.SurveyUseCase) *surveyCreateFlow {
	return &surveyCreateFlow{reg: reg, surveys: surveys, pending: make(map[int64]*pendingTemplate)}
}

func (f *surveyCreateFlow) Start(ctx context.Context, chatID int64) (reply, error) {
	f.mu.Lock()
	f.pending[chatID] = &pendingTemplate{}
	f.mu.Unlock()
	f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateName)
	return reply{text: "Name your questionnaire.", keyboard: removeKeyboard()}, nil
}

func (f *surveyCreateFlow) OnText(ctx context.Context, chatID int64, st conversation.State, text string) (reply, error) {
	f.mu.Lock()
	p := f.pending[chatID]
	f.mu.Unlock()
	if p == nil {
		f.reg.End(chatID, conversation.FlowSurveyCreate)
		return reply{text: "That dialog is gone, send /create_survey to start over.", keyboard: removeKeyboard()}, nil
	}

	text = strings.TrimSpace(text)
	skipped := strings.EqualFold(text, "/skip")
	done := strings.EqualFold(text, "/done")

	switch st.Step {
	case stepCreateName:
		if text == "" || skipped || done {
			return reply{text: "The name cannot be empty. Name your questionnaire."}, nil
		}
		p.tpl.Name = text
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateDescription)
		return reply{text: "Add a short description, or /skip."}, nil

	case stepCreateDescription:
		if !skipped {
			p.tpl.Description = text
		}
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateQuestionText)
		return reply{text: "Question 1: send the question text."}, nil

	case stepCreateQuestionText:
		if done {
			return f.finish(ctx, chatID, p)
		}
		if text == "" || skipped {
			return reply{text: "Send the question text, or /done to finish."}, nil
		}
		p.cur = model.SurveyQuestion{Text: text, OrderIndex: len(p.tpl.Questions)}
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateQuestionType)
		return reply{text: "What kind of answer?", keyboard: questionTypeKeyboard()}, nil

	case stepCreateQuestionType:
		qt := model.QuestionType(strings.ToLower(text))
		if !model.ValidQuestionType(qt) {
			return reply{text: "Pick one of the buttons.", keyboard: questionTypeKeyboard()}, nil
		}
		p.cur.Type = qt
		if qt == model.QuestionChoice {
			f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateQuestionOptions)
			return reply{text: "List the options, comma separated (at least two).", keyboard: removeKeyboard()}, nil
		}
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateQuestionRequired)
		return reply{text: "Is an answer required?", keyboard: yesNoKeyboard()}, nil

	case stepCreateQuestionOptions:
		p.cur.Config = text
		if len(p.cur.Options()) < 2 {
			p.cur.Config = ""
			return reply{text: "At least two comma-separated options, please."}, nil
		}
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateQuestionRequired)
		return reply{text: "Is an answer required?", keyboard: yesNoKeyboard()}, nil

	default: // stepCreateQuestionRequired
		switch strings.ToLower(text) {
		case "yes", "y":
			p.cur.IsRequired = true
		case "no", "n":
			p.cur.IsRequired = false
		default:
			return reply{text: "yes or no?", keyboard: yesNoKeyboard()}, nil
		}
		p.tpl.Questions = append(p.tpl.Questions, p.cur)
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateQuestionText)
		return reply{
			text:     fmt.Sprintf("Added. Question %d: send the text, or /done to finish.", len(p.tpl.Questions)+1),
			keyboard: removeKeyboard(),
		}, nil
	}
}

func (f *surveyCreateFlow) finish(ctx context.Context, chatID int64, p *pendingTemplate) (reply, error) {
	if len(p.tpl.Questions) == 0 {
		return reply{text: "A questionnaire needs at least one question. Send the question text."}, nil
	}
	_, err := f.surveys.Create(ctx, chatID, &p.tpl)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Keep the questions; just re-prompt for a name.
		f.reg.Register(chatID, conversation.FlowSurveyCreate, stepCreateName)
		return reply{text: "You already have a questionnaire with that name. Pick another one."}, nil
	}
	if err != nil {
		return reply{}, fmt.Errorf("create survey: %w", err)
	}
	f.reg.End(chatID, conversation.FlowSurveyCreate)
	f.cancel(chatID)
	return reply{
		text:     fmt.Sprintf("Questionnaire %q saved with %d questions. Fill it with /fill.", p.tpl.Name, len(p.tpl.Questions)),
		keyboard: removeKeyboard(),
	}, nil
}

func (f *surveyCreateFlow) cancel(chatID int64) {
	f.mu.Lock()
	delete(f.pending, chatID)
	f.mu.Unlock()
}
