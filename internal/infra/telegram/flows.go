package telegram

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-mood-diary/internal/conversation"
	"telegram-mood-diary/internal/infra/metrics"
	"telegram-mood-diary/internal/usecase"
)

// reply is what a flow step hands back to the adapter for delivery.
// keyboard is a tgbotapi reply markup, nil to leave the current one alone.
type reply struct {
	text     string
	keyboard interface{}
}

// flowHandler is one multi-step dialog. Start registers the flow with the
// conversation registry and returns the opening prompt; OnText consumes one
// incoming message while the flow is active; cancel discards any partial
// input after the registry state is gone.
type flowHandler interface {
	Start(ctx context.Context, chatID int64) (reply, error)
	OnText(ctx context.Context, chatID int64, st conversation.State, text string) (reply, error)
	cancel(chatID int64)
}

// FlowRouter owns the conversation registry and dispatches incoming text to
// whichever flow the chat is inside. Commands that start flows also come
// through here so registration stays in one place.
type FlowRouter struct {
	reg      *conversation.Registry
	handlers map[conversation.Flow]flowHandler
	log      *zerolog.Logger
}

func NewFlowRouter(
	reg *conversation.Registry,
	entryUC usecase.EntryUseCase,
	impressionUC usecase.ImpressionUseCase,
	surveyUC usecase.SurveyUseCase,
	logger *zerolog.Logger,
) *FlowRouter {
	return &FlowRouter{
		reg: reg,
		handlers: map[conversation.Flow]flowHandler{
			conversation.FlowEntry:        newEntryFlow(reg, entryUC),
			conversation.FlowImpression:   newImpressionFlow(reg, impressionUC),
			conversation.FlowSurveyCreate: newSurveyCreateFlow(reg, surveyUC),
			conversation.FlowSurveyFill:   newSurveyFillFlow(reg, surveyUC),
			conversation.FlowSurveyDelete: newSurveyDeleteFlow(reg, surveyUC),
		},
		log: logger,
	}
}

// Start abandons whatever the chat was doing and opens the named flow.
func (f *FlowRouter) Start(ctx context.Context, chatID int64, flow conversation.Flow) (reply, error) {
	if st, ok := f.reg.Active(chatID); ok {
		metrics.IncFlowEvent(string(st.Flow), "abandon")
	}
	f.abandon(chatID)
	h, ok := f.handlers[flow]
	if !ok {
		return reply{}, fmt.Errorf("unknown flow %q", flow)
	}
	rep, err := h.Start(ctx, chatID)
	if err != nil {
		f.reg.End(chatID, flow)
		h.cancel(chatID)
		return reply{}, err
	}
	metrics.IncFlowEvent(string(flow), "start")
	return rep, nil
}

// OnText dispatches a plain message. The second return is false when the
// chat is idle and the message belongs to no flow.
func (f *FlowRouter) OnText(ctx context.Context, chatID int64, text string) (reply, bool, error) {
	st, ok := f.reg.Active(chatID)
	if !ok {
		return reply{}, false, nil
	}
	h := f.handlers[st.Flow]
	if h == nil {
		// State for a flow this build no longer knows; drop it.
		f.reg.EndAll(chatID)
		return reply{}, false, nil
	}
	rep, err := h.OnText(ctx, chatID, st, text)
	if err != nil {
		return reply{}, true, err
	}
	if _, still := f.reg.Active(chatID); !still {
		metrics.IncFlowEvent(string(st.Flow), "complete")
	}
	return rep, true, nil
}

// Cancel aborts the chat's current flow, if any.
func (f *FlowRouter) Cancel(chatID int64) reply {
	st, ok := f.reg.Active(chatID)
	if !ok {
		return reply{text: "Nothing to cancel.", keyboard: removeKeyboard()}
	}
	f.abandon(chatID)
	metrics.IncFlowEvent(string(st.Flow), "cancel")
	return reply{text: "Cancelled.", keyboard: removeKeyboard()}
}

// InFlow reports whether the chat currently has an open dialog.
func (f *FlowRouter) InFlow(chatID int64) bool {
	_, ok := f.reg.Active(chatID)
	return ok
}

// abandon clears registry state and any partial input for the chat.
func (f *FlowRouter) abandon(chatID int64) {
	f.reg.EndAll(chatID)
	for _, h := range f.handlers {
		h.cancel(chatID)
	}
}
