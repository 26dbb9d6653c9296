package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-mood-diary/internal/conversation"
	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/infra/metrics"
	red "telegram-mood-diary/internal/infra/redis"
)

// Commands that hit Postgres aggregation or build export files are capped
// per chat per minute.
const (
	heavyCommandLimit  = 5
	heavyCommandWindow = time.Minute
)

var heavyCommands = map[string]bool{
	"stats":     true,
	"analytics": true,
	"summary":   true,
	"export":    true,
}

// flowCommands map a command onto the dialog it opens.
var flowCommands = map[string]conversation.Flow{
	"entry":         conversation.FlowEntry,
	"impression":    conversation.FlowImpression,
	"create_survey": conversation.FlowSurveyCreate,
	"fill":          conversation.FlowSurveyFill,
	"delete_survey": conversation.FlowSurveyDelete,
}

func (r *RealTelegramBotAdapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	// /skip and /done are flow vocabulary, not commands, while a dialog is
	// open.
	if (cmd == "skip" || cmd == "done") && r.flows.InFlow(chatID) {
		rep, _, err := r.flows.OnText(ctx, chatID, "/"+cmd)
		if err != nil {
			r.log.Error().Err(err).Int64("chat_id", chatID).Msg("flow step failed")
			return r.SendMessage(ctx, chatID, "Something went wrong, please try again.")
		}
		return r.sendReply(ctx, chatID, rep)
	}

	if cmd == "cancel" {
		rep := r.flows.Cancel(chatID)
		metrics.IncCommand(cmd, "ok")
		return r.sendReply(ctx, chatID, rep)
	}

	if heavyCommands[cmd] && r.limiter != nil {
		allowed, err := r.limiter.Allow(ctx, red.ChatCommandKey(chatID, cmd), heavyCommandLimit, heavyCommandWindow)
		if err != nil {
			r.log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !allowed {
			metrics.IncCommand(cmd, "throttled")
			return r.SendMessage(ctx, chatID, "Easy there. Try again in a minute.")
		}
	}

	if flow, ok := flowCommands[cmd]; ok {
		rep, err := r.flows.Start(ctx, chatID, flow)
		if err != nil {
			metrics.IncCommand(cmd, "error")
			r.log.Error().Err(err).Int64("chat_id", chatID).Str("command", cmd).Msg("flow start failed")
			return r.SendMessage(ctx, chatID, "Something went wrong, please try again.")
		}
		metrics.IncCommand(cmd, "ok")
		return r.sendReply(ctx, chatID, rep)
	}

	text, err := r.dispatch(ctx, msg, cmd, args)
	if err != nil {
		metrics.IncCommand(cmd, "error")
		r.log.Error().Err(err).Int64("chat_id", chatID).Str("command", cmd).Msg("command failed")
		return r.SendMessage(ctx, chatID, "Something went wrong, please try again.")
	}
	metrics.IncCommand(cmd, "ok")
	if text == "" {
		return nil
	}
	return r.SendMessage(ctx, chatID, text)
}

// dispatch runs one-shot commands through the facade. An empty reply with a
// nil error means the command already answered (documents).
func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, msg *tgbotapi.Message, cmd, args string) (string, error) {
	chatID := msg.Chat.ID

	switch cmd {
	case "start":
		return r.facade.HandleStart(ctx, chatID, msg.From.UserName, msg.From.FirstName)
	case "help":
		return r.facade.HandleHelp(), nil
	case "today":
		return r.facade.HandleToday(ctx, chatID)
	case "delete_entry":
		return r.facade.HandleDeleteEntry(ctx, chatID, args)
	case "stats":
		return r.facade.HandleStats(ctx, chatID)
	case "impressions":
		return r.facade.HandleImpressions(ctx, chatID, args)
	case "analytics":
		return r.facade.HandleAnalytics(ctx, chatID, parseDays(args, 0))
	case "tags":
		return r.facade.HandleTags(ctx, chatID)
	case "summary":
		return r.facade.HandleSummary(ctx, chatID, parseDays(args, 7))
	case "link":
		first, rest := splitArg(args)
		return r.facade.HandleLinkImpression(ctx, chatID, first, rest)
	case "unlink":
		return r.facade.HandleUnlinkImpression(ctx, chatID, args)
	case "notify":
		return r.facade.HandleNotify(ctx, chatID, args)
	case "notify_off":
		return r.facade.HandleNotifyOff(ctx, chatID)
	case "timezone":
		return r.facade.HandleTimezone(ctx, chatID, args)
	case "surveys":
		return r.facade.HandleListSurveys(ctx, chatID)
	case "favorites":
		return r.facade.HandleFavorites(ctx, chatID)
	case "favorite":
		return r.facade.HandleFavorite(ctx, chatID, args, true)
	case "unfavorite":
		return r.facade.HandleFavorite(ctx, chatID, args, false)
	case "survey_notify":
		first, rest := splitArg(args)
		return r.facade.HandleSurveyReminder(ctx, chatID, first, rest)
	case "survey_notify_off":
		return r.facade.HandleSurveyReminderOff(ctx, chatID, args)
	case "export":
		return r.handleExport(ctx, chatID, args)
	case "admin_stats":
		if !r.isAdmin(chatID) {
			return "You are not authorized to use this command.", nil
		}
		return r.facade.HandleAdminStats(ctx)
	default:
		return "Unknown command. Send /help for the list.", nil
	}
}

func (r *RealTelegramBotAdapter) handleExport(ctx context.Context, chatID int64, format string) (string, error) {
	filename, data, err := r.facade.HandleExport(ctx, chatID, format)
	if errors.Is(err, domain.ErrInvalidArgument) {
		return "Usage: /export <csv|json|impressions|responses>", nil
	}
	if err != nil {
		return "", err
	}
	if err := r.SendDocument(ctx, chatID, filename, data); err != nil {
		return "", err
	}
	return "", nil
}

func parseDays(args string, def int) int {
	if args == "" {
		return def
	}
	n, err := strconv.Atoi(args)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitArg(args string) (first, rest string) {
	parts := strings.SplitN(args, " ", 2)
	first = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return first, rest
}
