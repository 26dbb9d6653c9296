package telegram

import (
	"bytes"
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-mood-diary/internal/application"
	"telegram-mood-diary/internal/config"
	"telegram-mood-diary/internal/domain/ports/adapter"
	"telegram-mood-diary/internal/infra/logging"
	red "telegram-mood-diary/internal/infra/redis"
)

// Compile-time check
var _ adapter.TelegramBotPort = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter drives tgbotapi with concurrent long polling.
// Commands either resolve in one shot through the facade or open a dialog
// via the flow router; plain text is routed to whichever dialog the chat is
// inside.
type RealTelegramBotAdapter struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	facade  *application.BotFacade
	flows   *FlowRouter
	limiter *red.RateLimiter
	log     *zerolog.Logger

	adminIDs map[int64]struct{}

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	facade *application.BotFacade,
	flows *FlowRouter,
	limiter *red.RateLimiter,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if flows == nil {
		return nil, errors.New("flow router is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		flows:         flows,
		limiter:       limiter,
		log:           logger,
		adminIDs:      admins,
		updateWorkers: workers,
	}, nil
}

// StartPolling polls Telegram for updates until ctx is canceled, fanning
// updates out to a fixed worker pool.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("update handling failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")
	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// SendMessage delivers a plain text message to the chat.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendDocument delivers an in-memory file to the chat.
func (r *RealTelegramBotAdapter) SendDocument(ctx context.Context, chatID int64, filename string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{
		Name:   filename,
		Reader: bytes.NewReader(data),
	})
	_, err := r.bot.Send(doc)
	return err
}

func (r *RealTelegramBotAdapter) sendReply(ctx context.Context, chatID int64, rep reply) error {
	if rep.text == "" {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, rep.text)
	if rep.keyboard != nil {
		msg.ReplyMarkup = rep.keyboard
	}
	_, err := r.bot.Send(msg)
	return err
}

// handleUpdate processes a single Telegram update.
func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	chatID := msg.Chat.ID

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithChatID(ctx, chatID)

	if msg.IsCommand() {
		return r.handleCommand(ctx, msg)
	}

	rep, consumed, err := r.flows.OnText(ctx, chatID, msg.Text)
	if err != nil {
		r.log.Error().Err(err).Int64("chat_id", chatID).Msg("flow step failed")
		return r.SendMessage(ctx, chatID, "Something went wrong, please try again.")
	}
	if consumed {
		return r.sendReply(ctx, chatID, rep)
	}
	return r.SendMessage(ctx, chatID, "I didn't catch that. Send /help for the command list.")
}

func (r *RealTelegramBotAdapter) isAdmin(chatID int64) bool {
	_, ok := r.adminIDs[chatID]
	return ok
}
