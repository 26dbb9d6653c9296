package adapter

import "context"

// TelegramBotPort is the outbound messaging surface the use-case layer and
// the reminder worker depend on. The real adapter wraps tgbotapi; tests use
// an in-memory fake.
type TelegramBotPort interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// SendDocument delivers an in-memory file (export artifacts).
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte) error
}
