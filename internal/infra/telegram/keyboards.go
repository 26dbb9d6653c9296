package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-mood-diary/internal/domain/model"
)

// scoreKeyboard lays out the 1-10 scale in two rows.
func scoreKeyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 2)
	for i := model.ScoreMin; i <= model.ScoreMax; i++ {
		btn := tgbotapi.NewKeyboardButton(strconv.Itoa(i))
		rows[(i-1)/5] = append(rows[(i-1)/5], btn)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(model.ImpressionCategories))
	for _, c := range model.ImpressionCategories {
		row = append(row, tgbotapi.NewKeyboardButton(string(c)))
	}
	kb := tgbotapi.NewReplyKeyboard(row[:3], row[3:])
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("yes"),
			tgbotapi.NewKeyboardButton("no"),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func questionTypeKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.QuestionScale)),
			tgbotapi.NewKeyboardButton(string(model.QuestionText)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.QuestionYesNo)),
			tgbotapi.NewKeyboardButton(string(model.QuestionChoice)),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

// optionsKeyboard offers a choice question's options, one per row.
func optionsKeyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(opt)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(false)
}
