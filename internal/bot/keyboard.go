package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"plant-care/internal/service"
)

const (
	menuLabelDue    = "🌿 На сегодня"
	menuLabelPlants = "🪴 Растения"
	menuLabelPause  = "⏸ Пауза"
	menuLabelResume = "▶️ Возобновить"
	menuLabelHelp   = "ℹ️ Помощь"

	btnAccept  = "✅ Принять"
	btnDecline = "✖️ Оставить как есть"
)

// actionKeyboard puts Done on its own row and the snooze choices below it.
func actionKeyboard(actions []service.Action) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var snoozes []tgbotapi.InlineKeyboardButton
	for _, action := range actions {
		button := tgbotapi.NewInlineKeyboardButtonData(action.Label, action.Data)
		if strings.HasPrefix(action.Data, string(service.ActionSnooze)+":") {
			snoozes = append(snoozes, button)
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
	}
	if len(snoozes) > 0 {
		rows = append(rows, snoozes)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func recommendationKeyboard(scheduleID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnAccept,
				service.ActionRequest{Kind: service.ActionAccept, ScheduleID: scheduleID}.Data()),
			tgbotapi.NewInlineKeyboardButtonData(btnDecline,
				service.ActionRequest{Kind: service.ActionDecline, ScheduleID: scheduleID}.Data()),
		),
	)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelDue),
			tgbotapi.NewKeyboardButton(menuLabelPlants),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPause),
			tgbotapi.NewKeyboardButton(menuLabelResume),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}
