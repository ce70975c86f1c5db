package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// weekChoices are offered under every free-time answer
var weekChoices = []int{1, 2, 4}

// Week range keyboard for a free-time answer
func weeksKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, n := range weekChoices {
		label := fmt.Sprintf("%d weeks", n)
		if n == 1 {
			label = "1 week"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("free:%d", n)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// Subscription keyboard, shown after /subscribe
func subscriptionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓 Show now", "digest"),
			tgbotapi.NewInlineKeyboardButtonData("🔕 Unsubscribe", "unsub"),
		),
	)
}
