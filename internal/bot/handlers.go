package bot

import (
	"context"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(msg.From.ID) {
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	b.SendMessage(chatID, "Send /free to see your free time, /help for all commands")
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	if !b.cfg.IsAllowedUser(callback.From.ID) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Access denied"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	parts := strings.Split(callback.Data, ":")
	switch parts[0] {
	case "free":
		// free:weeks
		if len(parts) != 2 {
			return
		}
		weeks, err := strconv.Atoi(parts[1])
		if err != nil || weeks < 0 || weeks > maxChatWeeks {
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, "🔍 Checking calendars..."))

		text, err := b.freeReply(ctx, freeArgs{Weeks: weeks, StartHour: -1, EndHour: -1})
		if err != nil {
			log.Printf("Error building free time for chat %d: %v", chatID, err)
			text = "❌ Error: " + err.Error()
		}
		if err := b.SendMessageWithKeyboard(chatID, text, weeksKeyboard()); err != nil {
			log.Printf("Error sending free time to chat %d: %v", chatID, err)
		}

	case "digest":
		b.api.Request(tgbotapi.NewCallback(callback.ID, "🔍 Checking calendars..."))

		sub, err := b.storage.GetSubscription(chatID)
		if err != nil || sub == nil {
			b.SendMessage(chatID, "Not subscribed. /subscribe to get a daily digest")
			return
		}
		text, err := b.SubscriptionReport(ctx, sub)
		if err != nil {
			log.Printf("Error building digest for chat %d: %v", chatID, err)
			text = "❌ Error: " + err.Error()
		}
		if err := b.SendMessage(chatID, text); err != nil {
			log.Printf("Error sending digest to chat %d: %v", chatID, err)
		}

	case "unsub":
		text, err := b.unsubscribeReply(chatID)
		if err != nil {
			text = "❌ Error: " + err.Error()
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, "🔕"))
		b.SendMessage(chatID, text)

	default:
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
	}
}
