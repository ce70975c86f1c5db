package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/freetime/internal/domain"
	"github.com/tazhate/freetime/internal/service"
)

// freeArgs are the optional arguments of /free and /subscribe.
// -1 means the configured default
type freeArgs struct {
	Weeks     int
	StartHour int
	EndHour   int
}

// maxChatWeeks keeps a free-time reply inside a few Telegram messages
const maxChatWeeks = 8

var errUsage = errors.New("usage: [weeks] [start_hour] [end_hour], e.g. 2 9 17")

func parseFreeArgs(args string) (freeArgs, error) {
	a := freeArgs{Weeks: -1, StartHour: -1, EndHour: -1}

	fields := strings.Fields(args)
	if len(fields) > 3 {
		return a, errUsage
	}

	values := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return a, errUsage
		}
		values[i] = n
	}

	if len(values) > 0 {
		if values[0] < 0 || values[0] > maxChatWeeks {
			return a, fmt.Errorf("weeks must be between 0 and %d", maxChatWeeks)
		}
		a.Weeks = values[0]
	}
	if len(values) > 1 {
		if values[1] < 0 || values[1] > 23 {
			return a, fmt.Errorf("start hour must be between 0 and 23")
		}
		a.StartHour = values[1]
	}
	if len(values) > 2 {
		if values[2] < 0 || values[2] > 23 {
			return a, fmt.Errorf("end hour must be between 0 and 23")
		}
		a.EndHour = values[2]
	}
	return a, nil
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(chatID)
	case "free":
		b.cmdFree(chatID, args)
	case "calendars":
		b.cmdCalendars(chatID)
	case "subscribe":
		b.cmdSubscribe(chatID, args)
	case "unsubscribe":
		b.cmdUnsubscribe(chatID)
	default:
		b.SendMessage(chatID, "Unknown command. /help for the list of commands")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := msg.From.FirstName
	if name == "" {
		name = msg.From.UserName
	}

	b.SendMessage(msg.Chat.ID, fmt.Sprintf("👋 Hi, %s!\n\nI look at your calendars and tell you when you are free.\n\n/help — list of commands", html.EscapeString(name)))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

<b>Free time</b>
/free — free time for the configured weeks
/free 1 — free time for the next week
/free 2 9 18 — two weeks, between 9am and 6pm

<b>Daily digest</b>
/subscribe [weeks] [start] [end] — send free time every morning
/unsubscribe — stop the digest

<b>Other</b>
/calendars — calendars on the server
/help — this help`

	b.SendMessage(chatID, text)
}

func (b *Bot) cmdFree(chatID int64, args string) {
	a, err := parseFreeArgs(args)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	text, err := b.freeReply(ctx, a)
	if err != nil {
		log.Printf("Error building free time for chat %d: %v", chatID, err)
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}

	if err := b.SendMessageWithKeyboard(chatID, text, weeksKeyboard()); err != nil {
		log.Printf("Error sending free time to chat %d: %v", chatID, err)
	}
}

func (b *Bot) cmdCalendars(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	text, err := b.calendarsReply(ctx)
	if err != nil {
		log.Printf("Error listing calendars: %v", err)
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	b.SendMessage(chatID, text)
}

func (b *Bot) cmdSubscribe(chatID int64, args string) {
	text, err := b.subscribeReply(chatID, args)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if err := b.SendMessageWithKeyboard(chatID, text, subscriptionKeyboard()); err != nil {
		log.Printf("Error sending subscription reply to chat %d: %v", chatID, err)
	}
}

func (b *Bot) cmdUnsubscribe(chatID int64) {
	text, err := b.unsubscribeReply(chatID)
	if err != nil {
		b.SendMessage(chatID, "❌ Error: "+err.Error())
		return
	}
	b.SendMessage(chatID, text)
}

// query resolves arguments against the configured defaults
func (b *Bot) query(a freeArgs) service.Query {
	weeks := b.cfg.NumWeeks
	if a.Weeks >= 0 {
		weeks = a.Weeks
	}
	return service.Query{
		From:   b.clock(),
		Weeks:  weeks,
		Window: b.cfg.Window.WithHours(a.StartHour, a.EndHour),
	}
}

func (b *Bot) freeReply(ctx context.Context, a freeArgs) (string, error) {
	q := b.query(a)
	days, err := b.availability.Availability(ctx, q)
	if err != nil {
		return "", err
	}
	return availabilityText(days, q.Weeks), nil
}

// SubscriptionReport builds the daily digest for a subscription
func (b *Bot) SubscriptionReport(ctx context.Context, sub *domain.Subscription) (string, error) {
	text, err := b.freeReply(ctx, freeArgs{Weeks: sub.Weeks, StartHour: sub.DayStartHour, EndHour: sub.DayEndHour})
	if err != nil {
		return "", err
	}
	return "☀️ <b>Good morning!</b>\n\n" + text, nil
}

func availabilityText(days []domain.DayAvailability, weeks int) string {
	lines := service.FormatAvailability(days)
	if len(lines) == 0 {
		return "😔 No free time " + describeRange(weeks)
	}
	return fmt.Sprintf("🗓 <b>Free time %s</b>\n\n%s", describeRange(weeks), strings.Join(lines, "\n"))
}

func describeRange(weeks int) string {
	switch weeks {
	case 0:
		return "today"
	case 1:
		return "for the next week"
	default:
		return fmt.Sprintf("for the next %d weeks", weeks)
	}
}

func (b *Bot) calendarsReply(ctx context.Context) (string, error) {
	cals, err := b.availability.ListCalendars(ctx)
	if err != nil {
		return "", err
	}
	if len(cals) == 0 {
		return "No calendars found on the server", nil
	}

	used := make(map[string]bool, len(b.cfg.Calendars))
	for _, name := range b.cfg.Calendars {
		used[name] = true
	}

	var sb strings.Builder
	sb.WriteString("📚 <b>Calendars:</b>\n\n")
	for _, c := range cals {
		mark := "▫️"
		if used[c.Name] {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s %s\n", mark, html.EscapeString(c.Name))
	}
	sb.WriteString("\n✅ — used for free time")
	return sb.String(), nil
}

func (b *Bot) subscribeReply(chatID int64, args string) (string, error) {
	a, err := parseFreeArgs(args)
	if err != nil {
		return "", err
	}

	sub := &domain.Subscription{
		ChatID:       chatID,
		Weeks:        a.Weeks,
		DayStartHour: a.StartHour,
		DayEndHour:   a.EndHour,
	}
	window := sub.Window(b.cfg.Window)
	if err := window.Validate(); err != nil {
		return "", err
	}

	if err := b.storage.UpsertSubscription(sub); err != nil {
		return "", fmt.Errorf("save subscription: %w", err)
	}

	weeks := b.cfg.NumWeeks
	if sub.Weeks >= 0 {
		weeks = sub.Weeks
	}
	return fmt.Sprintf("🔔 Subscribed. Every day at %s you get free time %s, %s-%s",
		b.cfg.DigestTime, describeRange(weeks),
		service.FormatClock(window.Start), service.FormatClock(window.End)), nil
}

func (b *Bot) unsubscribeReply(chatID int64) (string, error) {
	deleted, err := b.storage.DeleteSubscription(chatID)
	if err != nil {
		return "", fmt.Errorf("delete subscription: %w", err)
	}
	if !deleted {
		return "Not subscribed", nil
	}
	return "🔕 Unsubscribed", nil
}
