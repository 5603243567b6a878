package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// LogSink writes every event it receives to a logger.
type LogSink struct {
	Log *slog.Logger
}

// Run drains sub until it is closed or ctx is done.
func (s LogSink) Run(ctx context.Context, sub *Subscription) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			log.Info("planner event",
				"kind", string(ev.Kind),
				"user", ev.UserID,
				"entry", ev.EntryID,
				"task", ev.TaskID,
				"title", ev.Title,
			)
		}
	}
}

// Sender is the part of the Telegram bot API the sink uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink forwards reminders and digests to one chat.
type TelegramSink struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func NewTelegramSink(token string, chatID int64, log *slog.Logger) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return NewTelegramSinkWithSender(api, chatID, log), nil
}

func NewTelegramSinkWithSender(api Sender, chatID int64, log *slog.Logger) *TelegramSink {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramSink{api: api, chatID: chatID, log: log}
}

func (s *TelegramSink) Run(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := s.Deliver(ev); err != nil {
				s.log.Warn("telegram delivery failed", "kind", string(ev.Kind), "err", err)
			}
		}
	}
}

// Deliver sends ev if it is a reminder or a digest; other kinds are ignored.
func (s *TelegramSink) Deliver(ev Event) error {
	text, ok := FormatTelegram(ev)
	if !ok {
		return nil
	}
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := s.api.Send(msg)
	return err
}

// FormatTelegram renders ev as Telegram HTML.
func FormatTelegram(ev Event) (string, bool) {
	var sb strings.Builder
	switch ev.Kind {
	case KindReminder:
		sb.WriteString("⏰ <b>Reminder</b>\n")
		sb.WriteString(html.EscapeString(strings.TrimSpace(ev.Title)))
		if !ev.Date.IsZero() {
			sb.WriteString(fmt.Sprintf(" <i>(due %s)</i>", ev.Date.Format("2006-01-02")))
		}
	case KindDigest:
		sb.WriteString("💍 <b>Wedding digest</b>\n")
		sb.WriteString(html.EscapeString(strings.TrimSpace(ev.Message)))
	default:
		return "", false
	}
	return sb.String(), true
}
