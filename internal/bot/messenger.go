package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// SendText sends Markdown text, retrying as plain text when Telegram
// rejects the markup.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Warn("Markdown send failed, retrying as plain text",
			zap.Int64("chat_id", chatID),
			zap.Error(err))

		msg.ParseMode = ""
		if _, err := b.bot.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// SendImage uploads a PNG with a Markdown caption.
func (b *Bot) SendImage(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.bot.Send(photo); err != nil {
		b.logger.Warn("Markdown photo failed, retrying as plain caption",
			zap.Int64("chat_id", chatID),
			zap.Error(err))

		photo.ParseMode = ""
		if _, err := b.bot.Send(photo); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
	}
	return nil
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := b.bot.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, "❌ "+text))
}
