package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"prinprinan-bot/internal/flow"
	"prinprinan-bot/internal/printing"
	"prinprinan-bot/internal/storage"
)

// OrderPlaced archives an accepted order and announces it to the admins.
func (b *Bot) OrderPlaced(ctx context.Context, order flow.PlacedOrder) {
	if b.archive != nil {
		if _, err := b.archive.SaveOrder(ctx, archivedOrder(order)); err != nil {
			b.logger.Error("Failed to archive order",
				zap.Int64("chat_id", order.ChatID),
				zap.String("order_id", order.OrderID),
				zap.Error(err))
		}
	}
	b.notifyNewOrder(order)
}

func archivedOrder(o flow.PlacedOrder) storage.Order {
	items := make([]storage.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, storage.OrderItem{
			Filename: it.Filename,
			Color:    it.Color,
			Pages:    it.Pages,
			Copies:   it.Copies,
			Cost:     it.Cost,
		})
	}
	return storage.Order{
		OrderID:        o.OrderID,
		InvoiceNumber:  o.InvoiceNumber,
		ChatID:         o.ChatID,
		CustomerName:   o.CustomerName,
		CustomerNumber: o.CustomerNumber,
		Total:          o.Total,
		CreatedAt:      o.CreatedAt,
		Items:          items,
	}
}

// notifyNewOrder posts to the admin channel, or to every admin when no
// channel is configured.
func (b *Bot) notifyNewOrder(order flow.PlacedOrder) {
	recipients := b.cfg.AdminIDs
	if b.cfg.AdminChannelID != 0 {
		recipients = []int64{b.cfg.AdminChannelID}
	}
	if len(recipients) == 0 {
		return
	}

	text := formatOrderNotice(order)
	for _, id := range recipients {
		msg := tgbotapi.NewMessage(id, text)
		if _, err := b.bot.Send(msg); err != nil {
			b.logger.Error("Failed to send order notification",
				zap.Int64("recipient", id),
				zap.String("order_id", order.OrderID),
				zap.Error(err))
		}
	}
}

func formatOrderNotice(o flow.PlacedOrder) string {
	var files []string
	for _, it := range o.Items {
		files = append(files, fmt.Sprintf("• %s (%s, %d hal × %d)", it.Filename, it.Color, it.Pages, it.Copies))
	}
	return fmt.Sprintf(
		"📦 Pesanan baru %s\n"+
			"Invoice: %s\n"+
			"Nama: %s\n"+
			"Nomor: %s\n"+
			"File:\n%s\n"+
			"Total: %s",
		o.OrderID,
		o.InvoiceNumber,
		o.CustomerName,
		o.CustomerNumber,
		strings.Join(files, "\n"),
		printing.FormatRupiah(o.Total),
	)
}
