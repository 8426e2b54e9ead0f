package flow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"prinprinan-bot/internal/printing"
	"prinprinan-bot/pkg/api"
)

// finalize renders the invoice, submits the order and ends the session
// whatever the backend says.
func (m *Machine) finalize(ctx context.Context, chatID int64, s *Session) {
	for i, f := range s.Files {
		if !f.Color.IsSet() {
			s.Step = StepConfiguringUnset
			s.ActiveIndex = i
			m.send(ctx, chatID, askColorText(s, f))
			return
		}
		if f.Price == nil {
			m.price(ctx, chatID, f)
		}
	}

	now := m.now()
	inv := printing.Invoice{
		Number:       fmt.Sprintf("INV-%d", now.UnixMilli()),
		CustomerName: s.CustomerName,
		Date:         now,
		Files:        s.Files,
		Prices:       m.pricing.Prices(),
	}

	m.send(ctx, chatID, msgProcessing)
	m.send(ctx, chatID, printing.RenderInvoice(inv))

	defer m.store.Delete(chatID)

	orderID, err := m.orders.CreatePrintJob(ctx, buildJob(s, inv.Prices))
	if err != nil {
		m.logger.Error("Failed to create print job",
			zap.Int64("chat_id", chatID),
			zap.String("invoice", inv.Number),
			zap.Error(err))
		m.send(ctx, chatID, msgOrderFailed)
		return
	}

	m.logger.Info("ORDER_CREATED",
		zap.Int64("chat_id", chatID),
		zap.String("order_id", orderID),
		zap.String("invoice", inv.Number),
		zap.Int("files", len(s.Files)),
		zap.Int64("total", inv.Total()))

	m.sendOrderCode(ctx, chatID, orderID)

	if m.recorder != nil {
		m.recorder.OrderPlaced(ctx, PlacedOrder{
			ChatID:         chatID,
			OrderID:        orderID,
			InvoiceNumber:  inv.Number,
			CustomerName:   s.CustomerName,
			CustomerNumber: s.CustomerNumber,
			Items:          placedItems(s.Files, inv.Prices),
			Total:          inv.Total(),
			CreatedAt:      now,
		})
	}
}

func (m *Machine) sendOrderCode(ctx context.Context, chatID int64, orderID string) {
	caption := orderReadyCaption(orderID)

	png, err := m.codes(orderID)
	if err != nil {
		m.logger.Error("Failed to render QR code",
			zap.Int64("chat_id", chatID),
			zap.String("order_id", orderID),
			zap.Error(err))
		m.send(ctx, chatID, caption)
		return
	}
	if err := m.messenger.SendImage(ctx, chatID, "order-"+orderID+".png", png, caption); err != nil {
		m.logger.Error("Failed to send QR code",
			zap.Int64("chat_id", chatID),
			zap.String("order_id", orderID),
			zap.Error(err))
		m.send(ctx, chatID, caption)
	}
}

func buildJob(s *Session, prices printing.Prices) api.PrintJob {
	job := api.PrintJob{
		CustomerName:   s.CustomerName,
		CustomerNumber: s.CustomerNumber,
		Items:          make([]api.PrintJobItem, 0, len(s.Files)),
	}
	for _, f := range s.Files {
		item := api.PrintJobItem{
			Filename:     f.Filename,
			MIME:         f.MIME,
			Data:         f.Data,
			Color:        f.Color.APIValue(),
			NeedsEdit:    f.NeedsEdit,
			Pages:        f.EffectivePages,
			Copies:       f.Copies,
			PaperSize:    f.PaperSize,
			Scale:        string(f.Scale),
			PagesToPrint: f.PageSelection,
			EditNotes:    f.EditNotes,
			Price:        printing.FinalCost(f, prices),
		}
		if f.Color.Kind == printing.ColorMixed {
			item.BWPages = f.Color.BWPages
		}
		job.Items = append(job.Items, item)
	}
	return job
}

func placedItems(files []*printing.FileEntry, prices printing.Prices) []PlacedItem {
	items := make([]PlacedItem, 0, len(files))
	for _, f := range files {
		items = append(items, PlacedItem{
			Filename: f.Filename,
			Color:    f.Color.APIValue(),
			Pages:    f.EffectivePages,
			Copies:   f.Copies,
			Cost:     printing.FinalCost(f, prices),
		})
	}
	return items
}
