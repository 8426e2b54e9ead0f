package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"prinprinan-bot/internal/printing"
	"prinprinan-bot/internal/storage"
)

const (
	defaultExportDays = 30
	maxExportDays     = 366
)

func isAdminCommand(cmd string) bool {
	switch cmd {
	case "stats", "export", "prices", "order":
		return true
	}
	return false
}

func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, cmd string, args string) {
	b.logger.Info("Admin command",
		zap.Int64("chat_id", chatID),
		zap.String("command", cmd))

	switch cmd {
	case "stats":
		b.handleOrderStats(ctx, chatID)
	case "export":
		days, err := parseExportDays(args)
		if err != nil {
			b.sendError(chatID, fmt.Sprintf("Gunakan: /export [hari], 1 sampai %d.", maxExportDays))
			return
		}
		b.handleExportOrders(ctx, chatID, days)
	case "prices":
		b.handleRefreshPrices(ctx, chatID)
	case "order":
		orderID := strings.TrimSpace(args)
		if orderID == "" {
			b.sendError(chatID, "Gunakan: /order <kode pesanan>")
			return
		}
		b.handleOrderLookup(ctx, chatID, orderID)
	}
}

func parseExportDays(args string) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return defaultExportDays, nil
	}
	days, err := strconv.Atoi(args)
	if err != nil {
		return 0, err
	}
	if days < 1 || days > maxExportDays {
		return 0, fmt.Errorf("days out of range: %d", days)
	}
	return days, nil
}

func (b *Bot) handleOrderStats(ctx context.Context, chatID int64) {
	if b.archive == nil {
		b.sendError(chatID, "Arsip pesanan tidak aktif.")
		return
	}

	stats, err := b.archive.GetOrderStatistics(ctx, b.now())
	if err != nil {
		b.logger.Error("Failed to get order statistics", zap.Error(err))
		b.sendError(chatID, "Gagal mengambil statistik.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatStats(stats, b.activeSessions()))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.sendMessage(msg)
}

func (b *Bot) activeSessions() int {
	if b.sessions == nil {
		return 0
	}
	return b.sessions.Count()
}

func formatStats(s *storage.OrderStatistics, active int) string {
	return fmt.Sprintf(
		"📊 *Statistik Pesanan*\n\n"+
			"📌 Total: %d (%s)\n"+
			"📅 Hari ini: %d (%s)\n"+
			"📅 Minggu ini: %d (%s)\n"+
			"📅 Bulan ini: %d (%s)\n\n"+
			"🛒 Sesi aktif: %d",
		s.TotalOrders, printing.FormatRupiah(s.TotalRevenue),
		s.TodayOrders, printing.FormatRupiah(s.TodayRevenue),
		s.WeekOrders, printing.FormatRupiah(s.WeekRevenue),
		s.MonthOrders, printing.FormatRupiah(s.MonthRevenue),
		active,
	)
}

func (b *Bot) handleOrderLookup(ctx context.Context, chatID int64, orderID string) {
	if b.archive == nil {
		b.sendError(chatID, "Arsip pesanan tidak aktif.")
		return
	}

	order, err := b.archive.GetOrder(ctx, orderID)
	if errors.Is(err, storage.ErrOrderNotFound) {
		b.sendError(chatID, fmt.Sprintf("Pesanan %s tidak ditemukan.", orderID))
		return
	}
	if err != nil {
		b.logger.Error("Failed to get order",
			zap.String("order_id", orderID),
			zap.Error(err))
		b.sendError(chatID, "Gagal mengambil data pesanan.")
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, formatArchivedOrder(order)))
}

func formatArchivedOrder(o *storage.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Pesanan %s\n", o.OrderID)
	fmt.Fprintf(&b, "Invoice: %s\n", o.InvoiceNumber)
	fmt.Fprintf(&b, "Tanggal: %s\n", printing.FormatDate(o.CreatedAt))
	fmt.Fprintf(&b, "Nama: %s\n", o.CustomerName)
	fmt.Fprintf(&b, "Nomor: %s\n", o.CustomerNumber)
	b.WriteString("File:\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s (%s, %d hal × %d) %s\n",
			it.Filename, it.Color, it.Pages, it.Copies, printing.FormatRupiah(it.Cost))
	}
	fmt.Fprintf(&b, "Total: %s", printing.FormatRupiah(o.Total))
	return b.String()
}

func (b *Bot) handleExportOrders(ctx context.Context, chatID int64, days int) {
	if b.archive == nil {
		b.sendError(chatID, "Arsip pesanan tidak aktif.")
		return
	}

	now := b.now()
	orders, err := b.archive.ListOrders(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		b.logger.Error("Failed to list orders", zap.Error(err))
		b.sendError(chatID, "Gagal mengambil data pesanan.")
		return
	}

	data, err := storage.ExportOrdersToExcel(orders)
	if err != nil {
		b.logger.Error("Failed to export orders", zap.Error(err))
		b.sendError(chatID, "Gagal membuat file laporan.")
		return
	}

	name := fmt.Sprintf("orders_%s.xlsx", now.Format("20060102"))
	caption := fmt.Sprintf("📄 %d pesanan, %d hari terakhir", len(orders), days)
	if err := b.sendDocument(chatID, name, data, caption); err != nil {
		b.logger.Error("Failed to send export",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) handleRefreshPrices(ctx context.Context, chatID int64) {
	if b.prices == nil {
		b.sendError(chatID, "Sinkronisasi harga tidak aktif.")
		return
	}

	p, err := b.prices.Refresh(ctx)
	header := "✅ *Harga diperbarui*"
	if err != nil {
		b.logger.Warn("Failed to refresh pricing on admin request", zap.Error(err))
		header = "⚠️ *Gagal memperbarui harga, memakai harga saat ini*"
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"%s\n\n- Hitam Putih: %s\n- Warna: %s\n- Full Color: %s",
		header,
		printing.FormatRupiah(p.BlackWhite),
		printing.FormatRupiah(p.Color),
		printing.FormatRupiah(p.FullColor),
	))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.sendMessage(msg)
}
