package bot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"prinprinan-bot/internal/config"
	"prinprinan-bot/internal/flow"
	"prinprinan-bot/internal/printing"
	"prinprinan-bot/internal/storage"
)

// Handler consumes customer events, one chat at a time.
type Handler interface {
	Handle(ctx context.Context, ev flow.Event)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Archive is the order history used by the admin commands.
type Archive interface {
	SaveOrder(ctx context.Context, order storage.Order) (int64, error)
	GetOrder(ctx context.Context, orderID string) (*storage.Order, error)
	ListOrders(ctx context.Context, since time.Time) ([]storage.Order, error)
	GetOrderStatistics(ctx context.Context, now time.Time) (*storage.OrderStatistics, error)
}

type PriceRefresher interface {
	Refresh(ctx context.Context) (printing.Prices, error)
}

// SessionCounter reports how many conversations have an order in progress.
type SessionCounter interface {
	Count() int
}

type Bot struct {
	bot        *tgbotapi.BotAPI
	logger     *zap.Logger
	cfg        *config.Config
	limiter    Limiter
	archive    Archive
	prices     PriceRefresher
	sessions   SessionCounter
	httpClient *http.Client
	dispatch   *dispatcher
	retryDelay time.Duration
	now        func() time.Time
}

var (
	_ flow.Messenger     = (*Bot)(nil)
	_ flow.OrderRecorder = (*Bot)(nil)
)

// New connects to Telegram. limiter, archive and sessions may be nil.
func New(
	cfg *config.Config,
	limiter Limiter,
	archive Archive,
	prices PriceRefresher,
	sessions SessionCounter,
	logger *zap.Logger,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = cfg.TelegramDebug

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	return newBot(botAPI, cfg, limiter, archive, prices, sessions, logger), nil
}

func newBot(
	botAPI *tgbotapi.BotAPI,
	cfg *config.Config,
	limiter Limiter,
	archive Archive,
	prices PriceRefresher,
	sessions SessionCounter,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		bot:        botAPI,
		logger:     logger,
		cfg:        cfg,
		limiter:    limiter,
		archive:    archive,
		prices:     prices,
		sessions:   sessions,
		httpClient: &http.Client{Timeout: cfg.Backend.RequestTimeout},
		dispatch:   newDispatcher(logger),
		retryDelay: downloadDelay,
		now:        time.Now,
	}
}

// Start polls Telegram until ctx is cancelled. Messages of one chat are
// handled in arrival order; different chats run concurrently.
func (b *Bot) Start(ctx context.Context, handler Handler) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			b.bot.StopReceivingUpdates()
			b.dispatch.Wait()
			return nil

		case update, ok := <-updates:
			if !ok {
				b.dispatch.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			b.dispatch.Submit(msg.Chat.ID, func() {
				b.processMessage(ctx, handler, msg)
			})
		}
	}
}

func (b *Bot) processMessage(ctx context.Context, handler Handler, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if b.cfg.DevMode && chatID != b.cfg.DevModeChatID {
		b.logger.Debug("Ignoring message outside dev chat", zap.Int64("chat_id", chatID))
		return
	}

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() && msg.From != nil && b.cfg.IsAdmin(msg.From.ID) && isAdminCommand(msg.Command()) {
		b.handleAdminCommand(ctx, chatID, msg.Command(), msg.CommandArguments())
		return
	}

	if !b.allow(ctx, chatID) {
		b.sendError(chatID, "Terlalu banyak pesan. Coba lagi dalam satu menit.")
		return
	}

	ev := flow.Event{
		ChatID:  chatID,
		Sender:  senderID(msg),
		Text:    msg.Text,
		Contact: ownContact(msg),
	}

	if ref, ok := uploadRef(msg); ok {
		if !supportedMIME[ref.MIME] {
			b.sendError(chatID, "Format file tidak didukung. Kirim PDF, DOCX, JPEG, PNG, atau TIFF.")
			return
		}
		upload, err := b.download(ctx, ref)
		if err != nil {
			b.logger.Error("Failed to download file",
				zap.Int64("chat_id", chatID),
				zap.String("file", ref.Name),
				zap.Error(err))
			b.sendError(chatID, "Gagal mengunduh file. Silakan kirim ulang.")
			return
		}
		upload.Caption = msg.Caption
		ev.File = upload
	}

	handler.Handle(ctx, ev)
}

func (b *Bot) allow(ctx context.Context, chatID int64) bool {
	if b.limiter == nil || b.cfg.RateLimitPerMinute <= 0 {
		return true
	}
	ok, err := b.limiter.Allow(ctx, fmt.Sprintf("ratelimit:%d", chatID), b.cfg.RateLimitPerMinute, time.Minute)
	if err != nil {
		b.logger.Warn("Rate limiter unavailable", zap.Int64("chat_id", chatID), zap.Error(err))
		return true
	}
	return ok
}

func senderID(msg *tgbotapi.Message) string {
	if msg.From != nil {
		return strconv.FormatInt(msg.From.ID, 10)
	}
	return strconv.FormatInt(msg.Chat.ID, 10)
}

// ownContact returns the normalized number of a contact the sender shared
// about themselves. Other people's contacts are ignored.
func ownContact(msg *tgbotapi.Message) string {
	c := msg.Contact
	if c == nil || msg.From == nil || c.UserID != msg.From.ID {
		return ""
	}
	return NormalizePhoneNumber(c.PhoneNumber)
}
