package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prinprinan-bot/internal/config"
	"prinprinan-bot/internal/flow"
	"prinprinan-bot/internal/storage"
)

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	d := newDispatcher(zap.NewNop())

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 200; i++ {
		chatID := int64(i % 3)
		n := i
		d.Submit(chatID, func() {
			mu.Lock()
			got[chatID] = append(got[chatID], n)
			mu.Unlock()
		})
	}
	d.Wait()

	for chatID, seq := range got {
		require.NotEmpty(t, seq)
		for i := 1; i < len(seq); i++ {
			assert.Less(t, seq[i-1], seq[i], "chat %d out of order", chatID)
		}
	}
	assert.Equal(t, 200, len(got[0])+len(got[1])+len(got[2]))
}

func TestDispatcherRunsChatsConcurrently(t *testing.T) {
	d := newDispatcher(zap.NewNop())
	released := make(chan struct{})
	var overlapped atomic.Bool

	// Chat 1 can only see the release if chat 2 runs while it is blocked.
	d.Submit(1, func() {
		select {
		case <-released:
			overlapped.Store(true)
		case <-time.After(2 * time.Second):
		}
	})
	d.Submit(2, func() { close(released) })
	d.Wait()

	assert.True(t, overlapped.Load())
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := newDispatcher(zap.NewNop())
	var ran atomic.Bool

	d.Submit(7, func() { panic("boom") })
	d.Submit(7, func() { ran.Store(true) })
	d.Wait()

	assert.True(t, ran.Load())
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	b := newBot(nil, &config.Config{}, nil, nil, nil, nil, zap.NewNop())
	b.retryDelay = time.Millisecond
	return b
}

func TestFetchRetriesTruncatedDownload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = io.WriteString(w, "%PD")
			return
		}
		_, _ = io.WriteString(w, "%PDF-1.7")
	}))
	defer srv.Close()

	data, truncated, err := newTestBot(t).fetch(context.Background(), srv.URL, 8)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchReturnsTruncatedAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, "%PD")
	}))
	defer srv.Close()

	data, truncated, err := newTestBot(t).fetch(context.Background(), srv.URL, 8)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, "%PD", string(data))
	assert.Equal(t, int32(downloadAttempts), calls.Load())
}

func TestFetchFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := newTestBot(t).fetch(context.Background(), srv.URL, 0)
	assert.Error(t, err)
}

func TestUploadRef(t *testing.T) {
	doc := &tgbotapi.Message{Document: &tgbotapi.Document{
		FileID: "F1", FileName: "a.pdf", MimeType: "application/pdf", FileSize: 10,
	}}
	ref, ok := uploadRef(doc)
	require.True(t, ok)
	assert.Equal(t, fileRef{ID: "F1", Name: "a.pdf", MIME: "application/pdf", Size: 10}, ref)

	photo := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{
		{FileID: "small", FileUniqueID: "s", FileSize: 1},
		{FileID: "large", FileUniqueID: "L", FileSize: 9},
	}}
	ref, ok = uploadRef(photo)
	require.True(t, ok)
	assert.Equal(t, "large", ref.ID)
	assert.Equal(t, "photo_L.jpg", ref.Name)
	assert.Equal(t, "image/jpeg", ref.MIME)

	_, ok = uploadRef(&tgbotapi.Message{Text: "halo"})
	assert.False(t, ok)
}

func TestParseExportDays(t *testing.T) {
	days, err := parseExportDays("")
	require.NoError(t, err)
	assert.Equal(t, defaultExportDays, days)

	days, err = parseExportDays(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, days)

	for _, bad := range []string{"0", "abc", "400"} {
		_, err := parseExportDays(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatStats(t *testing.T) {
	out := formatStats(&storage.OrderStatistics{TotalOrders: 3, TotalRevenue: 25000, TodayOrders: 1, TodayRevenue: 5000}, 4)
	assert.Contains(t, out, "Total: 3 (Rp25.000)")
	assert.Contains(t, out, "Hari ini: 1 (Rp5.000)")
	assert.Contains(t, out, "Sesi aktif: 4")
}

func TestArchivedOrderAndNotice(t *testing.T) {
	placed := flow.PlacedOrder{
		ChatID:        42,
		OrderID:       "ORD-1",
		InvoiceNumber: "INV-1",
		CustomerName:  "Budi",
		Items: []flow.PlacedItem{
			{Filename: "a.pdf", Color: "bnw", Pages: 10, Copies: 2, Cost: 10000},
		},
		Total: 10000,
	}

	order := archivedOrder(placed)
	assert.Equal(t, "ORD-1", order.OrderID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(10000), order.Items[0].Cost)

	notice := formatOrderNotice(placed)
	assert.Contains(t, notice, "Pesanan baru ORD-1")
	assert.Contains(t, notice, "• a.pdf (bnw, 10 hal × 2)")
	assert.Contains(t, notice, "Total: Rp10.000")
}

func TestSendTextFallsBackToPlain(t *testing.T) {
	var mu sync.Mutex
	var modes []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			mode := r.FormValue("parse_mode")
			mu.Lock()
			modes = append(modes, mode)
			mu.Unlock()
			if mode == tgbotapi.ModeMarkdown {
				_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`)
				return
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	b := newBot(api, &config.Config{}, nil, nil, nil, nil, zap.NewNop())
	require.NoError(t, b.SendText(context.Background(), 42, "*broken"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{tgbotapi.ModeMarkdown, ""}, modes)
}

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0812-3456-7890", "+6281234567890"},
		{"+62 812 3456 7890", "+6281234567890"},
		{"6281234567890", "+6281234567890"},
		{"81234567890", "+6281234567890"},
		{"+1 (555) 010-9999", "+15550109999"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhoneNumber(tt.in), tt.in)
	}
}

func TestSenderID(t *testing.T) {
	msg := &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: 5},
		From:    &tgbotapi.User{ID: 77},
		Contact: &tgbotapi.Contact{PhoneNumber: "0812 1111 2222", UserID: 77},
	}
	assert.Equal(t, "77", senderID(msg))

	msg.From = nil
	assert.Equal(t, "5", senderID(msg))
}

func TestOwnContact(t *testing.T) {
	msg := &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 77},
		Contact: &tgbotapi.Contact{PhoneNumber: "0812 1111 2222", UserID: 77},
	}
	assert.Equal(t, "+6281211112222", ownContact(msg))

	msg.Contact.UserID = 99
	assert.Empty(t, ownContact(msg))

	msg.Contact = nil
	assert.Empty(t, ownContact(msg))
}

// telegramStub answers the Bot API calls the admin commands make and
// records every sendMessage text.
type telegramStub struct {
	mu    sync.Mutex
	texts []string
}

func (s *telegramStub) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func newTelegramStub(t *testing.T) (*tgbotapi.BotAPI, *telegramStub) {
	t.Helper()
	stub := &telegramStub{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			stub.mu.Lock()
			stub.texts = append(stub.texts, r.FormValue("text"))
			stub.mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	return api, stub
}

type fakeArchive struct {
	orders map[string]*storage.Order
	stats  *storage.OrderStatistics
	err    error
}

func (f *fakeArchive) SaveOrder(context.Context, storage.Order) (int64, error) { return 1, f.err }

func (f *fakeArchive) GetOrder(_ context.Context, orderID string) (*storage.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("storage.GetOrder: %w", storage.ErrOrderNotFound)
	}
	return o, nil
}

func (f *fakeArchive) ListOrders(context.Context, time.Time) ([]storage.Order, error) {
	return nil, f.err
}

func (f *fakeArchive) GetOrderStatistics(context.Context, time.Time) (*storage.OrderStatistics, error) {
	return f.stats, f.err
}

type fixedSessions int

func (n fixedSessions) Count() int { return int(n) }

func TestOrderLookupCommand(t *testing.T) {
	api, stub := newTelegramStub(t)
	archive := &fakeArchive{orders: map[string]*storage.Order{
		"ORD-7": {
			OrderID:        "ORD-7",
			InvoiceNumber:  "INV-7",
			CustomerName:   "Budi",
			CustomerNumber: "+6281234567890",
			Total:          6000,
			CreatedAt:      time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
			Items: []storage.OrderItem{
				{Filename: "a.pdf", Color: "bnw", Pages: 6, Copies: 2, Cost: 6000},
			},
		},
	}}
	b := newBot(api, &config.Config{}, nil, archive, nil, nil, zap.NewNop())

	b.handleAdminCommand(context.Background(), 42, "order", " ORD-7 ")
	b.handleAdminCommand(context.Background(), 42, "order", "ORD-404")
	b.handleAdminCommand(context.Background(), 42, "order", "")

	texts := stub.sent()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "Pesanan ORD-7")
	assert.Contains(t, texts[0], "Tanggal: 19 Okt 2026")
	assert.Contains(t, texts[0], "• a.pdf (bnw, 6 hal × 2) Rp6.000")
	assert.Contains(t, texts[0], "Total: Rp6.000")
	assert.Equal(t, "❌ Pesanan ORD-404 tidak ditemukan.", texts[1])
	assert.Contains(t, texts[2], "/order")
}

func TestOrderLookupArchiveFailure(t *testing.T) {
	api, stub := newTelegramStub(t)
	b := newBot(api, &config.Config{}, nil, &fakeArchive{err: errors.New("db down")}, nil, nil, zap.NewNop())

	b.handleAdminCommand(context.Background(), 42, "order", "ORD-1")

	assert.Equal(t, []string{"❌ Gagal mengambil data pesanan."}, stub.sent())
}

func TestStatsCommandShowsActiveSessions(t *testing.T) {
	api, stub := newTelegramStub(t)
	archive := &fakeArchive{stats: &storage.OrderStatistics{TotalOrders: 2, TotalRevenue: 7000}}
	b := newBot(api, &config.Config{}, nil, archive, nil, fixedSessions(3), zap.NewNop())

	b.handleAdminCommand(context.Background(), 42, "stats", "")

	texts := stub.sent()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Total: 2 (Rp7.000)")
	assert.Contains(t, texts[0], "Sesi aktif: 3")
}
