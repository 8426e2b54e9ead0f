package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prinprinan-bot/internal/printing"
	"prinprinan-bot/pkg/api"
)

const chat int64 = 42

type fakeMessenger struct {
	mu     sync.Mutex
	texts  []string
	images []string
}

func (f *fakeMessenger) SendText(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendImage(_ context.Context, _ int64, name string, _ []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, name)
	return nil
}

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeMessenger) sent(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.texts {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

type fakePages struct{ pages int }

func (f fakePages) CountPages(context.Context, string, string, []byte) (int, error) {
	if f.pages == 0 {
		return 0, errors.New("count failed")
	}
	return f.pages, nil
}

type fakeOrders struct {
	id   string
	err  error
	jobs []api.PrintJob
}

func (f *fakeOrders) CreatePrintJob(_ context.Context, job api.PrintJob) (string, error) {
	f.jobs = append(f.jobs, job)
	return f.id, f.err
}

type fakeRecorder struct{ orders []PlacedOrder }

func (f *fakeRecorder) OrderPlaced(_ context.Context, o PlacedOrder) {
	f.orders = append(f.orders, o)
}

type harness struct {
	m        *Machine
	store    *MemoryStore
	msgs     *fakeMessenger
	orders   *fakeOrders
	recorder *fakeRecorder
}

type fakeDetector struct {
	report *api.ColorReport
	err    error
}

func (f fakeDetector) DetectColors(context.Context, string, []byte) (*api.ColorReport, error) {
	return f.report, f.err
}

func newHarness(t *testing.T, pages int) *harness {
	t.Helper()
	return newHarnessWith(t, pages, nil, 0)
}

func newHarnessWith(t *testing.T, pages int, detector printing.ColorDetector, greetingTTL time.Duration) *harness {
	t.Helper()
	table, err := printing.NewTable(printing.Prices{BlackWhite: 500, Color: 1000, FullColor: 1500})
	require.NoError(t, err)

	h := &harness{
		store:    NewMemoryStore(time.Hour),
		msgs:     &fakeMessenger{},
		orders:   &fakeOrders{id: "ORD-1"},
		recorder: &fakeRecorder{},
	}
	h.m, err = New(Deps{
		Store:     h.store,
		Messenger: h.msgs,
		Pricing:   printing.NewEngine(table, detector, false),
		Pages:     fakePages{pages: pages},
		Orders:    h.orders,
		Codes:     func(string) ([]byte, error) { return []byte("png"), nil },
		Recorder:  h.recorder,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return time.UnixMilli(1760860800000) },

		GreetingTTL: greetingTTL,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) text(s string) {
	h.m.Handle(context.Background(), Event{ChatID: chat, Sender: "628123", Text: s})
}

func (h *harness) file(name, caption string) {
	h.m.Handle(context.Background(), Event{ChatID: chat, Sender: "628123", File: &Upload{
		Name: name, MIME: "application/pdf", Data: []byte("%PDF"), Caption: caption,
	}})
}

func (h *harness) contact(number string) {
	h.m.Handle(context.Background(), Event{ChatID: chat, Sender: "628123", Contact: number})
}

func (h *harness) session(t *testing.T) *Session {
	t.Helper()
	s, ok := h.store.Get(chat)
	require.True(t, ok, "expected an active session")
	return s
}

func TestGreetingSentOnce(t *testing.T) {
	h := newHarness(t, 3)

	h.text("halo")
	h.text("halo lagi")

	assert.Len(t, h.msgs.texts, 1)
	assert.Contains(t, h.msgs.texts[0], "!print")
	_, ok := h.store.Get(chat)
	assert.False(t, ok)
}

func TestCancel(t *testing.T) {
	h := newHarness(t, 3)

	h.text("batal")
	assert.Equal(t, msgNoSession, h.msgs.last())

	h.text("!print")
	h.file("a.pdf", "hitam")
	h.text("0")

	assert.Equal(t, msgCancelled, h.msgs.last())
	_, ok := h.store.Get(chat)
	assert.False(t, ok)

	h.text("/start")
	s := h.session(t)
	assert.Empty(t, s.Files)
	assert.Equal(t, StepAwaitingFiles, s.Step)
}

func TestDoneWithoutFiles(t *testing.T) {
	h := newHarness(t, 3)
	h.text("!p")
	h.text("selesai")

	assert.Equal(t, msgNoFilesYet, h.msgs.last())
	assert.Equal(t, StepAwaitingFiles, h.session(t).Step)
}

func TestFileStartsSession(t *testing.T) {
	h := newHarness(t, 10)
	h.file("a.pdf", "hitam copies=2 pages=1-3")

	s := h.session(t)
	require.Len(t, s.Files, 1)
	f := s.Files[0]
	assert.Equal(t, printing.BlackWhite(), f.Color)
	assert.Equal(t, 3, f.EffectivePages)
	assert.Equal(t, 2, f.Copies)
	require.NotNil(t, f.Price)
	assert.Equal(t, int64(1500), *f.Price)
	assert.Equal(t, "628123", s.CustomerNumber)
	assert.True(t, h.msgs.sent("Total: *1 file.*"))
}

func TestCaptionPagesOutOfRangeDropped(t *testing.T) {
	h := newHarness(t, 3)
	h.file("a.pdf", "warna pages=2-9")

	f := h.session(t).Files[0]
	assert.Empty(t, f.PageSelection)
	assert.Equal(t, 3, f.EffectivePages)
	assert.True(t, h.msgs.sent("`2-9` tidak valid"))
}

func TestPageCountFailureAssumesOnePage(t *testing.T) {
	h := newHarness(t, 0)
	h.file("a.pdf", "")
	assert.Equal(t, 1, h.session(t).Files[0].TotalPages)
}

func TestFilesRejectedOutsideIntake(t *testing.T) {
	h := newHarness(t, 2)
	h.file("a.pdf", "hitam")
	h.text("2")
	h.file("b.pdf", "hitam")

	assert.Equal(t, msgFilesClosed, h.msgs.last())
	assert.Len(t, h.session(t).Files, 1)
}

func TestFullOrder(t *testing.T) {
	h := newHarness(t, 10)

	h.text("!print")
	h.file("skripsi.pdf", "hitam")
	h.file("poster.pdf", "")
	h.text("2")

	s := h.session(t)
	assert.Equal(t, StepConfiguringUnset, s.Step)
	assert.Equal(t, 1, s.ActiveIndex)

	h.text("ungu")
	assert.Equal(t, msgBadColor, h.msgs.last())

	h.text("1-4")
	assert.Equal(t, StepAwaitingFileMode, s.Step)
	assert.Equal(t, 0, s.ActiveIndex)

	// First file: advanced settings.
	h.text("atur")
	assert.Equal(t, StepAwaitingPages, s.Step)
	h.text("5-2")
	assert.Equal(t, StepAwaitingPages, s.Step)
	h.text("1-5")
	assert.Equal(t, StepAwaitingCopies, s.Step)
	h.text("0")
	assert.Equal(t, msgCancelled, h.msgs.last())

	// Cancel wiped it; start over with a single file.
	h.file("skripsi.pdf", "hitam")
	h.text("lanjut")
	s = h.session(t)
	h.text("2")
	h.text("semua")
	h.text("1000")
	assert.Equal(t, StepAwaitingCopies, s.Step)
	h.text("2")
	assert.Equal(t, StepAwaitingEdit, s.Step)
	h.text("edit")
	assert.Equal(t, StepAwaitingNotes, s.Step)
	h.text(strings.Repeat("x", 501))
	assert.Equal(t, StepAwaitingNotes, s.Step)
	h.text("tolong rapikan margin")
	assert.Equal(t, StepAwaitingName, s.Step)

	h.text("B")
	assert.Equal(t, msgBadName, h.msgs.last())
	h.text("Budi")

	_, ok := h.store.Get(chat)
	assert.False(t, ok)

	assert.True(t, h.msgs.sent(msgProcessing))
	assert.True(t, h.msgs.sent("Nomor Invoice: *INV-1760860800000*"))
	assert.True(t, h.msgs.sent("*TOTAL BIAYA: Rp10.000*"))
	assert.Equal(t, []string{"order-ORD-1.png"}, h.msgs.images)

	require.Len(t, h.orders.jobs, 1)
	job := h.orders.jobs[0]
	assert.Equal(t, "Budi", job.CustomerName)
	assert.Equal(t, "628123", job.CustomerNumber)
	require.Len(t, job.Items, 1)
	assert.Equal(t, "bnw", job.Items[0].Color)
	assert.Equal(t, 2, job.Items[0].Copies)
	assert.Equal(t, int64(10000), job.Items[0].Price)
	assert.True(t, job.Items[0].NeedsEdit)
	assert.Equal(t, "tolong rapikan margin", job.Items[0].EditNotes)

	require.Len(t, h.recorder.orders, 1)
	assert.Equal(t, "ORD-1", h.recorder.orders[0].OrderID)
	assert.Equal(t, int64(10000), h.recorder.orders[0].Total)
}

func TestMixedFileSendsBWPages(t *testing.T) {
	h := newHarness(t, 4)
	h.file("a.pdf", "1-2")
	h.text("2")
	h.text("cepat")
	h.text("Sari")

	require.Len(t, h.orders.jobs, 1)
	item := h.orders.jobs[0].Items[0]
	assert.Equal(t, "black_and_white", item.Color)
	assert.Equal(t, "1-2", item.BWPages)
	assert.Equal(t, int64(3000), item.Price)
}

func TestOrderFailureStillEndsSession(t *testing.T) {
	h := newHarness(t, 1)
	h.orders.err = errors.New("backend down")

	h.file("a.pdf", "warna")
	h.text("done")
	h.text("1")
	h.text("Andi")

	assert.Equal(t, msgOrderFailed, h.msgs.last())
	assert.Empty(t, h.msgs.images)
	assert.Empty(t, h.recorder.orders)
	_, ok := h.store.Get(chat)
	assert.False(t, ok)
}

func TestCorruptedCursorResets(t *testing.T) {
	h := newHarness(t, 1)
	h.file("a.pdf", "hitam")
	s := h.session(t)
	s.Step = StepAwaitingCopies
	s.ActiveIndex = 7

	h.text("3")

	assert.Equal(t, msgCorrupted, h.msgs.last())
	assert.Equal(t, StepAwaitingFiles, s.Step)
	assert.Equal(t, noActiveFile, s.ActiveIndex)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestGreetingRepeatsAfterExpiry(t *testing.T) {
	h := newHarnessWith(t, 1, nil, 20*time.Millisecond)

	h.text("halo")
	h.text("halo")
	require.Len(t, h.msgs.texts, 1)

	time.Sleep(50 * time.Millisecond)
	h.text("halo")
	assert.Len(t, h.msgs.texts, 2)
	assert.Equal(t, msgGreeting, h.msgs.last())
}

func TestWelcomeListsChargedRates(t *testing.T) {
	h := newHarness(t, 1)
	h.text("!print")

	welcome := h.msgs.last()
	assert.Contains(t, welcome, "Hitam Putih: *Rp500*")
	assert.Contains(t, welcome, "Warna: *Rp1.000*")
	assert.NotContains(t, welcome, "Rp1.500")
}

func TestAutoCaptionDetectionFailure(t *testing.T) {
	h := newHarnessWith(t, 5, fakeDetector{err: errors.New("detector down")}, 0)
	h.file("a.pdf", "auto")

	assert.True(t, h.msgs.sent("Sedang mendeteksi warna dan harga untuk file: *a.pdf*"))
	assert.Equal(t, msgDetectionFailed, h.msgs.last())

	f := h.session(t).Files[0]
	require.NotNil(t, f.Price)
	assert.Equal(t, int64(5000), *f.Price)
}

func TestAutoCaptionDetectionResult(t *testing.T) {
	report := &api.ColorReport{
		TotalPages: 3,
		Pages: []api.PageColor{
			{Page: 1, Color: api.PageBlackWhite, Price: 500},
			{Page: 2, Color: api.PageColored, Price: 1000},
			{Page: 3, Color: api.PageFullColor, Price: 1500},
		},
	}
	h := newHarnessWith(t, 3, fakeDetector{report: report}, 0)
	h.file("a.pdf", "auto")

	result := h.msgs.last()
	assert.Contains(t, result, "Deteksi warna `a.pdf` selesai")
	assert.Contains(t, result, "Hitam Putih: *1* halaman")
	assert.Contains(t, result, "Full Color: *1* halaman")
	assert.Contains(t, result, "Estimasi biaya: *Rp3.000* per salinan")

	f := h.session(t).Files[0]
	require.NotNil(t, f.Price)
	assert.Equal(t, int64(3000), *f.Price)
}

func TestPagesStepAcceptsSpacedRange(t *testing.T) {
	h := newHarness(t, 10)
	h.file("a.pdf", "hitam")
	h.text("2")
	h.text("atur")

	h.text("1 - 5")

	s := h.session(t)
	assert.Equal(t, StepAwaitingCopies, s.Step)
	assert.Equal(t, "1-5", s.Files[0].PageSelection)
	assert.Equal(t, 5, s.Files[0].EffectivePages)
}

func TestMixedAnswerAcceptsSpacedRange(t *testing.T) {
	h := newHarness(t, 6)
	h.file("a.pdf", "")
	h.text("2")

	h.text("1 -3")

	s := h.session(t)
	assert.Equal(t, StepAwaitingFileMode, s.Step)
	assert.Equal(t, printing.Mixed("1-3"), s.Files[0].Color)
}

func TestSharedContactBecomesCustomerNumber(t *testing.T) {
	h := newHarness(t, 2)
	h.file("a.pdf", "hitam")
	h.contact("+6281234567890")

	s := h.session(t)
	assert.Equal(t, "+6281234567890", s.CustomerNumber)
	assert.Equal(t, StepAwaitingFiles, s.Step)
	assert.Len(t, s.Files, 1)

	h.text("2")
	h.text("1")
	h.text("Rina")

	require.Len(t, h.orders.jobs, 1)
	assert.Equal(t, "+6281234567890", h.orders.jobs[0].CustomerNumber)
}

func TestMemoryStoreCount(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	store.Set(1, NewSession("a"))
	store.Set(2, NewSession("b"))
	store.Set(2, NewSession("b"))
	assert.Equal(t, 2, store.Count())

	store.Delete(1)
	assert.Equal(t, 1, store.Count())
}
