package flow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"prinprinan-bot/internal/printing"
)

const (
	maxCopies    = 999
	maxNoteRunes = 500
	minNameRunes = 2

	defaultGreetingTTL = 24 * time.Hour
)

var (
	cancelWords = map[string]bool{"0": true, "batal": true, "/cancel": true}
	startWords  = map[string]bool{"!print": true, "!p": true, "/print": true, "/start": true}
	doneWords   = map[string]bool{"2": true, "selesai": true, "done": true, "lanjut": true}
)

type Deps struct {
	Store     Store
	Messenger Messenger
	Pricing   *printing.Engine
	Pages     PageCounter
	Orders    OrderCreator
	Codes     CodeRenderer
	// Recorder is optional.
	Recorder OrderRecorder
	Logger   *zap.Logger
	Now      func() time.Time
	// GreetingTTL is how long a chat stays greeted. Defaults to a day.
	GreetingTTL time.Duration
}

// Machine drives every conversation through the order steps. It assumes
// events for one chat arrive one at a time.
type Machine struct {
	store     Store
	messenger Messenger
	pricing   *printing.Engine
	pages     PageCounter
	orders    OrderCreator
	codes     CodeRenderer
	recorder  OrderRecorder
	logger    *zap.Logger
	now       func() time.Time

	greeted  *cache.Cache
	handlers map[Step]func(context.Context, int64, *Session, string)
}

func New(d Deps) (*Machine, error) {
	if d.Store == nil || d.Messenger == nil || d.Pricing == nil || d.Pages == nil || d.Orders == nil || d.Codes == nil {
		return nil, errors.New("flow: missing dependency")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.GreetingTTL <= 0 {
		d.GreetingTTL = defaultGreetingTTL
	}

	m := &Machine{
		store:     d.Store,
		messenger: d.Messenger,
		pricing:   d.Pricing,
		pages:     d.Pages,
		orders:    d.Orders,
		codes:     d.Codes,
		recorder:  d.Recorder,
		logger:    d.Logger,
		now:       d.Now,
		greeted:   cache.New(d.GreetingTTL, d.GreetingTTL),
	}
	m.registerHandlers()
	return m, nil
}

func (m *Machine) registerHandlers() {
	m.handlers = map[Step]func(context.Context, int64, *Session, string){
		StepAwaitingFiles:    m.handleFilesText,
		StepConfiguringUnset: m.handleUnsetColor,
		StepAwaitingFileMode: m.handleFileMode,
		StepAwaitingPages:    m.handlePages,
		StepAwaitingCopies:   m.handleCopies,
		StepAwaitingEdit:     m.handleEdit,
		StepAwaitingNotes:    m.handleEditNotes,
		StepAwaitingName:     m.handleName,
	}
}

// Handle processes one inbound event to completion.
func (m *Machine) Handle(ctx context.Context, ev Event) {
	chatID := ev.ChatID
	text := strings.TrimSpace(ev.Text)
	lower := strings.ToLower(text)

	if ev.File == nil && cancelWords[lower] {
		m.cancel(ctx, chatID)
		return
	}

	s, ok := m.store.Get(chatID)
	if !ok {
		m.handleIdle(ctx, ev, lower)
		return
	}

	m.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("step", string(s.Step)),
		zap.Bool("has_file", ev.File != nil))

	switch {
	case ev.Contact != "":
		s.CustomerNumber = ev.Contact
		m.logger.Info("Customer number updated", zap.Int64("chat_id", chatID))
		m.send(ctx, chatID, contactSavedText(ev.Contact))
	case ev.File != nil && s.Step == StepAwaitingFiles:
		m.acceptFile(ctx, chatID, s, ev.File)
	case ev.File != nil:
		m.send(ctx, chatID, msgFilesClosed)
	default:
		handler, exists := m.handlers[s.Step]
		if !exists {
			m.logger.Error("Unknown session step",
				zap.Int64("chat_id", chatID),
				zap.String("step", string(s.Step)))
			m.resetCorrupted(ctx, chatID, s)
			break
		}
		handler(ctx, chatID, s, text)
	}

	// Finalization and cancellation remove the session; anything else is
	// written back to refresh its idle timer.
	if _, still := m.store.Get(chatID); still {
		m.store.Set(chatID, s)
	}
}

func (m *Machine) handleIdle(ctx context.Context, ev Event, lower string) {
	chatID := ev.ChatID

	if ev.File != nil {
		s := NewSession(ev.Sender)
		m.store.Set(chatID, s)
		m.logger.Info("Session started", zap.Int64("chat_id", chatID), zap.String("trigger", "file"))
		m.acceptFile(ctx, chatID, s, ev.File)
		m.store.Set(chatID, s)
		return
	}

	if startWords[lower] {
		m.store.Set(chatID, NewSession(ev.Sender))
		m.logger.Info("Session started", zap.Int64("chat_id", chatID), zap.String("trigger", "command"))
		m.send(ctx, chatID, welcomeText(m.pricing.Prices()))
		return
	}

	// Add fails while the chat is still marked as greeted.
	if err := m.greeted.Add(strconv.FormatInt(chatID, 10), struct{}{}, cache.DefaultExpiration); err == nil {
		m.send(ctx, chatID, msgGreeting)
	}
}

func (m *Machine) cancel(ctx context.Context, chatID int64) {
	if _, ok := m.store.Get(chatID); !ok {
		m.send(ctx, chatID, msgNoSession)
		return
	}
	m.store.Delete(chatID)
	m.logger.Info("Session cancelled", zap.Int64("chat_id", chatID))
	m.send(ctx, chatID, msgCancelled)
}

// resetCorrupted recovers a session whose cursor no longer points at a file.
func (m *Machine) resetCorrupted(ctx context.Context, chatID int64, s *Session) {
	m.logger.Warn("Session cursor out of range, resetting",
		zap.Int64("chat_id", chatID),
		zap.String("step", string(s.Step)),
		zap.Int("active_index", s.ActiveIndex),
		zap.Int("files", len(s.Files)))
	s.Step = StepAwaitingFiles
	s.ActiveIndex = noActiveFile
	m.send(ctx, chatID, msgCorrupted)
}

// price runs the pricing engine on f and tells the customer about
// detection progress and results.
func (m *Machine) price(ctx context.Context, chatID int64, f *printing.FileEntry) {
	if m.pricing.NeedsDetection(f) {
		m.send(ctx, chatID, detectingText(f))
	}

	q := m.pricing.Price(ctx, f)
	switch {
	case errors.Is(q.Err, printing.ErrColorUnset):
		return
	case q.DetectionFailed:
		m.logger.Warn("Failed to detect colors",
			zap.Int64("chat_id", chatID),
			zap.String("file", f.Filename),
			zap.Error(q.Err))
		m.send(ctx, chatID, msgDetectionFailed)
	case q.Breakdown != nil:
		m.send(ctx, chatID, detectionResultText(f, q.Breakdown))
	}
}

func (m *Machine) send(ctx context.Context, chatID int64, text string) {
	if err := m.messenger.SendText(ctx, chatID, text); err != nil {
		m.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
