package flow

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"prinprinan-bot/internal/printing"
)

type Step string

const (
	StepAwaitingFiles    Step = "AWAITING_FILES"
	StepConfiguringUnset Step = "CONFIGURING_UNSET_FILES"
	StepAwaitingFileMode Step = "AWAITING_FILE_MODE"
	StepAwaitingPages    Step = "AWAITING_PAGES"
	StepAwaitingCopies   Step = "AWAITING_COPIES"
	StepAwaitingEdit     Step = "AWAITING_EDIT"
	StepAwaitingNotes    Step = "AWAITING_EDIT_NOTES"
	StepAwaitingName     Step = "AWAITING_NAME"
)

const noActiveFile = -1

// Session is one in-progress order for a conversation.
type Session struct {
	Step           Step
	Files          []*printing.FileEntry
	CustomerName   string
	CustomerNumber string
	ActiveIndex    int
}

func NewSession(customerNumber string) *Session {
	return &Session{
		Step:           StepAwaitingFiles,
		CustomerNumber: customerNumber,
		ActiveIndex:    noActiveFile,
	}
}

// ActiveFile returns the file under the cursor. ok is false when the cursor
// does not point into Files.
func (s *Session) ActiveFile() (*printing.FileEntry, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Files) {
		return nil, false
	}
	return s.Files[s.ActiveIndex], true
}

func (s *Session) firstUnset() int {
	for i, f := range s.Files {
		if !f.Color.IsSet() {
			return i
		}
	}
	return noActiveFile
}

// Store holds sessions by conversation id.
type Store interface {
	Get(chatID int64) (*Session, bool)
	Set(chatID int64, s *Session)
	Delete(chatID int64)
}

// MemoryStore keeps sessions in process memory. Sessions untouched for
// idleTTL are evicted; nothing survives a restart.
type MemoryStore struct {
	cache *cache.Cache
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	if idleTTL <= 0 {
		return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &MemoryStore{cache: cache.New(idleTTL, 10*time.Minute)}
}

func (m *MemoryStore) Get(chatID int64) (*Session, bool) {
	if x, found := m.cache.Get(sessionKey(chatID)); found {
		return x.(*Session), true
	}
	return nil, false
}

func (m *MemoryStore) Set(chatID int64, s *Session) {
	m.cache.Set(sessionKey(chatID), s, cache.DefaultExpiration)
}

func (m *MemoryStore) Delete(chatID int64) {
	m.cache.Delete(sessionKey(chatID))
}

func (m *MemoryStore) Count() int {
	return m.cache.ItemCount()
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
