package flow

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"prinprinan-bot/internal/printing"
)

func (m *Machine) acceptFile(ctx context.Context, chatID int64, s *Session, up *Upload) {
	opts := printing.ParseCaption(up.Caption)

	total, err := m.pages.CountPages(ctx, up.Name, up.MIME, up.Data)
	if err != nil {
		m.logger.Warn("Failed to count pages, assuming one",
			zap.Int64("chat_id", chatID),
			zap.String("file", up.Name),
			zap.Error(err))
		total = 1
	}

	var dropped string
	if opts.Pages != "" && !printing.ValidatePageRange(opts.Pages, total) {
		dropped, opts.Pages = opts.Pages, ""
	}
	if opts.Color.Kind == printing.ColorMixed && !printing.ValidatePageRange(opts.Color.BWPages, total) {
		opts.Color = printing.ColorMode{}
	}

	f := printing.NewFileEntry(up.Name, up.MIME, up.Data, total, opts)
	s.Files = append(s.Files, f)

	m.logger.Info("File received",
		zap.Int64("chat_id", chatID),
		zap.String("file", f.Filename),
		zap.String("mime", f.MIME),
		zap.Int("pages", f.TotalPages),
		zap.Int("files", len(s.Files)))

	if up.Truncated {
		m.logger.Warn("File truncated after retries",
			zap.Int64("chat_id", chatID),
			zap.String("file", up.Name),
			zap.Int("expected", up.Expected),
			zap.Int("received", len(up.Data)))
		m.send(ctx, chatID, msgTruncated)
	}

	m.send(ctx, chatID, receiptText(f, len(s.Files), dropped))
	m.price(ctx, chatID, f)
}

func (m *Machine) handleFilesText(ctx context.Context, chatID int64, s *Session, text string) {
	if !doneWords[strings.ToLower(text)] {
		m.send(ctx, chatID, msgSendFileOrDone)
		return
	}
	if len(s.Files) == 0 {
		m.send(ctx, chatID, msgNoFilesYet)
		return
	}

	m.send(ctx, chatID, msgAllReceived)
	if idx := s.firstUnset(); idx != noActiveFile {
		s.Step = StepConfiguringUnset
		s.ActiveIndex = idx
		m.send(ctx, chatID, askColorText(s, s.Files[idx]))
		return
	}
	m.startFile(ctx, chatID, s, 0)
}

func (m *Machine) handleUnsetColor(ctx context.Context, chatID int64, s *Session, text string) {
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}

	mode := printing.ClassifyColor(text)
	if !mode.IsSet() {
		m.send(ctx, chatID, msgBadColor)
		return
	}
	if mode.Kind == printing.ColorMixed && !printing.ValidatePageRange(mode.BWPages, f.TotalPages) {
		m.send(ctx, chatID, badPagesText(f))
		return
	}

	f.Color = mode
	m.price(ctx, chatID, f)

	if idx := s.firstUnset(); idx != noActiveFile {
		s.ActiveIndex = idx
		m.send(ctx, chatID, askColorText(s, s.Files[idx]))
		return
	}
	m.startFile(ctx, chatID, s, 0)
}

// startFile opens the per-file configuration for Files[i].
func (m *Machine) startFile(ctx context.Context, chatID int64, s *Session, i int) {
	s.ActiveIndex = i
	s.Step = StepAwaitingFileMode
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}
	m.send(ctx, chatID, askModeText(s, f, m.pricing.Prices()))
}

func (m *Machine) handleFileMode(ctx context.Context, chatID int64, s *Session, text string) {
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}

	switch strings.ToLower(text) {
	case "1", "cepat":
		f.Simple = true
		if f.Price == nil {
			m.price(ctx, chatID, f)
		}
		m.advance(ctx, chatID, s)
	case "2", "atur":
		f.Simple = false
		s.Step = StepAwaitingPages
		m.send(ctx, chatID, askPagesText(f))
	default:
		m.send(ctx, chatID, msgBadMode)
	}
}

func (m *Machine) handlePages(ctx context.Context, chatID int64, s *Session, text string) {
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}

	if strings.EqualFold(text, "semua") {
		f.SetPageSelection("")
	} else {
		spec := printing.NormalizePageSpec(text)
		if !printing.ValidatePageRange(spec, f.TotalPages) {
			m.send(ctx, chatID, badPagesText(f))
			return
		}
		f.SetPageSelection(spec)
	}

	m.price(ctx, chatID, f)
	s.Step = StepAwaitingCopies
	m.send(ctx, chatID, askCopiesText(f))
}

func (m *Machine) handleCopies(ctx context.Context, chatID int64, s *Session, text string) {
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}

	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > maxCopies {
		m.send(ctx, chatID, badCopiesText())
		return
	}
	f.Copies = n
	s.Step = StepAwaitingEdit
	m.send(ctx, chatID, askEditText(f))
}

func (m *Machine) handleEdit(ctx context.Context, chatID int64, s *Session, text string) {
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}

	switch strings.ToLower(text) {
	case "edit":
		f.NeedsEdit = true
		s.Step = StepAwaitingNotes
		m.send(ctx, chatID, askNotesText())
	case "tidak", "otomatis", "auto":
		f.NeedsEdit = false
		f.EditNotes = ""
		m.advance(ctx, chatID, s)
	default:
		m.send(ctx, chatID, msgBadEdit)
	}
}

func (m *Machine) handleEditNotes(ctx context.Context, chatID int64, s *Session, text string) {
	f, ok := s.ActiveFile()
	if !ok {
		m.resetCorrupted(ctx, chatID, s)
		return
	}

	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		m.send(ctx, chatID, msgBadNotes)
		return
	case n > maxNoteRunes:
		m.send(ctx, chatID, longNotesText())
		return
	}
	f.EditNotes = text
	m.advance(ctx, chatID, s)
}

// advance moves to the next file, or to the name prompt after the last one.
func (m *Machine) advance(ctx context.Context, chatID int64, s *Session) {
	if next := s.ActiveIndex + 1; next < len(s.Files) {
		m.startFile(ctx, chatID, s, next)
		return
	}
	s.ActiveIndex = noActiveFile
	s.Step = StepAwaitingName
	m.send(ctx, chatID, msgAskName)
}

func (m *Machine) handleName(ctx context.Context, chatID int64, s *Session, text string) {
	if utf8.RuneCountInString(text) < minNameRunes {
		m.send(ctx, chatID, msgBadName)
		return
	}
	s.CustomerName = text
	m.finalize(ctx, chatID, s)
}
