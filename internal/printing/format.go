package printing

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount the way id-ID does: Rp10.000.
func FormatRupiah(amount int64) string {
	return "Rp" + idPrinter.Sprintf("%d", amount)
}

var idMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// FormatDate renders a short Indonesian date: 19 Okt 2026.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), idMonths[t.Month()-1], t.Year())
}

func ColorLabel(m ColorMode) string {
	switch m.Kind {
	case ColorFull:
		return "Full Color 🌈"
	case ColorBlackWhite:
		return "Full Hitam Putih ⬛⬜"
	case ColorAuto:
		return "Deteksi Otomatis 🤖"
	case ColorMixed:
		return fmt.Sprintf("Kustom (Halaman Hitam Putih: %s) 📄", m.BWPages)
	}
	return "Belum Diatur ⚠️"
}

// APIValue maps a color mode to the print-job backend vocabulary.
func (m ColorMode) APIValue() string {
	switch m.Kind {
	case ColorFull:
		return "color"
	case ColorAuto:
		return "auto"
	case ColorMixed:
		return "black_and_white"
	}
	return "bnw"
}

func FileTypeLabel(mime string) string {
	switch mime {
	case "application/pdf":
		return "Dokumen PDF 📄"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "Dokumen DOCX 📄"
	case "image/jpeg":
		return "Gambar JPEG 🖼️"
	case "image/png":
		return "Gambar PNG 🖼️"
	case "image/tiff":
		return "Gambar TIFF 🖼️"
	}
	return "File 📁"
}

// IsDocument reports whether a file can hold more than one page worth
// choosing ranges from.
func IsDocument(mime string) bool {
	switch mime {
	case "application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword":
		return true
	}
	return false
}
