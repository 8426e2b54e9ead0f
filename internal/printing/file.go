package printing

import (
	"regexp"
	"strings"
)

type ColorKind int

const (
	ColorUnset ColorKind = iota
	ColorBlackWhite
	ColorFull
	ColorAuto
	// ColorMixed prints the listed pages black & white and the rest in color.
	ColorMixed
)

// ColorMode is how a file's pages are colored. BWPages is only set for
// ColorMixed and holds a normalized page list.
type ColorMode struct {
	Kind    ColorKind
	BWPages string
}

func BlackWhite() ColorMode { return ColorMode{Kind: ColorBlackWhite} }
func FullColor() ColorMode  { return ColorMode{Kind: ColorFull} }
func AutoDetect() ColorMode { return ColorMode{Kind: ColorAuto} }

func Mixed(bwPages string) ColorMode {
	return ColorMode{Kind: ColorMixed, BWPages: NormalizePageSpec(bwPages)}
}

func (m ColorMode) IsSet() bool { return m.Kind != ColorUnset }

var pagePattern = regexp.MustCompile(`^[\d\s,-]+$`)

// ClassifyColor maps a customer's free-text color answer to a mode.
// Unrecognized text yields an unset mode.
func ClassifyColor(text string) ColorMode {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "warna":
		return FullColor()
	case "hitam":
		return BlackWhite()
	case "auto", "otomatis":
		return AutoDetect()
	}
	if pagePattern.MatchString(text) {
		if spec := NormalizePageSpec(text); spec != "" {
			return Mixed(spec)
		}
	}
	return ColorMode{}
}

type Scale string

const (
	ScaleNone    Scale = ""
	ScaleFit     Scale = "fit"
	ScaleNoScale Scale = "noscale"
	ScaleShrink  Scale = "shrink"
)

func ParseScale(s string) (Scale, bool) {
	switch Scale(strings.ToLower(s)) {
	case ScaleFit:
		return ScaleFit, true
	case ScaleNoScale:
		return ScaleNoScale, true
	case ScaleShrink:
		return ScaleShrink, true
	}
	return ScaleNone, false
}

// FileEntry is one uploaded file plus its print configuration.
type FileEntry struct {
	Filename string
	MIME     string
	Data     []byte

	Color          ColorMode
	TotalPages     int
	PageSelection  string
	EffectivePages int
	Copies         int
	PaperSize      string
	Scale          Scale

	// Price is the per-copy price; nil until the pricing engine has run.
	Price     *int64
	Breakdown *ColorBreakdown

	NeedsEdit bool
	EditNotes string
	Simple    bool
}

// NewFileEntry builds an entry from an upload and its parsed caption.
func NewFileEntry(filename, mime string, data []byte, totalPages int, opts ParsedOptions) *FileEntry {
	f := &FileEntry{
		Filename:  filename,
		MIME:      mime,
		Data:      data,
		Color:     opts.Color,
		Copies:    opts.Copies,
		PaperSize: opts.PaperSize,
		Scale:     opts.Scale,
	}
	if f.Copies < 1 {
		f.Copies = 1
	}
	f.PageSelection = opts.Pages
	f.SetTotalPages(totalPages)
	return f
}

func (f *FileEntry) SetTotalPages(total int) {
	if total < 1 {
		total = 1
	}
	f.TotalPages = total
	f.EffectivePages = CountPages(f.PageSelection, f.TotalPages)
}

func (f *FileEntry) SetPageSelection(selection string) {
	f.PageSelection = NormalizePageSpec(selection)
	f.EffectivePages = CountPages(f.PageSelection, f.TotalPages)
}

func (f *FileEntry) SetPrice(price int64) {
	f.Price = &price
}

// PageNumbers lists the pages that will actually be printed.
func (f *FileEntry) PageNumbers() []int {
	return EffectivePages(f.PageSelection, f.TotalPages)
}
