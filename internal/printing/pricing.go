package printing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"prinprinan-bot/pkg/api"
)

var (
	ErrInvalidPrices = errors.New("invalid prices")
	ErrColorUnset    = errors.New("color mode is not set")
)

// Prices are per-page rates in whole rupiah.
type Prices struct {
	BlackWhite int64 `json:"bnw"`
	Color      int64 `json:"color"`
	FullColor  int64 `json:"full_color"`
}

func (p Prices) Validate() error {
	if p.BlackWhite <= 0 || p.Color <= 0 || p.FullColor <= 0 {
		return fmt.Errorf("%w: bnw=%d color=%d full_color=%d",
			ErrInvalidPrices, p.BlackWhite, p.Color, p.FullColor)
	}
	return nil
}

// Table is the process-wide price list. It only ever holds positive rates.
type Table struct {
	mu     sync.RWMutex
	prices Prices
}

func NewTable(initial Prices) (*Table, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Table{prices: initial}, nil
}

func (t *Table) Snapshot() Prices {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prices
}

// Update swaps in a new price list. A rejected update leaves the table as it was.
func (t *Table) Update(p Prices) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.prices = p
	t.mu.Unlock()
	return nil
}

// ColorDetector is the external per-page color classification service.
type ColorDetector interface {
	DetectColors(ctx context.Context, filename string, data []byte) (*api.ColorReport, error)
}

// ColorBreakdown is the detection result restricted to the printed pages.
type ColorBreakdown struct {
	BlackWhite []int
	Color      []int
	FullColor  []int
	Price      int64
}

// Quote is the outcome of one pricing run.
type Quote struct {
	Price           int64
	Breakdown       *ColorBreakdown
	DetectionFailed bool
	Err             error
}

type Engine struct {
	table           *Table
	detector        ColorDetector
	detectFullColor bool
}

func NewEngine(table *Table, detector ColorDetector, detectFullColor bool) *Engine {
	return &Engine{
		table:           table,
		detector:        detector,
		detectFullColor: detectFullColor,
	}
}

func (e *Engine) Prices() Prices {
	return e.table.Snapshot()
}

// NeedsDetection reports whether pricing f will call the color detector.
func (e *Engine) NeedsDetection(f *FileEntry) bool {
	if e.detector == nil {
		return false
	}
	switch f.Color.Kind {
	case ColorAuto:
		return true
	case ColorFull:
		return e.detectFullColor
	}
	return false
}

// Price computes the per-copy price of f and stores it on the entry. When
// the detector reports a different page count, the entry is updated first.
func (e *Engine) Price(ctx context.Context, f *FileEntry) Quote {
	prices := e.table.Snapshot()
	var q Quote

	switch f.Color.Kind {
	case ColorUnset:
		return Quote{Err: ErrColorUnset}

	case ColorFull, ColorAuto:
		if !e.NeedsDetection(f) {
			q.Price = int64(f.EffectivePages) * prices.Color
			break
		}
		report, err := e.detector.DetectColors(ctx, f.Filename, f.Data)
		if err != nil {
			q.Price = int64(f.EffectivePages) * prices.Color
			q.DetectionFailed = true
			q.Err = err
			break
		}
		if report.TotalPages > 0 && report.TotalPages != f.TotalPages {
			f.SetTotalPages(report.TotalPages)
		}
		breakdown := classify(report.Pages, f.PageNumbers())
		q.Price = breakdown.Price
		q.Breakdown = &breakdown

	case ColorBlackWhite:
		q.Price = int64(f.EffectivePages) * prices.BlackWhite

	case ColorMixed:
		bw := resolvePages(f.Color.BWPages, f.TotalPages)
		var numBW int64
		pages := f.PageNumbers()
		for _, p := range pages {
			if containsPage(bw, p) {
				numBW++
			}
		}
		numColor := int64(len(pages)) - numBW
		q.Price = numBW*prices.BlackWhite + numColor*prices.Color
	}

	f.SetPrice(q.Price)
	f.Breakdown = q.Breakdown
	return q
}

func classify(detected []api.PageColor, printed []int) ColorBreakdown {
	var b ColorBreakdown
	var total float64
	for _, pc := range detected {
		if !containsPage(printed, pc.Page) {
			continue
		}
		total += pc.Price
		switch pc.Color {
		case api.PageBlackWhite:
			b.BlackWhite = append(b.BlackWhite, pc.Page)
		case api.PageFullColor:
			b.FullColor = append(b.FullColor, pc.Page)
		default:
			b.Color = append(b.Color, pc.Page)
		}
	}
	b.Price = int64(math.Round(total))
	return b
}

// FlatPrice is the per-copy price used when no engine run is recorded.
func FlatPrice(f *FileEntry, p Prices) int64 {
	rate := p.BlackWhite
	if f.Color.Kind == ColorFull || f.Color.Kind == ColorAuto {
		rate = p.Color
	}
	return int64(f.EffectivePages) * rate
}

// FinalCost is what the customer pays for f, all copies included.
func FinalCost(f *FileEntry, p Prices) int64 {
	unit := FlatPrice(f, p)
	if f.Price != nil {
		unit = *f.Price
	}
	copies := f.Copies
	if copies < 1 {
		copies = 1
	}
	return unit * int64(copies)
}
