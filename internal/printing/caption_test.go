package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaption(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    ParsedOptions
	}{
		{
			name:    "color with options",
			caption: "hitam copies=3 pages=1-3",
			want:    ParsedOptions{Color: BlackWhite(), Copies: 3, Pages: "1-3"},
		},
		{
			name:    "paper and scale",
			caption: "warna paper=a4 scale=FIT",
			want:    ParsedOptions{Color: FullColor(), PaperSize: "A4", Scale: ScaleFit},
		},
		{
			name:    "auto detection",
			caption: "Otomatis",
			want:    ParsedOptions{Color: AutoDetect()},
		},
		{
			name:    "bare range is mixed mode",
			caption: "1-5",
			want:    ParsedOptions{Color: Mixed("1-5")},
		},
		{
			name:    "invalid values ignored",
			caption: "copies=0 scale=huge copies=abc",
			want:    ParsedOptions{},
		},
		{
			name:    "unknown words leave color unset",
			caption: "tolong dicetak",
			want:    ParsedOptions{},
		},
		{
			name:    "empty",
			caption: "",
			want:    ParsedOptions{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCaption(tt.caption))
		})
	}
}

func TestClassifyColor(t *testing.T) {
	assert.Equal(t, FullColor(), ClassifyColor(" WARNA "))
	assert.Equal(t, BlackWhite(), ClassifyColor("hitam"))
	assert.Equal(t, AutoDetect(), ClassifyColor("auto"))
	assert.Equal(t, Mixed("1-3,5"), ClassifyColor("1-3, 5"))
	assert.Equal(t, Mixed("1-3"), ClassifyColor("1 - 3"))
	assert.False(t, ClassifyColor("biru").IsSet())
}

func TestNewFileEntry(t *testing.T) {
	opts := ParseCaption("hitam pages=2-3 copies=2")
	f := NewFileEntry("a.pdf", "application/pdf", []byte("x"), 5, opts)

	require.NotNil(t, f)
	assert.Equal(t, 5, f.TotalPages)
	assert.Equal(t, 2, f.EffectivePages)
	assert.Equal(t, 2, f.Copies)
	assert.Nil(t, f.Price)

	f.SetPageSelection("")
	assert.Equal(t, 5, f.EffectivePages)

	f.SetTotalPages(0)
	assert.Equal(t, 1, f.TotalPages)
	assert.Equal(t, 1, f.EffectivePages)
}

func TestNewFileEntryDefaultsToOneCopy(t *testing.T) {
	f := NewFileEntry("a.png", "image/png", nil, 1, ParsedOptions{})
	assert.Equal(t, 1, f.Copies)
	assert.False(t, f.Color.IsSet())
}
