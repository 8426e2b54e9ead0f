package printing

import (
	"strconv"
	"strings"
)

// ParsedOptions is what a file caption can preset. Zero values mean the
// caption said nothing about that option.
type ParsedOptions struct {
	Color     ColorMode
	Copies    int
	PaperSize string
	Scale     Scale
	Pages     string
}

// ParseCaption reads a caption like "hitam copies=3 pages=1-3 paper=a4".
// key=value tokens set options; the remaining words are classified as a
// color answer. Invalid values are ignored, never reported.
func ParseCaption(caption string) ParsedOptions {
	var opts ParsedOptions
	var words []string

	for _, token := range strings.Fields(caption) {
		key, value, isOption := strings.Cut(token, "=")
		if !isOption {
			words = append(words, token)
			continue
		}

		switch strings.ToLower(key) {
		case "copies":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				opts.Copies = n
			}
		case "paper", "papersize":
			opts.PaperSize = strings.ToUpper(value)
		case "scale":
			if s, ok := ParseScale(value); ok {
				opts.Scale = s
			}
		case "pages":
			opts.Pages = NormalizePageSpec(value)
		}
	}

	if len(words) > 0 {
		opts.Color = ClassifyColor(strings.Join(words, " "))
	}
	return opts
}
