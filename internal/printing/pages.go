package printing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var spacedDash = regexp.MustCompile(`\s*-\s*`)

// NormalizePageSpec collapses whitespace and comma runs into single commas,
// so "1-3 5", "1 - 3, 5" and "1-3, 5" all become "1-3,5".
func NormalizePageSpec(spec string) string {
	spec = spacedDash.ReplaceAllString(spec, "-")
	parts := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return strings.Join(parts, ",")
}

// EffectivePages resolves a page selection against the document size.
// Malformed parts and pages outside [1, total] are dropped; an empty
// selection, or one that resolves to nothing, means every page.
func EffectivePages(selection string, total int) []int {
	if total < 1 {
		total = 1
	}
	pages := resolvePages(selection, total)
	if len(pages) == 0 {
		return allPages(total)
	}
	return pages
}

// resolvePages is EffectivePages without the all-pages fallback.
func resolvePages(selection string, total int) []int {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		start, end, ok := parsePart(part)
		if !ok || start > end {
			continue
		}
		if start < 1 {
			start = 1
		}
		if end > total {
			end = total
		}
		for p := start; p <= end; p++ {
			seen[p] = struct{}{}
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// CountPages is the number of pages EffectivePages would print.
func CountPages(selection string, total int) int {
	return len(EffectivePages(selection, total))
}

// ValidatePageRange is the strict input-time check. Whitespace is ignored;
// anything EffectivePages would silently drop is rejected here.
func ValidatePageRange(selection string, total int) bool {
	spec := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, selection)
	if spec == "" {
		return false
	}

	for _, r := range spec {
		if (r < '0' || r > '9') && r != ',' && r != '-' {
			return false
		}
	}

	for _, part := range strings.Split(spec, ",") {
		if part == "" || strings.Count(part, "-") > 1 {
			return false
		}
		start, end, ok := parsePart(part)
		if !ok || start > end {
			return false
		}
		if start < 1 || end > total {
			return false
		}
	}
	return true
}

// FormatRanges renders sorted page numbers as runs: "1-3, 5, 7-9".
func FormatRanges(pages []int) string {
	if len(pages) == 0 {
		return ""
	}

	var runs []string
	start, prev := pages[0], pages[0]
	flush := func() {
		if start == prev {
			runs = append(runs, strconv.Itoa(start))
		} else {
			runs = append(runs, strconv.Itoa(start)+"-"+strconv.Itoa(prev))
		}
	}

	for _, p := range pages[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()

	return strings.Join(runs, ", ")
}

// parsePart reads "n" or "a-b". Extra hyphens make the part unreadable.
func parsePart(part string) (start, end int, ok bool) {
	from, to, isRange := strings.Cut(part, "-")
	if !isRange {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, false
		}
		return n, n, true
	}

	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" || strings.Contains(to, "-") {
		return 0, 0, false
	}
	s, err := strconv.Atoi(from)
	if err != nil {
		return 0, 0, false
	}
	e, err := strconv.Atoi(to)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}

func allPages(total int) []int {
	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

func containsPage(pages []int, page int) bool {
	i := sort.SearchInts(pages, page)
	return i < len(pages) && pages[i] == page
}
