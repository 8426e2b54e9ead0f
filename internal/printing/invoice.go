package printing

import (
	"fmt"
	"strings"
	"time"
)

type Invoice struct {
	Number       string
	CustomerName string
	Date         time.Time
	Files        []*FileEntry
	Prices       Prices
}

const invoiceRule = "-----------------------------------"

// Total sums the final cost of every file.
func (inv Invoice) Total() int64 {
	var total int64
	for _, f := range inv.Files {
		total += FinalCost(f, inv.Prices)
	}
	return total
}

// RenderInvoice formats the order summary sent before submission.
func RenderInvoice(inv Invoice) string {
	name := inv.CustomerName
	if name == "" {
		name = "Pelanggan"
	}

	items := make([]string, 0, len(inv.Files))
	for i, f := range inv.Files {
		lines := []string{
			fmt.Sprintf("Pengaturan: *%s*", ColorLabel(f.Color)),
			fmt.Sprintf("Halaman: *%d* (Total: %d)", f.EffectivePages, f.TotalPages),
		}
		if f.PageSelection != "" {
			lines = append(lines, fmt.Sprintf("Halaman Dicetak: *%s*", FormatRanges(f.PageNumbers())))
		}
		lines = append(lines, fmt.Sprintf("Salinan: *%d*", f.Copies))
		if f.PaperSize != "" {
			lines = append(lines, fmt.Sprintf("Kertas: *%s*", f.PaperSize))
		}
		if f.Scale != ScaleNone {
			lines = append(lines, fmt.Sprintf("Skala: *%s*", f.Scale))
		}
		if f.NeedsEdit {
			lines = append(lines, "Request Edit: *Ya*")
		}

		items = append(items, fmt.Sprintf("%d. `%s`\n   - %s\n   - Biaya: *%s*",
			i+1, f.Filename, strings.Join(lines, "\n   - "), FormatRupiah(FinalCost(f, inv.Prices))))
	}

	var b strings.Builder
	b.WriteString("🧾 *INVOICE PESANAN ANDA*\n\n")
	fmt.Fprintf(&b, "Nomor Invoice: *%s*\n", inv.Number)
	fmt.Fprintf(&b, "Nama Pemesan: *%s*\n", name)
	fmt.Fprintf(&b, "Tanggal: *%s*\n", FormatDate(inv.Date))
	b.WriteString(invoiceRule + "\n")
	b.WriteString(strings.Join(items, "\n\n"))
	b.WriteString("\n" + invoiceRule + "\n")
	fmt.Fprintf(&b, "*TOTAL BIAYA: %s*", FormatRupiah(inv.Total()))
	return b.String()
}
