package flow

import (
	"fmt"
	"strings"

	"prinprinan-bot/internal/printing"
)

const exitHint = "🔚 Ketik *0* untuk keluar atau mulai ulang."

const (
	msgGreeting = "Halo, terima kasih sudah menghubungi *PrinPrinan* 👋\n" +
		"Ada yang bisa kami bantu hari ini? 😊\n\n" +
		"Untuk memulai Self-Service Printing, ketik *!print* atau langsung kirim file ya 🖨️."
	msgCancelled       = "❌ Sesi dibatalkan. Data dihapus.\n\nKetik *!print* untuk memulai lagi."
	msgNoSession       = "✅ Tidak ada sesi aktif."
	msgNoFilesYet      = "⚠️ Belum ada file yang diterima. Silakan kirim file terlebih dahulu.\n\n" + exitHint
	msgSendFileOrDone  = "👉 Silakan kirim file lain.\n👉 Ketik *2* jika selesai.\n\n" + exitHint
	msgFilesClosed     = "⚠️ File baru tidak dapat ditambahkan saat pengaturan berlangsung.\n\n" + exitHint
	msgAllReceived     = "👍 Oke, semua file diterima. Sekarang mari kita atur pengaturannya satu per satu."
	msgProcessing      = "🔃 Sedang Memproses..."
	msgOrderFailed     = "Gagal membuat pesanan di sistem. Mohon coba lagi atau hubungi Admin."
	msgCorrupted       = "❌ Terjadi kesalahan. Silakan coba lagi dengan mengetik *2*."
	msgDetectionFailed = "⚠️ Gagal mendeteksi warna otomatis. Menggunakan harga standar."
	msgTruncated       = "⚠️ File tampaknya tidak terunduh sepenuhnya. Jika hasil cetak tidak sesuai, kirim ulang file tersebut."

	msgBadColor = "❌ Pilihan tidak dikenali. Balas dengan *warna*, *hitam*, *auto*, atau daftar halaman hitam putih (contoh: `1-3,5`)."
	msgBadMode  = "❌ Balas dengan *1* (Cepat) atau *2* (Atur)."
	msgBadEdit  = "❌ Balas dengan *edit* atau *tidak*."
	msgBadNotes = "❌ Catatan edit tidak boleh kosong."
	msgBadName  = "❌ Nama minimal 2 karakter. Silakan ketik nama Anda."

	msgAskName = "✅ Sip, pengaturan selesai!\n\n" +
		"Terakhir, boleh minta nama Anda? Nama ini akan tercantum di invoice dan layar kios."

	msgOrderReady = "✅ *Yeay Pesanan Siap!*\n\n" +
		"- 🏢  Kunjungi kios PrinPrinan.\n" +
		"- 📱  Klik *Mulai* pada layar kios.\n" +
		"- 📸  Scan QR Code ini.\n" +
		"- 💵  Lakukan Pembayaran.\n" +
		"- 👉  File akan langsung ter-print.\n\n" +
		"Terima Kasih 🙏"
)

func welcomeText(p printing.Prices) string {
	return "👋 Selamat datang di layanan *PrinPrinan*!\n\n" +
		"📄 Silakan kirim file Anda dengan *caption* untuk pengaturan cetak.\n" +
		"👉 Format yang didukung: *PDF, DOCX, JPEG, PNG*\n\n" +
		"*Daftar Harga per Halaman:*\n" +
		fmt.Sprintf("- Hitam Putih: *%s*\n", printing.FormatRupiah(p.BlackWhite)) +
		fmt.Sprintf("- Warna: *%s*\n\n", printing.FormatRupiah(p.Color)) +
		"*Contoh Caption:*\n" +
		"- `hitam` semua halaman hitam putih\n" +
		"- `warna` semua halaman berwarna\n" +
		"- `auto` deteksi warna otomatis 🤖\n" +
		"- `1-5` halaman 1-5 hitam putih, sisanya warna\n" +
		"- `hitam copies=2 pages=1-3 paper=a4 scale=fit`\n\n" +
		"📱 Bagikan kontak Anda agar nomor telepon tercantum di pesanan.\n" +
		"👉 Ketik *2* jika semua file sudah dikirim.\n" +
		exitHint
}

func receiptText(f *printing.FileEntry, total int, droppedPages string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📩 %s Diterima:\n\n`%s`\n\n", printing.FileTypeLabel(f.MIME), f.Filename)
	if f.Color.IsSet() {
		fmt.Fprintf(&b, "Warna: *%s*\n", printing.ColorLabel(f.Color))
	} else {
		b.WriteString("Warna: *Pilih nanti* ⌨️\n")
	}
	fmt.Fprintf(&b, "Halaman: *%d*\n", f.TotalPages)
	if f.PageSelection != "" {
		fmt.Fprintf(&b, "Halaman Dicetak: *%s*\n", printing.FormatRanges(f.PageNumbers()))
	}
	if f.Copies > 1 {
		fmt.Fprintf(&b, "Salinan: *%d*\n", f.Copies)
	}
	if droppedPages != "" {
		fmt.Fprintf(&b, "\n⚠️ Halaman `%s` tidak valid untuk file ini, semua halaman akan dicetak.\n", droppedPages)
	}
	fmt.Fprintf(&b, "\nTotal: *%d file.*\n\n", total)
	b.WriteString(msgSendFileOrDone)
	return b.String()
}

func progress(s *Session) string {
	return fmt.Sprintf("(%d dari %d)", s.ActiveIndex+1, len(s.Files))
}

func askColorText(s *Session, f *printing.FileEntry) string {
	return fmt.Sprintf("🎨 Pengaturan warna untuk `%s` %s\n\n", f.Filename, progress(s)) +
		fmt.Sprintf("Total halaman: *%d*\n\n", f.TotalPages) +
		"Balas dengan:\n" +
		"- *warna* untuk cetak berwarna\n" +
		"- *hitam* untuk hitam putih\n" +
		"- *auto* untuk deteksi otomatis 🤖\n" +
		"- daftar halaman hitam putih, contoh `1-3,5` (sisanya warna)\n\n" +
		exitHint
}

func askModeText(s *Session, f *printing.FileEntry, p printing.Prices) string {
	return fmt.Sprintf("📄 File `%s` %s\n\n", f.Filename, progress(s)) +
		fmt.Sprintf("Pengaturan: *%s*\n", printing.ColorLabel(f.Color)) +
		fmt.Sprintf("Halaman: *%d* (Total: %d)\n", f.EffectivePages, f.TotalPages) +
		fmt.Sprintf("Salinan: *%d*\n", f.Copies) +
		fmt.Sprintf("Biaya: *%s*\n\n", printing.FormatRupiah(printing.FinalCost(f, p))) +
		"Pilih mode:\n" +
		"*1*. Cepat ⚡ (pakai pengaturan di atas)\n" +
		"*2*. Atur 🛠️ (pilih halaman, salinan, dan edit)\n\n" +
		exitHint
}

func askPagesText(f *printing.FileEntry) string {
	return fmt.Sprintf("🔢 Halaman mana yang ingin dicetak dari `%s`? (Total: %d)\n\n", f.Filename, f.TotalPages) +
		"Contoh: `1-3,5`\n" +
		"Ketik *semua* untuk mencetak semua halaman.\n\n" +
		exitHint
}

func badPagesText(f *printing.FileEntry) string {
	return fmt.Sprintf("❌ Format halaman salah. Gunakan angka 1 sampai %d, contoh: `1-3,5`.", f.TotalPages)
}

func askCopiesText(f *printing.FileEntry) string {
	return fmt.Sprintf("🖨️ Berapa salinan untuk `%s`?\n\nKetik angka 1 sampai %d.\n\n", f.Filename, maxCopies) +
		exitHint
}

func badCopiesText() string {
	return fmt.Sprintf("❌ Jumlah salinan harus berupa angka 1 sampai %d.", maxCopies)
}

func askEditText(f *printing.FileEntry) string {
	return fmt.Sprintf("✏️ Apakah file `%s` perlu diedit oleh Admin sebelum dicetak?\n\n", f.Filename) +
		"- Ketik *edit* jika perlu\n" +
		"- Ketik *tidak* jika langsung cetak\n\n" +
		exitHint
}

func askNotesText() string {
	return fmt.Sprintf("📝 Tuliskan catatan edit untuk Admin (maksimal %d karakter).\n\n", maxNoteRunes) + exitHint
}

func longNotesText() string {
	return fmt.Sprintf("❌ Catatan terlalu panjang. Maksimal %d karakter.", maxNoteRunes)
}

func detectingText(f *printing.FileEntry) string {
	return fmt.Sprintf("🔍 Sedang mendeteksi warna dan harga untuk file: *%s*...", f.Filename)
}

func detectionResultText(f *printing.FileEntry, b *printing.ColorBreakdown) string {
	return fmt.Sprintf("✅ Deteksi warna `%s` selesai:\n\n", f.Filename) +
		fmt.Sprintf("- Hitam Putih: *%d* halaman\n", len(b.BlackWhite)) +
		fmt.Sprintf("- Warna: *%d* halaman\n", len(b.Color)) +
		fmt.Sprintf("- Full Color: *%d* halaman\n\n", len(b.FullColor)) +
		fmt.Sprintf("Estimasi biaya: *%s* per salinan", printing.FormatRupiah(b.Price))
}

func contactSavedText(number string) string {
	return fmt.Sprintf("📱 Nomor *%s* akan dipakai untuk pesanan ini.", number)
}

func orderReadyCaption(orderID string) string {
	return msgOrderReady + fmt.Sprintf("\n\nKode Pesanan: `%s`", orderID)
}
