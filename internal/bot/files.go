package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"prinprinan-bot/internal/flow"
)

const (
	downloadAttempts = 3
	downloadDelay    = 2 * time.Second // between attempts
)

var errTruncated = errors.New("download truncated")

const mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var supportedMIME = map[string]bool{
	"application/pdf": true,
	mimeDOCX:          true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/tiff":      true,
}

// fileRef is an attachment still sitting on Telegram's servers.
type fileRef struct {
	ID   string
	Name string
	MIME string
	Size int
}

// uploadRef picks the printable attachment of a message, if any. Photos use
// their largest size.
func uploadRef(msg *tgbotapi.Message) (fileRef, bool) {
	if doc := msg.Document; doc != nil {
		name := doc.FileName
		if name == "" {
			name = doc.FileUniqueID
		}
		return fileRef{ID: doc.FileID, Name: name, MIME: doc.MimeType, Size: doc.FileSize}, true
	}
	if n := len(msg.Photo); n > 0 {
		p := msg.Photo[n-1]
		return fileRef{
			ID:   p.FileID,
			Name: fmt.Sprintf("photo_%s.jpg", p.FileUniqueID),
			MIME: "image/jpeg",
			Size: p.FileSize,
		}, true
	}
	return fileRef{}, false
}

func (b *Bot) download(ctx context.Context, ref fileRef) (*flow.Upload, error) {
	url, err := b.bot.GetFileDirectURL(ref.ID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	data, truncated, err := b.fetch(ctx, url, ref.Size)
	if err != nil {
		return nil, err
	}
	return &flow.Upload{
		Name:      ref.Name,
		MIME:      ref.MIME,
		Data:      data,
		Expected:  ref.Size,
		Truncated: truncated,
	}, nil
}

// fetch downloads url, retrying while fewer than expected bytes arrive.
// After the last attempt a short body is returned with truncated set.
func (b *Bot) fetch(ctx context.Context, url string, expected int) ([]byte, bool, error) {
	var data []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		resp, err := b.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		data = body
		if expected > 0 && len(body) < expected {
			return fmt.Errorf("%w: got %d of %d bytes", errTruncated, len(body), expected)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(b.retryDelay), downloadAttempts-1),
		ctx,
	)
	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		b.logger.Warn("File download failed, retrying",
			zap.Error(err),
			zap.Duration("next_attempt_in", next))
	})

	switch {
	case err == nil:
		return data, false, nil
	case errors.Is(err, errTruncated) && len(data) > 0:
		return data, true, nil
	default:
		return nil, false, fmt.Errorf("download: %w", err)
	}
}
