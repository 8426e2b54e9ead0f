package flow

import (
	"context"
	"time"

	"prinprinan-bot/pkg/api"
)

// Event is one inbound chat message.
type Event struct {
	ChatID int64
	// Sender identifies the customer to the order backend.
	Sender string
	Text   string
	File   *Upload
	// Contact is a phone number the customer shared about themselves.
	Contact string
}

type Upload struct {
	Name    string
	MIME    string
	Data    []byte
	Caption string

	// Expected is the size announced by the channel; Truncated is set when
	// fewer bytes arrived after retries.
	Expected  int
	Truncated bool
}

type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendImage(ctx context.Context, chatID int64, name string, data []byte, caption string) error
}

type PageCounter interface {
	CountPages(ctx context.Context, filename, mime string, data []byte) (int, error)
}

type OrderCreator interface {
	CreatePrintJob(ctx context.Context, job api.PrintJob) (string, error)
}

// CodeRenderer turns an order id into a scannable PNG.
type CodeRenderer func(content string) ([]byte, error)

// PlacedOrder describes an order the backend accepted.
type PlacedOrder struct {
	ChatID         int64
	OrderID        string
	InvoiceNumber  string
	CustomerName   string
	CustomerNumber string
	Items          []PlacedItem
	Total          int64
	CreatedAt      time.Time
}

type PlacedItem struct {
	Filename string
	Color    string
	Pages    int
	Copies   int
	Cost     int64
}

// OrderRecorder is told about every accepted order. Failures are its own
// business; the conversation is over by then.
type OrderRecorder interface {
	OrderPlaced(ctx context.Context, order PlacedOrder)
}
