package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

type PrintJob struct {
	CustomerName   string
	CustomerNumber string
	Items          []PrintJobItem
}

type PrintJobItem struct {
	Filename     string
	MIME         string
	Data         []byte
	Color        string
	NeedsEdit    bool
	Pages        int
	Copies       int
	PaperSize    string
	Scale        string
	PagesToPrint string
	BWPages      string
	EditNotes    string
	Price        int64
}

// orderID accepts both "A1B2" and 1234 from the backend.
type orderID string

func (id *orderID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = orderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order_id: %w", err)
	}
	*id = orderID(n.String())
	return nil
}

// CreatePrintJob submits a finished order and returns the backend's order id.
func (c *Client) CreatePrintJob(ctx context.Context, job PrintJob) (string, error) {
	body, contentType, err := job.form()
	if err != nil {
		return "", fmt.Errorf("create print job: %w", err)
	}

	var result struct {
		OrderID *orderID `json:"order_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, joinURL(c.endpoints.BackendURL, "print-job/create"), body, contentType, &result); err != nil {
		return "", fmt.Errorf("create print job: %w", err)
	}
	if result.OrderID == nil || strings.TrimSpace(string(*result.OrderID)) == "" {
		return "", fmt.Errorf("create print job: %w", ErrMissingOrderID)
	}
	return string(*result.OrderID), nil
}

func (job PrintJob) form() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	customerName := job.CustomerName
	if customerName == "" {
		customerName = "N/A"
	}
	fields := [][2]string{
		{"customer_name", customerName},
		{"customer_number", job.CustomerNumber},
	}

	for i, item := range job.Items {
		key := func(name string) string { return fmt.Sprintf("items[%d][%s]", i, name) }

		if err := writeFilePart(w, key("file"), item.Filename, item.MIME, item.Data); err != nil {
			return nil, "", err
		}

		fields = append(fields,
			[2]string{key("color"), item.Color},
			[2]string{key("needs_edit"), strconv.FormatBool(item.NeedsEdit)},
			[2]string{key("pages"), strconv.Itoa(item.Pages)},
			[2]string{key("copies"), strconv.Itoa(item.Copies)},
			[2]string{key("price"), strconv.FormatInt(item.Price, 10)},
		)
		optional := [][2]string{
			{key("paper_size"), item.PaperSize},
			{key("scale"), item.Scale},
			{key("pages_to_print"), item.PagesToPrint},
			{key("bnw_pages"), item.BWPages},
			{key("edit_notes"), item.EditNotes},
		}
		for _, f := range optional {
			if f[1] != "" {
				fields = append(fields, f)
			}
		}
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
