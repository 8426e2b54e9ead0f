package api

// COLLABORATOR CLIENTS

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingOrderID    = errors.New("order id not found in response")
)

// Color labels returned by the detection service.
const (
	PageBlackWhite = "black_and_white"
	PageColored    = "color"
	PageFullColor  = "full_color"
)

type Endpoints struct {
	BackendURL     string
	PricingPath    string
	PageCountURL   string
	ColorDetectURL string
}

type Client struct {
	endpoints  Endpoints
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// PageColor is the detector's verdict for one page.
type PageColor struct {
	Page  int     `json:"page"`
	Color string  `json:"color"`
	Price float64 `json:"price"`
}

type ColorReport struct {
	TotalPages int
	Pages      []PageColor
}

// PriceList is the pricing config published by the backend. FullColor is
// zero when the backend does not send it.
type PriceList struct {
	BlackWhite int64
	Color      int64
	FullColor  int64
}

func NewClient(endpoints Endpoints, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if endpoints.PricingPath == "" {
		endpoints.PricingPath = "/config"
	}
	return &Client{
		endpoints: endpoints,
		token:     token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CountPages asks the page-count service how many pages a file has.
func (c *Client) CountPages(ctx context.Context, filename, mime string, data []byte) (int, error) {
	body, contentType, err := fileForm("file", filename, mime, data)
	if err != nil {
		return 0, err
	}

	var result struct {
		Pages int `json:"pages"`
	}
	if err := c.doJSON(ctx, http.MethodPost, joinURL(c.endpoints.PageCountURL, "count-pages"), body, contentType, &result); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	if result.Pages < 1 {
		return 0, fmt.Errorf("count pages: %w: pages=%d", ErrMalformedResponse, result.Pages)
	}
	return result.Pages, nil
}

// DetectColors classifies every page of a file as black & white, color or
// full color, with the service's per-page price.
func (c *Client) DetectColors(ctx context.Context, filename string, data []byte) (*ColorReport, error) {
	body, contentType, err := fileForm("files", filename, "", data)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Colors     []PageColor `json:"colors"`
			TotalPages int         `json:"total_pages"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, joinURL(c.endpoints.ColorDetectURL, "detect"), body, contentType, &result); err != nil {
		return nil, fmt.Errorf("detect colors: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].Colors == nil {
		return nil, fmt.Errorf("detect colors: %w: no color data", ErrMalformedResponse)
	}

	return &ColorReport{
		TotalPages: result.Data[0].TotalPages,
		Pages:      result.Data[0].Colors,
	}, nil
}

// FetchPricing reads the current per-page prices from the backend.
func (c *Client) FetchPricing(ctx context.Context) (PriceList, error) {
	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Prices *struct {
				Color     *float64 `json:"color"`
				FullColor *float64 `json:"full_color"`
				BNW       *float64 `json:"bnw"`
			} `json:"prices"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, joinURL(c.endpoints.BackendURL, c.endpoints.PricingPath), nil, "", &result); err != nil {
		return PriceList{}, fmt.Errorf("fetch pricing: %w", err)
	}

	prices := result.Data.Prices
	if !result.Success || prices == nil || prices.Color == nil || prices.BNW == nil {
		return PriceList{}, fmt.Errorf("fetch pricing: %w", ErrMalformedResponse)
	}

	list := PriceList{
		Color:      int64(math.Round(*prices.Color)),
		BlackWhite: int64(math.Round(*prices.BNW)),
	}
	if prices.FullColor != nil {
		list.FullColor = int64(math.Round(*prices.FullColor))
	}
	return list, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Calling collaborator",
		zap.String("method", method),
		zap.String("url", url),
		zap.String("request_id", requestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrMalformedResponse, err)
	}
	return nil
}

func fileForm(field, filename, mime string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFilePart(w, field, filename, mime, data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field, filename, mime string, data []byte) error {
	if mime == "" {
		mime = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(field), escapeQuotes(filename)))
	h.Set("Content-Type", mime)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
