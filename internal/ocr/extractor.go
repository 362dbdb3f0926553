package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/expense"
)

// Extractor calls the receipt scanning provider and maps its response
// into the fields the expense service can prefill. Callers treat every
// error as non-fatal; an unreadable receipt never blocks submission.
type Extractor struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewExtractor(cfg internal.OCRConfig, logger *slog.Logger) *Extractor {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Extractor{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type extractRequest struct {
	ReceiptRef string `json:"receipt_ref"`
}

type extractResponse struct {
	Amount     *string `json:"amount"`
	Date       *string `json:"date"`
	Merchant   *string `json:"merchant"`
	Confidence float64 `json:"confidence"`
}

func (e *Extractor) Extract(ctx context.Context, receiptRef string) (*expense.ReceiptData, error) {
	payload, err := json.Marshal(extractRequest{ReceiptRef: receiptRef})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call receipt extraction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("receipt extraction returned status %d", resp.StatusCode)
	}

	var body extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}

	return e.toReceiptData(&body), nil
}

func (e *Extractor) toReceiptData(body *extractResponse) *expense.ReceiptData {
	data := &expense.ReceiptData{Confidence: body.Confidence}

	if body.Amount != nil {
		if amount, err := decimalFromString(*body.Amount); err == nil {
			data.Amount = amount
		} else {
			e.logger.Warn("unparseable amount in extraction response", "value", *body.Amount)
		}
	}

	if body.Date != nil {
		if parsed, err := time.Parse("2006-01-02", *body.Date); err == nil {
			data.Date = &parsed
		} else {
			e.logger.Warn("unparseable date in extraction response", "value", *body.Date)
		}
	}

	data.Merchant = body.Merchant
	return data
}
