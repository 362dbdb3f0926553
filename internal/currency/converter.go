package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-approval/internal"
)

// Converter converts submitted amounts into the company currency using an
// external rate provider. Conversion failures are fatal to submission, so
// every provider fault maps to a dependency error the caller can surface.
type Converter struct {
	baseURL string
	client  *http.Client
	cache   *RateCache
	logger  *slog.Logger
}

func NewConverter(cfg internal.CurrencyConfig, cache *RateCache, logger *slog.Logger) *Converter {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Converter{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  logger,
	}
}

func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return amount, nil
	}

	rate, err := c.rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate).Round(2), nil
}

func (c *Converter) rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	pair := from + "/" + to

	if cached, ok := c.cache.Get(pair); ok {
		return cached, nil
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		c.logger.Error("exchange rate fetch failed", "pair", pair, "error", err)
		return decimal.Zero, internal.NewDependencyError(
			fmt.Sprintf("exchange rate unavailable for %s", pair),
			internal.ErrCodeRateUnavailable, err)
	}

	c.cache.Set(pair, rate)
	return rate, nil
}

type rateResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *Converter) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest?base=%s&symbols=%s", c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}

	rate, ok := body.Rates[to]
	if !ok || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("no usable rate for %s in response", to)
	}

	return rate, nil
}
