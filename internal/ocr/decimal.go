package ocr

import (
	"strings"

	"github.com/shopspring/decimal"
)

// decimalFromString parses amounts as OCR providers tend to emit them,
// with currency symbols and thousand separators still attached.
func decimalFromString(raw string) (*decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, raw)

	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
