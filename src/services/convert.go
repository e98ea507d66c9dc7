// backend/src/services/convert.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/backend/src/models"
	"github.com/username/bankfolio/backend/src/security/validation"
)

// valueDateFormats are tried in order when parsing upstream value dates.
var valueDateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// ConvertRawTransaction validates and defaults one upstream row into an
// immutable Transaction. The IBAN is stripped of whitespace and the
// description is the counterparty name concatenated with the first non-empty
// free-text field, sanitized of markup and unprintable characters.
func ConvertRawTransaction(raw models.RawBankTransaction) (models.Transaction, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return models.Transaction{}, fmt.Errorf("upstream transaction row has no id")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Amount))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid amount %q for transaction %s: %w", raw.Amount, raw.ID, err)
	}

	valueDate, err := parseValueDate(raw.ValueDate)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid value date %q for transaction %s: %w", raw.ValueDate, raw.ID, err)
	}

	direction := models.DirectionCredit
	switch strings.ToLower(strings.TrimSpace(raw.Side)) {
	case "credit":
		direction = models.DirectionCredit
	case "debit":
		direction = models.DirectionDebit
	default:
		// Side missing or unknown: fall back to the amount sign.
		if amount.IsNegative() {
			direction = models.DirectionDebit
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = "EUR"
	}

	return models.Transaction{
		ID:          raw.ID,
		IBAN:        stripWhitespace(raw.AccountIBAN),
		Amount:      amount,
		Direction:   direction,
		ValueDate:   valueDate,
		Description: composeDescription(raw),
		Currency:    currency,
		AccountRef:  strings.TrimSpace(raw.AccountRef),
	}, nil
}

// composeDescription joins the counterparty name with the first non-empty
// note/communication field of the raw row.
func composeDescription(raw models.RawBankTransaction) string {
	parts := []string{strings.TrimSpace(raw.CounterpartName)}
	for _, freeText := range []string{raw.RemittanceInformation, raw.Communication, raw.AdditionalInformation} {
		if trimmed := strings.TrimSpace(freeText); trimmed != "" {
			parts = append(parts, trimmed)
			break
		}
	}
	joined := strings.TrimSpace(strings.Join(parts, " "))
	cleaned := validation.StripUnprintable(validation.SanitizeText(joined))
	return strings.Join(strings.Fields(cleaned), " ")
}

func parseValueDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	var lastErr error
	for _, format := range valueDateFormats {
		t, err := time.Parse(format, trimmed)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
