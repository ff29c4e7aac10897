package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianadvisory/portfolio-engine/internal/api/request"
	"github.com/meridianadvisory/portfolio-engine/internal/model"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// ValidateCreateTransaction validates a transaction submission request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - portfolioId: Must be a valid UUID
//   - symbol: Must be non-empty
//   - kind: Must be one of: buy, sell, dividend
//   - quantity: Decimal string, must be positive
//   - unitPrice: Decimal string, must be non-negative
//   - currency: Must be a known ISO 4217 code
//   - occurredAt: Must be RFC3339 or YYYY-MM-DD
//
// Fees are optional and must be a non-negative decimal string when present.
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	if err := ValidateUUID(req.PortfolioID); err != nil {
		return err
	}

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	kind := model.TransactionKind(req.Kind)
	if strings.TrimSpace(req.Kind) == "" {
		errors["kind"] = "kind is required"
	} else if !kind.Valid() {
		errors["kind"] = fmt.Sprintf("invalid kind: %s", req.Kind)
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		errors["quantity"] = "quantity must be a decimal string"
	} else if !quantity.IsPositive() {
		errors["quantity"] = "quantity must be positive"
	}

	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		errors["unitPrice"] = "unitPrice must be a decimal string"
	} else if unitPrice.IsNegative() {
		errors["unitPrice"] = "unitPrice must not be negative"
	}

	if req.Fees != "" {
		fees, err := decimal.NewFromString(req.Fees)
		if err != nil {
			errors["fees"] = "fees must be a decimal string"
		} else if fees.IsNegative() {
			errors["fees"] = "fees must not be negative"
		}
	}

	if strings.TrimSpace(req.Currency) == "" {
		errors["currency"] = "currency is required"
	} else if !money.ValidCurrency(req.Currency) {
		errors["currency"] = fmt.Sprintf("unknown currency code: %s", req.Currency)
	}

	if strings.TrimSpace(req.OccurredAt) == "" {
		errors["occurredAt"] = "occurredAt is required"
	} else if _, err := ParseTime(req.OccurredAt); err != nil {
		errors["occurredAt"] = err.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}
