package service

import (
	"errors"

	"github.com/meridianadvisory/portfolio-engine/internal/apperrors"
)

// isLedgerRejection reports whether err is an accounting-rule refusal rather
// than a storage failure.
func isLedgerRejection(err error) bool {
	var overdraft *apperrors.OverdraftError
	var mismatch *apperrors.CurrencyMismatchError
	return errors.As(err, &overdraft) || errors.As(err, &mismatch)
}

// isNotFound reports whether err is a missing-entity sentinel. A missing
// holding is a normal state (the first transaction for a symbol has none),
// so callers recover from it rather than propagate.
func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrHoldingNotFound) ||
		errors.Is(err, apperrors.ErrQuoteNotFound) ||
		errors.Is(err, apperrors.ErrSettingNotFound)
}
