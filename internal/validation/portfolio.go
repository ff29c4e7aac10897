package validation

import (
	"fmt"
	"strings"

	"github.com/meridianadvisory/portfolio-engine/internal/api/request"
	"github.com/meridianadvisory/portfolio-engine/internal/money"
)

// ValidateCreatePortfolio validates a portfolio creation request. The display
// currency is required; the engine never infers one.
func ValidateCreatePortfolio(req request.CreatePortfolioRequest) error {
	errors := make(map[string]string)

	// Required field
	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = "name is required"
	} else if len(req.Name) > 100 {
		errors["name"] = "name must be 100 characters or less"
	}

	// Optional but has constraints
	if len(req.Description) > 500 {
		errors["description"] = "description must be 500 characters or less"
	}

	if strings.TrimSpace(req.DisplayCurrency) == "" {
		errors["displayCurrency"] = "displayCurrency is required"
	} else if !money.ValidCurrency(req.DisplayCurrency) {
		errors["displayCurrency"] = fmt.Sprintf("unknown currency code: %s", req.DisplayCurrency)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateUpdatePortfolio validates a portfolio update request.
func ValidateUpdatePortfolio(req request.UpdatePortfolioRequest) error {
	errors := make(map[string]string)

	// Only validate provided fields
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			errors["name"] = "name cannot be empty"
		} else if len(*req.Name) > 100 {
			errors["name"] = "name must be 100 characters or less"
		}
	}

	if req.Description != nil && len(*req.Description) > 500 {
		errors["description"] = "description must be 500 characters or less"
	}

	if req.DisplayCurrency != nil && !money.ValidCurrency(*req.DisplayCurrency) {
		errors["displayCurrency"] = fmt.Sprintf("unknown currency code: %s", *req.DisplayCurrency)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
