package request

// CreatePortfolioRequest represents the request body for creating a portfolio
type CreatePortfolioRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DisplayCurrency string `json:"displayCurrency"`
}

// UpdatePortfolioRequest represents the request body for updating a portfolio
type UpdatePortfolioRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	DisplayCurrency *string `json:"displayCurrency,omitempty"`
	IsArchived      *bool   `json:"isArchived,omitempty"`
}
