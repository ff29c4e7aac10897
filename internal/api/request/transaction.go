package request

// CreateTransactionRequest represents the request body for submitting a
// transaction. Quantity, unitPrice, and fees are decimal strings; binary
// floats are not accepted on the money path.
type CreateTransactionRequest struct {
	PortfolioID string `json:"portfolioId"`
	Symbol      string `json:"symbol"`
	Kind        string `json:"kind"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Fees        string `json:"fees,omitempty"`
	Currency    string `json:"currency"`
	OccurredAt  string `json:"occurredAt"`
}
