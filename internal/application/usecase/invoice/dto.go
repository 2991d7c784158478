package invoice

import "time"

// Input

type CreateInput struct {
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
}

// Output

type Output struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	IssuedAt   time.Time `json:"issued_at"`
}

type DetailOutput struct {
	Output
	CustomerCode string `json:"customer_code,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}
