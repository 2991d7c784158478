package customer

import "time"

// Input

type CreateInput struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ListInput struct {
	Search    string `json:"search"`
	PageIndex int    `json:"page_index"`
	PageSize  int    `json:"page_size"`
}

// Output

type Output struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListOutput struct {
	Items      []Output `json:"items"`
	TotalCount int64    `json:"total_count"`
	PageIndex  int      `json:"page_index"`
	PageSize   int      `json:"page_size"`
}
