package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNumberSequence_Advance(t *testing.T) {
	s, err := NewNumberSequence("A", 2025)
	assert.Nil(t, err)

	assert.Equal(t, "A2025000001", s.Advance("test"))
	assert.Equal(t, "A2025000002", s.Advance("test"))
	assert.Equal(t, int64(2), s.LastValue())
}

func TestNewNumberSequence_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		series      string
		year        int
		expectedErr error
	}{
		{"Should return error when series is empty", "", 2025, ErrSeriesIsRequired},
		{"Should return error when year is ancient", "A", 1970, ErrYearOutOfRange},
		{"Should return error when year is far future", "A", 9999, ErrYearOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewNumberSequence(tt.series, tt.year)

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Nil(t, s)
		})
	}
}

func TestNewInvoice_ValidationErrors(t *testing.T) {
	customerID := uuid.New()

	tests := []struct {
		name        string
		number      string
		customerID  uuid.UUID
		amount      float64
		expectedErr error
	}{
		{"Should return error when number is empty", "", customerID, 10, ErrNumberIsRequired},
		{"Should return error when customer is missing", "A2025000001", uuid.Nil, 10, ErrCustomerIsRequired},
		{"Should return error when amount is zero", "A2025000001", customerID, 0, ErrAmountMustBePos},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice(tt.number, tt.customerID, tt.amount)

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Nil(t, inv)
		})
	}
}
