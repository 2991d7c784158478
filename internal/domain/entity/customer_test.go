package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewCustomer(t *testing.T) {
	c, err := NewCustomer("CUST-001", "Acme Ltd", "billing@acme.test")

	assert.Nil(t, err)
	assert.NotNil(t, c)
	assert.NotEqual(t, uuid.Nil, c.GetID())
	assert.Equal(t, "CUST-001", c.Code())
	assert.False(t, c.IsDeleted())
}

func TestNewCustomer_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		custName    string
		expectedErr error
	}{
		{"Should return error when code is empty", "", "Acme", ErrCodeIsRequired},
		{"Should return error when name is empty", "CUST-001", "", ErrNameIsRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCustomer(tt.code, tt.custName, "")

			assert.Error(t, err)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Nil(t, c)
		})
	}
}

func TestCustomer_SoftDeleteCycle(t *testing.T) {
	c, err := NewCustomer("CUST-002", "Globex", "")
	assert.Nil(t, err)

	now := time.Now()
	c.MarkAsDeleted(now, "admin")

	assert.True(t, c.IsDeleted())
	assert.NotNil(t, c.DeletedAt())
	assert.Equal(t, "admin", c.DeletedBy())

	c.Restore()

	assert.False(t, c.IsDeleted())
	assert.Nil(t, c.DeletedAt())
	assert.Empty(t, c.DeletedBy())

	// restoring an active row stays a no-op
	c.Restore()
	assert.False(t, c.IsDeleted())
}

func TestSame_IdentityByIDAndType(t *testing.T) {
	c, _ := NewCustomer("CUST-003", "Initech", "")
	other := RehydrateCustomer(c.GetID(), uuid.New(), "CUST-999", "Renamed", "",
		time.Now(), time.Now(), "", "", false, nil, "")
	inv, _ := NewInvoice("A2025000001", uuid.New(), 10)

	assert.True(t, Same(c, other), "same id and type is the same logical row")
	assert.False(t, Same(c, inv))

	c2, _ := NewCustomer("CUST-003", "Initech", "")
	assert.False(t, Same(c, c2), "distinct ids are distinct rows")
}

func TestCustomer_Field(t *testing.T) {
	c, _ := NewCustomer("CUST-004", "Umbrella", "ops@umbrella.test")

	v, ok := c.Field("Code")
	assert.True(t, ok)
	assert.Equal(t, "CUST-004", v)

	_, ok = c.Field("NoSuchField")
	assert.False(t, ok)
}
