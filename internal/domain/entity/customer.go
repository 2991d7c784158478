package entity

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a tenant-owned, soft-deletable master-data record. Archiving
// a customer marks it deleted; it can be restored later with its history
// intact.
type Customer struct {
	Base
	SoftDelete
	Tenancy
	code  string
	name  string
	email string
}

func NewCustomer(code, name, email string) (*Customer, error) {
	c := &Customer{
		Base:  NewBase(uuid.New()),
		code:  code,
		name:  name,
		email: email,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Customer) Validate() error {
	if c.GetID() == uuid.Nil {
		return ErrIDIsRequired
	}
	if c.code == "" {
		return ErrCodeIsRequired
	}
	if c.name == "" {
		return ErrNameIsRequired
	}
	return nil
}

func (c *Customer) Code() string  { return c.code }
func (c *Customer) Name() string  { return c.name }
func (c *Customer) Email() string { return c.email }

func (c *Customer) Rename(name string, by string) error {
	if name == "" {
		return ErrNameIsRequired
	}
	c.name = name
	c.Touch(by)
	return nil
}

func (c *Customer) ChangeEmail(email string, by string) {
	c.email = email
	c.Touch(by)
}

func (c *Customer) Snapshot() Aggregate {
	cp := *c
	return &cp
}

func (c *Customer) Field(name string) (any, bool) {
	switch name {
	case "ID":
		return c.GetID(), true
	case "TenantID":
		return c.GetTenantID(), true
	case "Code":
		return c.code, true
	case "Name":
		return c.name, true
	case "Email":
		return c.email, true
	case "IsDeleted":
		return c.IsDeleted(), true
	case "CreatedAt":
		return c.CreatedAt(), true
	case "UpdatedAt":
		return c.UpdatedAt(), true
	}
	return nil, false
}

// RehydrateCustomer rebuilds a customer from persisted state. Store use only.
func RehydrateCustomer(id, tenantID uuid.UUID, code, name, email string,
	createdAt, updatedAt time.Time, createdBy, updatedBy string,
	deleted bool, deletedAt *time.Time, deletedBy string) *Customer {

	c := &Customer{code: code, name: name, email: email}
	c.Rehydrate(id, createdAt, updatedAt, createdBy, updatedBy)
	c.RehydrateSoftDelete(deleted, deletedAt, deletedBy)
	c.SetTenantID(tenantID)
	return c
}
