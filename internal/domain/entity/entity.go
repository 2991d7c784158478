package entity

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Aggregate is the minimal contract every persisted domain object fulfils.
// Field exposes named attribute values so specifications can be evaluated
// against an instance without reflection over unexported fields.
type Aggregate interface {
	GetID() uuid.UUID
	Field(name string) (any, bool)

	// Snapshot returns an independent copy. Stores copy on write and on
	// read so discarded or rolled-back work never leaks into shared state.
	Snapshot() Aggregate
}

// SoftDeletable marks aggregates that are hidden instead of physically
// removed. Default read paths exclude deleted rows.
type SoftDeletable interface {
	IsDeleted() bool
	MarkAsDeleted(at time.Time, by string)
	Restore()
}

// TenantOwned marks aggregates whose rows belong to exactly one tenant.
// Repositories scope every query by the owning tenant and stamp it on insert.
type TenantOwned interface {
	GetTenantID() uuid.UUID
	SetTenantID(id uuid.UUID)
}

// Base carries identity and audit stamps. Aggregates embed it and expose
// their own fields through getters, keeping mutation inside their methods.
type Base struct {
	id        uuid.UUID
	createdAt time.Time
	updatedAt time.Time
	createdBy string
	updatedBy string
}

func NewBase(id uuid.UUID) Base {
	now := time.Now().UTC()
	return Base{id: id, createdAt: now, updatedAt: now}
}

func (b *Base) GetID() uuid.UUID     { return b.id }
func (b *Base) CreatedAt() time.Time { return b.createdAt }
func (b *Base) UpdatedAt() time.Time { return b.updatedAt }
func (b *Base) CreatedBy() string    { return b.createdBy }
func (b *Base) UpdatedBy() string    { return b.updatedBy }

// Touch refreshes the modification stamp. Called by aggregates from their
// own mutators.
func (b *Base) Touch(by string) {
	b.updatedAt = time.Now().UTC()
	b.updatedBy = by
}

func (b *Base) StampCreator(by string) {
	b.createdBy = by
	b.updatedBy = by
}

// Rehydrate restores persisted stamps when loading from a store.
func (b *Base) Rehydrate(id uuid.UUID, createdAt, updatedAt time.Time, createdBy, updatedBy string) {
	b.id = id
	b.createdAt = createdAt
	b.updatedAt = updatedAt
	b.createdBy = createdBy
	b.updatedBy = updatedBy
}

// Same reports logical identity: same id and same concrete type. Two
// in-memory instances with equal ids are the same logical row.
func Same(a, b Aggregate) bool {
	if a == nil || b == nil {
		return false
	}
	if a.GetID() == uuid.Nil || b.GetID() == uuid.Nil {
		return false
	}
	return a.GetID() == b.GetID() && reflect.TypeOf(a) == reflect.TypeOf(b)
}

// SoftDelete is the embeddable soft-delete trait.
type SoftDelete struct {
	deleted   bool
	deletedAt *time.Time
	deletedBy string
}

func (s *SoftDelete) IsDeleted() bool       { return s.deleted }
func (s *SoftDelete) DeletedAt() *time.Time { return s.deletedAt }
func (s *SoftDelete) DeletedBy() string     { return s.deletedBy }

func (s *SoftDelete) MarkAsDeleted(at time.Time, by string) {
	s.deleted = true
	at = at.UTC()
	s.deletedAt = &at
	s.deletedBy = by
}

// Restore clears the deletion marks. Restoring an active row is a no-op.
func (s *SoftDelete) Restore() {
	if !s.deleted {
		return
	}
	s.deleted = false
	s.deletedAt = nil
	s.deletedBy = ""
}

// RehydrateSoftDelete restores persisted deletion marks.
func (s *SoftDelete) RehydrateSoftDelete(deleted bool, at *time.Time, by string) {
	s.deleted = deleted
	s.deletedAt = at
	s.deletedBy = by
}

// Tenancy is the embeddable tenant-ownership trait.
type Tenancy struct {
	tenantID uuid.UUID
}

func (t *Tenancy) GetTenantID() uuid.UUID   { return t.tenantID }
func (t *Tenancy) SetTenantID(id uuid.UUID) { t.tenantID = id }
