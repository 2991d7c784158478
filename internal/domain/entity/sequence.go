package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NumberSequence is the per-tenant counter behind gapless document numbers
// (invoice numbers, transaction numbers). One row per tenant/series/year.
// Callers must serialize the read-compute-write cycle; the entity itself
// only holds state.
type NumberSequence struct {
	Base
	Tenancy
	series    string
	year      int
	lastValue int64
}

func NewNumberSequence(series string, year int) (*NumberSequence, error) {
	s := &NumberSequence{
		Base:   NewBase(uuid.New()),
		series: series,
		year:   year,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *NumberSequence) Validate() error {
	if s.GetID() == uuid.Nil {
		return ErrIDIsRequired
	}
	if s.series == "" {
		return ErrSeriesIsRequired
	}
	if s.year < 2000 || s.year > 2200 {
		return ErrYearOutOfRange
	}
	return nil
}

func (s *NumberSequence) Series() string   { return s.series }
func (s *NumberSequence) Year() int        { return s.year }
func (s *NumberSequence) LastValue() int64 { return s.lastValue }

// Advance issues the next value in the series and formats it, e.g.
// A2025000001. The caller holds the critical-section lock.
func (s *NumberSequence) Advance(by string) string {
	s.lastValue++
	s.Touch(by)
	return s.Format(s.lastValue)
}

func (s *NumberSequence) Format(value int64) string {
	return fmt.Sprintf("%s%d%06d", s.series, s.year, value)
}

func (s *NumberSequence) Snapshot() Aggregate {
	cp := *s
	return &cp
}

func (s *NumberSequence) Field(name string) (any, bool) {
	switch name {
	case "ID":
		return s.GetID(), true
	case "TenantID":
		return s.GetTenantID(), true
	case "Series":
		return s.series, true
	case "Year":
		return s.year, true
	case "LastValue":
		return s.lastValue, true
	}
	return nil, false
}

// RehydrateNumberSequence rebuilds a sequence row from persisted state.
func RehydrateNumberSequence(id, tenantID uuid.UUID, series string, year int, lastValue int64,
	createdAt, updatedAt time.Time) *NumberSequence {

	s := &NumberSequence{series: series, year: year, lastValue: lastValue}
	s.Rehydrate(id, createdAt, updatedAt, "", "")
	s.SetTenantID(tenantID)
	return s
}
