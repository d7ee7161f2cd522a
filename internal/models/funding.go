package models

import (
	"time"
)

// Funding is the amount bookkeeping shared by charity projects and donations.
// InvestedAmount never exceeds FullAmount and FullyInvested is set exactly
// when the two are equal.
type Funding struct {
	FullAmount     int64      `json:"full_amount" db:"full_amount"`
	InvestedAmount int64      `json:"invested_amount" db:"invested_amount"`
	FullyInvested  bool       `json:"fully_invested" db:"fully_invested"`
	CreateDate     time.Time  `json:"create_date" db:"create_date"`
	CloseDate      *time.Time `json:"close_date,omitempty" db:"close_date"`
}

// NewFunding returns an open Funding with nothing invested yet.
func NewFunding(fullAmount int64, createDate time.Time) Funding {
	return Funding{
		FullAmount: fullAmount,
		CreateDate: createDate,
	}
}

// Remaining returns the amount still open for allocation.
func (f *Funding) Remaining() int64 {
	return f.FullAmount - f.InvestedAmount
}

// Invest adds amount to the invested total and closes the entity once it is
// full. Closed entities are left untouched.
func (f *Funding) Invest(amount int64, at time.Time) {
	if f.FullyInvested {
		return
	}
	f.InvestedAmount += amount
	if f.InvestedAmount == f.FullAmount {
		f.Close(at)
	}
}

// Close marks the entity fully invested. The close date is set once and never revised.
func (f *Funding) Close(at time.Time) {
	if f.FullyInvested {
		return
	}
	f.FullyInvested = true
	closed := at
	f.CloseDate = &closed
}
