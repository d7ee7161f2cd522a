package models

import "time"

// Donation is money given by a user and waiting to be allocated to projects.
type Donation struct {
	ID      int64  `json:"id" db:"id"`
	UserID  int64  `json:"user_id" db:"user_id"`
	Comment string `json:"comment,omitempty" db:"comment"`
	Funding
}

// DonationCreate is the payload for a new donation.
type DonationCreate struct {
	FullAmount int64  `json:"full_amount" validate:"required,gt=0"`
	Comment    string `json:"comment" validate:"omitempty"`
}

// DonationShort is the view of a donation returned to its owner.
type DonationShort struct {
	ID         int64     `json:"id"`
	FullAmount int64     `json:"full_amount"`
	Comment    string    `json:"comment,omitempty"`
	CreateDate time.Time `json:"create_date"`
}

// Short returns the owner-facing view of d.
func (d *Donation) Short() DonationShort {
	return DonationShort{
		ID:         d.ID,
		FullAmount: d.FullAmount,
		Comment:    d.Comment,
		CreateDate: d.CreateDate,
	}
}
