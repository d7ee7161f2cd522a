package models

import "time"

// Allocation is one ledger row: Amount moved from a donation into a project
// during the sweep identified by SweepID.
type Allocation struct {
	ID         int64     `json:"id" db:"id"`
	SweepID    string    `json:"sweep_id" db:"sweep_id"`
	DonationID int64     `json:"donation_id" db:"donation_id"`
	ProjectID  int64     `json:"project_id" db:"project_id"`
	Amount     int64     `json:"amount" db:"amount"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
