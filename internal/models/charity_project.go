package models

// CharityProject is a fundraising goal that donations are allocated to.
type CharityProject struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Funding
}

// CharityProjectCreate is the payload for creating a project.
type CharityProjectCreate struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"required,min=1"`
	FullAmount  int64  `json:"full_amount" validate:"required,gt=0"`
}

// CharityProjectUpdate is the payload for a partial project update.
type CharityProjectUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	FullAmount  *int64  `json:"full_amount" validate:"omitempty,gt=0"`
}
