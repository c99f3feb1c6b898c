package model

import "time"

// Prospect represents a row in the `prospects` table: a landing page
// visitor who left contact details.  ConvertedToLead is terminal.
type Prospect struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	TrainingGoal    string    `json:"trainingGoal"`
	ConvertedToLead bool      `json:"convertedToLead"`
	LeadID          *uint64   `json:"leadId"`
	CapturedAt      time.Time `json:"capturedAt"`
	Attribution
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProspect is the body posted by the public capture form.
type NewProspect struct {
	Name         string `json:"name"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	TrainingGoal string `json:"trainingGoal"`
	Attribution
}

// ProspectUpdate is a partial admin edit.
type ProspectUpdate struct {
	Name         *string `json:"name"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	TrainingGoal *string `json:"trainingGoal"`
}

// ProspectFilter narrows prospect listings.  Converted is nil for "all".
type ProspectFilter struct {
	Converted *bool
	Search    string
	Limit     int
	Offset    int
}
