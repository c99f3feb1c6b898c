package model

import (
	"strings"
	"time"
)

// LeadStatus is the sales pipeline state of a lead.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadNegotiating LeadStatus = "negotiating"
	LeadConverted   LeadStatus = "converted"
	LeadLost        LeadStatus = "lost"
)

// LeadStatuses lists the canonical pipeline, in display order.
var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadNegotiating, LeadConverted, LeadLost}

var leadStatusSynonyms = map[string]LeadStatus{
	"new":            LeadNew,
	"nuevo":          LeadNew,
	"contacted":      LeadContacted,
	"contactado":     LeadContacted,
	"negotiating":    LeadNegotiating,
	"en-negociacion": LeadNegotiating,
	"en_negociacion": LeadNegotiating,
	"converted":      LeadConverted,
	"convertido":     LeadConverted,
	"lost":           LeadLost,
	"perdido":        LeadLost,
}

// ParseLeadStatus accepts canonical values and their Spanish synonyms.
func ParseLeadStatus(s string) (LeadStatus, bool) {
	st, ok := leadStatusSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// TrainingGoal is the fixed goal vocabulary used on leads and members.
type TrainingGoal string

const (
	GoalWeightLoss     TrainingGoal = "weight_loss"
	GoalMuscleGain     TrainingGoal = "muscle_gain"
	GoalFitness        TrainingGoal = "general_fitness"
	GoalPerformance    TrainingGoal = "performance"
	GoalRehabilitation TrainingGoal = "rehabilitation"
	GoalOther          TrainingGoal = "other"
)

// goal keywords matched against the free text a prospect typed
var goalKeywords = []struct {
	goal  TrainingGoal
	words []string
}{
	{GoalWeightLoss, []string{"weight_loss", "bajar", "perder peso", "adelgazar", "weight"}},
	{GoalMuscleGain, []string{"muscle_gain", "musculo", "músculo", "masa", "hipertrofia", "muscle"}},
	{GoalPerformance, []string{"performance", "rendimiento", "deporte", "competir"}},
	{GoalRehabilitation, []string{"rehabilitation", "rehabilitacion", "rehabilitación", "lesion", "lesión"}},
	{GoalFitness, []string{"general_fitness", "fitness", "salud", "mantener", "tonificar", "health"}},
}

// MapTrainingGoal maps free text onto the fixed enum; anything that does
// not match a keyword becomes GoalOther.
func MapTrainingGoal(s string) TrainingGoal {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return GoalOther
	}
	for _, g := range goalKeywords {
		for _, w := range g.words {
			if strings.Contains(s, w) {
				return g.goal
			}
		}
	}
	return GoalOther
}

// Lead represents a row in the `leads` table.
type Lead struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone"`
	TrainingGoal     TrainingGoal `json:"trainingGoal"`
	Status           LeadStatus   `json:"status"`
	LostReason       string       `json:"lostReason"`
	Notes            string       `json:"notes"`
	AssignedSellerID *uint64      `json:"assignedSellerId"`
	ConvertedToUser  bool         `json:"convertedToUser"`
	EmailSent        bool         `json:"emailSent"`
	ProspectID       *uint64      `json:"prospectId"`
	Attribution
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewLead is the body accepted when staff create a lead directly.
type NewLead struct {
	Name             string  `json:"name" validate:"notblank"`
	Email            string  `json:"email" validate:"required,email"`
	Phone            string  `json:"phone" validate:"notblank"`
	TrainingGoal     string  `json:"trainingGoal"`
	Notes            string  `json:"notes"`
	AssignedSellerID *uint64 `json:"assignedSellerId"`
	Attribution
}

// LeadUpdate is a partial update of the editable lead fields.  Status is
// changed through the conversion workflow, not here.
type LeadUpdate struct {
	Name         *string `json:"name"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	TrainingGoal *string `json:"trainingGoal"`
	Notes        *string `json:"notes"`
}

// LeadFilter narrows lead listings.
type LeadFilter struct {
	Status   LeadStatus
	SellerID uint64
	Search   string
	Limit    int
	Offset   int
}

// LeadFromProspect carries the fields staff confirm when qualifying a
// prospect.  Empty Email keeps the prospect's.
type LeadFromProspect struct {
	Name             string  `json:"name" validate:"notblank"`
	Phone            string  `json:"phone" validate:"notblank"`
	TrainingGoal     string  `json:"trainingGoal" validate:"notblank"`
	Email            string  `json:"email" validate:"omitempty,email"`
	Notes            string  `json:"notes"`
	AssignedSellerID *uint64 `json:"assignedSellerId"`
}

// StatusChange is the body of the lead and member status endpoints.
type StatusChange struct {
	Status string `json:"status" validate:"notblank"`
	Reason string `json:"reason"`
}
