package model

import "time"

// SubmissionKind discriminates the four record kinds produced by the dialogue.
type SubmissionKind string

const (
	KindGrievance  SubmissionKind = "grievance"
	KindSuggestion SubmissionKind = "suggestion"
	KindVolunteer  SubmissionKind = "volunteer"
	KindSubscriber SubmissionKind = "subscriber"
)

// Status values. Grievances move Open -> In Progress -> Resolved; suggestions
// and volunteers start Pending; subscribers are Active on creation.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusPending    = "Pending"
	StatusApproved   = "Approved"
	StatusActive     = "Active"
)

// Location is a point shared by the user during a flow, with derived fields.
// ActualAddress is empty when reverse geocoding was skipped or failed.
type Location struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	MapLink       string  `json:"mapLink"`
	ActualAddress string  `json:"actualAddress,omitempty"`
}

// Submission is the common shape of all four record kinds. Identity fields are
// denormalized from the voter snapshot at submission time and never re-joined.
type Submission struct {
	ID            string         `json:"id"`
	Kind          SubmissionKind `json:"kind"`
	ReferenceCode string         `json:"referenceCode"`

	VoterID     string `json:"voterId"`
	VoterName   string `json:"voterName"`
	PhoneNumber string `json:"phoneNumber"`

	// Flow content. Category and Message are set for grievances, Message for
	// suggestions, ParticipationType for volunteers.
	Category          string `json:"category,omitempty"`
	Message           string `json:"message,omitempty"`
	ParticipationType string `json:"participationType,omitempty"`

	Area           string `json:"area"`
	District       string `json:"district"`
	AssemblyName   string `json:"assemblyName"`
	PartNumber     int    `json:"partNumber"`
	ParliamentName string `json:"parliamentName,omitempty"`

	Location *Location `json:"location,omitempty"`

	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}
