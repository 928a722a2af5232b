// Package model defines data structures for the engagement platform.
package model

// VoterRecord is one row of the imported voter roll. The roll is read-only
// after import; the dialogue engine copies the matched record into the session
// at verification and never re-fetches it.
type VoterRecord struct {
	VoterID        string `json:"voterId"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	RelationName   string `json:"relationName"`
	Area           string `json:"area"`
	District       string `json:"district"`
	AssemblyName   string `json:"assemblyName"`
	PartNumber     int    `json:"partNumber"`
	ParliamentName string `json:"parliamentName"`
}
