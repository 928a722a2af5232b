// Package dialogue implements the conversation step engine: a per-user state
// machine that validates input, persists submission records and produces
// outbound message descriptors.
package dialogue

// Each dialogue state is its own type carrying exactly the draft fields
// collected before it, so a step can never read a field an earlier step did
// not set. All states implement session.State.

type awaitingID struct{}

type verifiedMenu struct{}

type issueCategory struct{}

type issueDescription struct {
	category string
}

type issueLocation struct {
	category    string
	description string
}

type suggestionText struct{}

type suggestionLocation struct {
	text string
}

type participationType struct{}

type volunteerLocation struct {
	participation string
}

type updatesLocation struct{}

func (awaitingID) DialogueState() string         { return "AWAITING_ID" }
func (verifiedMenu) DialogueState() string       { return "VERIFIED_MENU" }
func (issueCategory) DialogueState() string      { return "ISSUE_CATEGORY" }
func (issueDescription) DialogueState() string   { return "ISSUE_DESCRIPTION" }
func (issueLocation) DialogueState() string      { return "ISSUE_LOCATION" }
func (suggestionText) DialogueState() string     { return "SUGGESTION_TEXT" }
func (suggestionLocation) DialogueState() string { return "SUGGESTION_LOCATION" }
func (participationType) DialogueState() string  { return "PARTICIPATION_TYPE" }
func (volunteerLocation) DialogueState() string  { return "VOLUNTEER_LOCATION" }
func (updatesLocation) DialogueState() string    { return "UPDATES_LOCATION" }
