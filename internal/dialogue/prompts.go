package dialogue

import (
	"fmt"

	"github.com/civicpulse/engagement-platform/internal/model"
)

// Issue categories offered at ISSUE_CATEGORY, keyed by the 1-9 selector.
var categories = map[string]string{
	"1": "Water & Drainage",
	"2": "Roads & Infrastructure",
	"3": "Electricity",
	"4": "Public Transport",
	"5": "Education",
	"6": "Healthcare",
	"7": "Women Safety",
	"8": "Employment",
	"9": "Others",
}

var categoryOrder = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}

// Participation modes offered at PARTICIPATION_TYPE. Free text is accepted
// verbatim for anything outside the 1-4 selectors.
var participationOptions = map[string]string{
	"1": "Volunteer @ Booth",
	"2": "Organise Meetings",
	"3": "Spread Information",
	"4": "Future Coordination",
}

var participationOrder = []string{"1", "2", "3", "4"}

const skipKeyword = "SKIP"

// skippedSentinel is stored in place of a description the user skipped.
const skippedSentinel = "SKIPPED"

const footerText = "Voter Support"

const msgWelcome = `Vanakkam 🙏

This is the official constituency helpline.

We are building a structured, booth-level understanding of issues in this constituency so that future priorities are based on real voter input.

To continue, please enter your *EPIC number* (Voter ID number).

Example: *ABC1234567*`

const msgInvalidEPIC = `Please enter a valid EPIC number in the correct format.
Example: *ABC1234567*`

const msgEPICNotFound = `We could not locate this EPIC number in our constituency records.

Please verify and enter again.
If you believe this is an error, you may contact your booth-level representative.`

const msgSystemError = "⚠️ *System Error*\n\nPlease try again in a moment."

const msgMenuHelp = `❓ Please reply with a valid option:

1️⃣ Raise an Issue
2️⃣ Share a Suggestion
3️⃣ Volunteer with Us
4️⃣ Receive Campaign Updates

_Reply with 1, 2, 3, or 4_`

const msgShareLocation = `Please share your location (Pin or Live Location) or type *SKIP*.`

const msgAlreadySubscribed = `✅ You are already subscribed to campaign updates!

Our booth or ward organiser will get in touch with you shortly.

_Send *Hi* anytime to start again._`

func (e *Engine) welcomeReply() model.Reply {
	return model.ImageReply{
		URL:     e.assetBaseURL + "/assets/welcome.jpg",
		Caption: msgWelcome,
	}
}

func verifiedMenuReply(v model.VoterRecord) model.Reply {
	body := fmt.Sprintf(`Thank you, *%s*.

We have identified you as a voter from:

📍 *Booth:* %s
🏛️ *Assembly:* %s
🏛️ *Parliament:* %s

We are documenting concerns booth-wise so that real priorities are shaped by people like you.

How would you like to engage today?`,
		v.Name, orNA(fmt.Sprintf("%d", v.PartNumber)), orNA(v.AssemblyName), orNA(v.ParliamentName))

	return model.ListReply{
		Header: "Voter Engagement",
		Body:   body,
		Footer: footerText,
		Button: "Select Option",
		Sections: []model.ListSection{
			{
				Title: "Main Menu",
				Rows: []model.ListRow{
					{ID: "1", Title: "🔴 Report local issue", Description: "Report civic or local problems"},
					{ID: "2", Title: "💡 Ideas & Improvements", Description: "Give your ideas"},
					{ID: "3", Title: "🤝 Participate", Description: "Collaborate with us"},
					{ID: "4", Title: "📢 Stay informed", Description: "Get campaign updates"},
				},
			},
		},
	}
}

func categoryReply(voterName string) model.Reply {
	rows := make([]model.ListRow, 0, len(categoryOrder))
	for _, id := range categoryOrder {
		title := categories[id]
		rows = append(rows, model.ListRow{
			ID:          id,
			Title:       fmt.Sprintf("%s. %s", id, title),
			Description: "Report issues related to " + title,
		})
	}

	return model.ListReply{
		Header: "📝 Report an Issue",
		Body:   fmt.Sprintf("Thank you, *%s*.\n\nPlease select the area where you are facing a concern:", voterName),
		Footer: footerText,
		Button: "Select Category",
		Sections: []model.ListSection{
			{Title: "Common Categories", Rows: rows},
		},
	}
}

func invalidCategoryReply() model.Reply {
	return model.TextReply{Body: `❌ Invalid selection. Please reply with a number (1-9):

1️⃣ Water & Drainage
2️⃣ Roads & Infrastructure
3️⃣ Electricity
4️⃣ Public Transport
5️⃣ Education
6️⃣ Healthcare
7️⃣ Women Safety
8️⃣ Employment
9️⃣ Others`}
}

func suggestionPromptReply() model.Reply {
	return model.TextReply{Body: `We believe strong constituencies are built not just by solving issues, but by listening to constructive ideas.

Please share your suggestion in up to 250 characters.`}
}

func participationReply(voterName string) model.Reply {
	rows := make([]model.ListRow, 0, len(participationOrder))
	for _, id := range participationOrder {
		rows = append(rows, model.ListRow{ID: id, Title: participationOptions[id]})
	}

	return model.ListReply{
		Header: "🤝 Participate",
		Body:   fmt.Sprintf("That's encouraging to hear, *%s*.\n\nHow would you like to participate?", voterName),
		Footer: footerText,
		Button: "Select Mode",
		Sections: []model.ListSection{
			{Title: "Options", Rows: rows},
		},
	}
}

func descriptionPromptReply() model.Reply {
	return skipButtonsReply(`Please describe the situation briefly (up to 250 characters).

Specific details help us understand recurring patterns in your booth.

You may also type *SKIP*.`)
}

func locationPromptReply(purpose string) model.Reply {
	return skipButtonsReply(fmt.Sprintf(`To help us %s, please share the location (Pin or Live Location).

You may also type *SKIP* or use the button below.`, purpose))
}

func skipButtonsReply(body string) model.Reply {
	return model.ButtonsReply{
		Body:    body,
		Buttons: []model.Button{{ID: skipKeyword, Title: skipKeyword}},
	}
}

func issueConfirmation(v *model.VoterRecord, hasLocation bool) string {
	received := ""
	followUp := "Our ward organiser will connect with you shortly."
	if hasLocation {
		received = " Your location has been received."
		followUp = "*Our team will visit the spot soon to solve the issue.*"
	}

	return fmt.Sprintf(`Thank you, *%s*.%s

Your concern from Booth %d has been recorded.

We are analysing inputs booth-wise to identify recurring problems and priority areas.
%s

Your participation helps shape structured change in %s.

_Send *Hi* anytime to start again._`,
		v.Name, received, v.PartNumber, followUp, orNA(v.AssemblyName))
}

func suggestionConfirmation(v *model.VoterRecord, hasLocation bool) string {
	received := ""
	if hasLocation {
		received = " Your location has been received."
	}

	return fmt.Sprintf(`Thank you, *%s*.%s

Your suggestion from Booth %d has been noted.

All ideas are reviewed collectively to guide long-term planning for %s.

_Send *Hi* anytime to start again._`,
		v.Name, received, v.PartNumber, orNA(v.AssemblyName))
}

func volunteerConfirmation(v *model.VoterRecord, hasLocation bool) string {
	received := ""
	if hasLocation {
		received = "Your location has been received. "
	}

	return fmt.Sprintf(`Thank you.

%sOur organiser from Booth %d will contact you with next steps.

_Send *Hi* anytime to start again._`,
		received, v.PartNumber)
}

func subscriptionConfirmation(v *model.VoterRecord) string {
	return fmt.Sprintf(`You will receive updates relevant to Booth %d and %s.

We aim to keep communication transparent and focused on constituency priorities.

_Send *Hi* anytime to start again._`,
		v.PartNumber, orNA(v.AssemblyName))
}

func lengthErrorReply(length int, noun string) model.Reply {
	return model.TextReply{Body: fmt.Sprintf("⚠️ Your %s is too long (%d characters). Please keep it under 250 characters.", noun, length)}
}

func orNA(s string) string {
	if s == "" || s == "0" {
		return "N/A"
	}
	return s
}
