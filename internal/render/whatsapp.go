// Package render maps outbound message descriptors to WhatsApp Cloud API
// payloads. The mapping is pure and total: every descriptor kind produces
// exactly one payload shape.
package render

import "github.com/civicpulse/engagement-platform/internal/model"

// Payload is the provider-level message body, minus the recipient fields
// which the sender fills in.
type Payload struct {
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Image       *Image       `json:"image,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// Text is a plain text body.
type Text struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// Image is an image link with caption.
type Image struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// Interactive is a list or button message.
type Interactive struct {
	Type   string  `json:"type"`
	Header *Header `json:"header,omitempty"`
	Body   Body    `json:"body"`
	Footer *Footer `json:"footer,omitempty"`
	Action Action  `json:"action"`
}

// Header is an interactive message header.
type Header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Body is an interactive message body.
type Body struct {
	Text string `json:"text"`
}

// Footer is an interactive message footer.
type Footer struct {
	Text string `json:"text"`
}

// Action carries the list sections or reply buttons.
type Action struct {
	Button   string    `json:"button,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Buttons  []Button  `json:"buttons,omitempty"`
}

// Section is a titled group of list rows.
type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Row is one selectable list entry.
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Button is one reply button.
type Button struct {
	Type  string      `json:"type"`
	Reply ButtonReply `json:"reply"`
}

// ButtonReply is the reply button's ID and label.
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Render converts an outbound descriptor to its channel payload.
func Render(r model.Reply) Payload {
	switch v := r.(type) {
	case model.TextReply:
		return Payload{
			Type: "text",
			Text: &Text{PreviewURL: false, Body: v.Body},
		}

	case model.ImageReply:
		return Payload{
			Type:  "image",
			Image: &Image{Link: v.URL, Caption: v.Caption},
		}

	case model.ListReply:
		sections := make([]Section, 0, len(v.Sections))
		for _, s := range v.Sections {
			rows := make([]Row, 0, len(s.Rows))
			for _, row := range s.Rows {
				rows = append(rows, Row{ID: row.ID, Title: row.Title, Description: row.Description})
			}
			sections = append(sections, Section{Title: s.Title, Rows: rows})
		}

		return Payload{
			Type: "interactive",
			Interactive: &Interactive{
				Type:   "list",
				Header: &Header{Type: "text", Text: v.Header},
				Body:   Body{Text: v.Body},
				Footer: &Footer{Text: v.Footer},
				Action: Action{Button: v.Button, Sections: sections},
			},
		}

	case model.ButtonsReply:
		buttons := make([]Button, 0, len(v.Buttons))
		for _, b := range v.Buttons {
			buttons = append(buttons, Button{Type: "reply", Reply: ButtonReply{ID: b.ID, Title: b.Title}})
		}

		return Payload{
			Type: "interactive",
			Interactive: &Interactive{
				Type:   "button",
				Body:   Body{Text: v.Body},
				Action: Action{Buttons: buttons},
			},
		}
	}

	// Unreachable with the closed descriptor union.
	return Payload{Type: "text", Text: &Text{Body: ""}}
}
