package model

// Input is the tagged union of inbound message payloads handed to the
// dialogue engine by the channel adapter.
type Input interface {
	isInput()
}

// TextInput carries the body of a plain text message or the selected ID of an
// interactive reply.
type TextInput struct {
	Body string
}

// LocationInput carries a shared pin or live location.
type LocationInput struct {
	Latitude  float64
	Longitude float64
}

func (TextInput) isInput()     {}
func (LocationInput) isInput() {}
