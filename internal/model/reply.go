package model

// Reply is the tagged union of outbound message descriptors produced by the
// dialogue engine. The renderer maps each variant to exactly one channel
// payload.
type Reply interface {
	isReply()
}

// TextReply is a plain text message.
type TextReply struct {
	Body string
}

// ImageReply is an image with a caption. Used for the welcome message.
type ImageReply struct {
	URL     string
	Caption string
}

// ListRow is one selectable row in a list section.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection is a titled group of rows.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// ListReply is an interactive single-select list.
type ListReply struct {
	Header   string
	Body     string
	Footer   string
	Button   string
	Sections []ListSection
}

// Button is one reply button.
type Button struct {
	ID    string
	Title string
}

// ButtonsReply is an interactive button row.
type ButtonsReply struct {
	Body    string
	Buttons []Button
}

func (TextReply) isReply()    {}
func (ImageReply) isReply()   {}
func (ListReply) isReply()    {}
func (ButtonsReply) isReply() {}
