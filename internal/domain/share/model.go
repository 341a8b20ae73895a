package share

const (
	// Subject is the fixed subject line of every shared summary.
	Subject = "Your AI-Generated Meeting Summary"
	// SuccessMessage is returned once the transport accepted the mail.
	SuccessMessage = "Summary shared successfully via email."
)

// Request is the share payload.
type Request struct {
	RecipientEmail string `json:"recipientEmail" validate:"required,email"`
	Summary        string `json:"summary" validate:"required"`
}

// Response acknowledges a sent summary.
type Response struct {
	Message string `json:"message"`
}

// Message is a rendered mail ready for the transport.
type Message struct {
	To      string
	Subject string
	HTML    string
}
