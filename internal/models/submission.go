package models

// Upload is a file picked by the user, held in memory until it is sent.
type Upload struct {
	Name string
	Data []byte
}

// SubmissionInput is what the user hands the console on submit.
// Neither field is required; the backend decides what it accepts.
type SubmissionInput struct {
	File    *Upload
	RepoURL string
}

// HasFile reports whether a non-nil file is attached.
func (in SubmissionInput) HasFile() bool {
	return in.File != nil
}

// GenerateResponse is the body returned by the generation endpoint.
// Exactly one of the fields is expected to be set.
type GenerateResponse struct {
	Readme string `json:"readme,omitempty"`
	Error  string `json:"error,omitempty"`
}
