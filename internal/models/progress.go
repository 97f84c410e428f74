package models

// ConsoleUpdate is pushed to browser clients whenever a console changes.
type ConsoleUpdate struct {
	ConsoleID string `json:"console_id"`
	Cycle     uint64 `json:"cycle"`
	Busy      bool   `json:"busy"`
	LogLines  int    `json:"log_lines"`
	Error     string `json:"error,omitempty"`
	HasReadme bool   `json:"has_readme"`
	// Panel is the server-rendered HTML for the console output area.
	Panel string `json:"panel"`
}
