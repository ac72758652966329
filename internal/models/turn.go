package models

// Turn captures an individual role-tagged message in the interview transcript.

type Role string

const (
	RoleSystem      Role = "system"
	RoleInterviewer Role = "interviewer"
	RoleRespondent  Role = "respondent"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Display, when set, replaces Content in respondent-facing views. Stored
	// transcripts always keep Content.
	Display string `json:"display,omitempty"`
}
