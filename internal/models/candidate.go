package models

import "time"

type Candidate struct {
	ID             string `json:"id"` // uuid v4
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ResumeFileName string `json:"resume_file_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	Completed bool      `json:"completed"`

	// A candidate owns at most one session, created once profile
	// collection begins. Never deleted, only marked completed.
	Session *Session `json:"session,omitempty"`
}

type ProfileField string

const (
	FieldName  ProfileField = "name"
	FieldEmail ProfileField = "email"
	FieldPhone ProfileField = "phone"
)

// ProfileFieldOrder is the order in which missing fields are prompted.
var ProfileFieldOrder = []ProfileField{FieldName, FieldEmail, FieldPhone}

func (c *Candidate) FieldValue(f ProfileField) string {
	switch f {
	case FieldName:
		return c.Name
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	}
	return ""
}

func (c *Candidate) ProfileComplete() bool {
	return c.Name != "" && c.Email != "" && c.Phone != ""
}
