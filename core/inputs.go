package core

import (
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// SignUpInput contains the data needed to register a new identity
type SignUpInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Email    string `json:"email" form:"email"`
}

// Validate checks that username and password are present
func (in SignUpInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// EmailOrNil returns nil for a blank email so it is stored as NULL.
// Any other value is stored exactly as submitted, since login matches it verbatim.
func (in SignUpInput) EmailOrNil() *string {
	if strings.TrimSpace(in.Email) == "" {
		return nil
	}
	email := in.Email
	return &email
}

// LoginInput contains the credentials for authentication.
// Identifier is matched against both username and email.
type LoginInput struct {
	Identifier string `json:"username" form:"username"`
	Password   string `json:"password" form:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Identifier, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// EventInput is the caller-supplied part of an event.
//
// TargetID is kept as raw JSON so that any scalar, including falsy ones like
// 0, "" or null, is accepted. Only a missing key leaves it nil.
type EventInput struct {
	EventType  string          `json:"event_type"`
	TargetType string          `json:"target_type"`
	TargetID   json.RawMessage `json:"target_id"`
	EventData  json.RawMessage `json:"event_data"`
}

func (in EventInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.EventType, validation.Required),
		validation.Field(&in.TargetType, validation.Required),
		validation.Field(&in.TargetID, validation.NotNil),
	)
}

// NormalizedEventData returns nil when no payload, or a JSON null, was sent
func (in EventInput) NormalizedEventData() json.RawMessage {
	trimmed := strings.TrimSpace(string(in.EventData))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return in.EventData
}
