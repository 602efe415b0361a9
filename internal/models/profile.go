package models

import (
	"errors"
	"strings"
	"time"
)

// Profile is the identity a device is paired with. Task records are scoped
// to a profile.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that the profile has valid field values.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}
	if strings.TrimSpace(p.Username) == "" {
		return errors.New("username is required")
	}
	if len(p.Username) > 64 {
		return errors.New("username must be 64 characters or fewer")
	}
	return nil
}
