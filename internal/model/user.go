package model

import (
	"fmt"
	"strings"
)

// User is the signed-in identity record. It is the only client state that
// survives a restart.
type User struct {
	Name    string `json:"name" db:"name"`
	Email   string `json:"email" db:"email"`
	Picture string `json:"picture" db:"picture"`

	// Subject is the identity provider's stable user id.
	Subject string `json:"sub" db:"subject"`
}

// DisplayName returns the name, or the local part of the email address
// when no name is set.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// FromHeader renders the user as "Name <email>".
func (u User) FromHeader() string {
	return fmt.Sprintf("%s <%s>", u.DisplayName(), u.Email)
}

// Validate checks the fields required for a session.
func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("user email must not be empty")
	}
	return nil
}
