package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is an account holder transactions are attributed to.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks user fields on create.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: email %q is not valid", ErrValidation, u.Email)
	}
	return nil
}
