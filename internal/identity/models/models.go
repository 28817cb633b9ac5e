package models

import (
	"strings"
	"time"

	"tuition/pkg/validation"
)

// User is a registered account. PasswordHash never leaves the store.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterRequest is the body of POST {base}/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks a trimmed copy of the email. The request itself is stored
// and echoed exactly as submitted.
func (r *RegisterRequest) Validate() error {
	c := *r
	c.Email = strings.TrimSpace(c.Email)
	return validation.Validate(&c)
}

// EmailKey is the form under which an email is unique: surrounding space
// dropped, letters lowercased. The SQL stores index the same expression.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func ToResponse(u *User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func ToResponses(users []*User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToResponse(u))
	}
	return out
}
