package domain

import "time"

// User es la cuenta de un candidato. Los campos con json:"-" nunca salen por la API.
type User struct {
	ID                     string     `json:"id"`
	FullName               string     `json:"fullName"`
	Email                  string     `json:"email"`
	PasswordHash           string     `json:"-"`
	Image                  *string    `json:"image"`
	Resume                 *string    `json:"resume"`
	IsVerified             bool       `json:"isVerified"`
	VerificationCodeHash   string     `json:"-"`
	VerificationExpiry     *time.Time `json:"-"`
	LastVerificationSentAt *time.Time `json:"-"`
	PasswordResetToken     string     `json:"-"`
	PasswordResetExpiry    *time.Time `json:"-"`
	RefreshToken           string     `json:"-"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}
