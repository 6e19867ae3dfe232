package domain

import "time"

// AccountStatus representa el estado de una cuenta.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusLocked    AccountStatus = "LOCKED"
	StatusSuspended AccountStatus = "SUSPENDED"
)

// User representa una cuenta registrada del portal.
type User struct {
	ID              string        `json:"id"`
	Email           string        `json:"email"`
	Name            string        `json:"name,omitempty"`
	Role            string        `json:"role,omitempty"`
	Status          AccountStatus `json:"status"`
	Phone           string        `json:"phone,omitempty"`
	Address         string        `json:"address,omitempty"`
	Tax             string        `json:"tax,omitempty"`
	Province        string        `json:"province,omitempty"`
	Ward            string        `json:"ward,omitempty"`
	Image           string        `json:"image,omitempty"`
	AuthProvider    string        `json:"auth_provider,omitempty"`
	AuthSubject     string        `json:"-"`
	PasswordHash    string        `json:"-"`
	EmailVerifiedAt *time.Time    `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// HasPassword indica si la cuenta admite login con credenciales.
// Cuentas creadas solo via OAuth no tienen hash de password.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Sanitized devuelve una copia sin el hash de password.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
