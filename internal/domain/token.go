package domain

import "time"

// VerificationToken autoriza la confirmacion de email de una cuenta.
// Un token es de un solo uso: consumirlo lo elimina.
type VerificationToken struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetToken autoriza un cambio de password.
// A lo sumo un token vivo por email.
type PasswordResetToken struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired indica si el token paso su fecha de expiracion.
func (t VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
