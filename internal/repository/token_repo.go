package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctv-portal/internal/domain"
)

// TokenRepository define la persistencia de tokens de verificacion y reset.
//
// Las operaciones Consume* son transaccionales: la mutacion de la cuenta y
// el borrado del token se confirman juntos o ninguno. Si el token ya fue
// borrado por una consumicion concurrente, devuelven pgx.ErrNoRows.
type TokenRepository interface {
	CreateVerification(ctx context.Context, token domain.VerificationToken) error
	GetVerificationByToken(ctx context.Context, token string) (domain.VerificationToken, error)
	DeleteVerification(ctx context.Context, id string) error
	ConsumeVerification(ctx context.Context, tokenID, userID, email string, verifiedAt time.Time) error

	ReplaceReset(ctx context.Context, token domain.PasswordResetToken) error
	GetResetByToken(ctx context.Context, token string) (domain.PasswordResetToken, error)
	DeleteReset(ctx context.Context, id string) error
	ConsumeReset(ctx context.Context, tokenID, userID, passwordHash string) error
}

// PgTokenRepository implementa TokenRepository usando pgxpool.
type PgTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgTokenRepository(pool *pgxpool.Pool) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

func (r *PgTokenRepository) CreateVerification(ctx context.Context, token domain.VerificationToken) error {
	const query = `
		INSERT INTO verification_tokens (id, email, token, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, token.ID, token.Email, token.Token, token.ExpiresAt)
	return err
}

func (r *PgTokenRepository) GetVerificationByToken(ctx context.Context, token string) (domain.VerificationToken, error) {
	const query = `
		SELECT id, email, token, expires_at
		FROM verification_tokens
		WHERE token = $1
	`
	var t domain.VerificationToken
	err := r.pool.QueryRow(ctx, query, token).Scan(&t.ID, &t.Email, &t.Token, &t.ExpiresAt)
	if err != nil {
		return domain.VerificationToken{}, err
	}
	return t, nil
}

func (r *PgTokenRepository) DeleteVerification(ctx context.Context, id string) error {
	const query = `DELETE FROM verification_tokens WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ConsumeVerification marca el email como verificado y borra el token en una
// sola transaccion. Reafirma el email del token sobre la cuenta.
func (r *PgTokenRepository) ConsumeVerification(ctx context.Context, tokenID, userID, email string, verifiedAt time.Time) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const updateUser = `UPDATE users SET email_verified_at = $2, email = $3 WHERE id = $1`
		if _, err := tx.Exec(ctx, updateUser, userID, verifiedAt, email); err != nil {
			return err
		}
		const deleteToken = `DELETE FROM verification_tokens WHERE id = $1`
		tag, err := tx.Exec(ctx, deleteToken, tokenID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

// ReplaceReset garantiza a lo sumo un token de reset vivo por email:
// borra los existentes e inserta el nuevo dentro de una transaccion.
func (r *PgTokenRepository) ReplaceReset(ctx context.Context, token domain.PasswordResetToken) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const deleteOld = `DELETE FROM password_reset_tokens WHERE email = $1`
		if _, err := tx.Exec(ctx, deleteOld, token.Email); err != nil {
			return err
		}
		const insert = `
			INSERT INTO password_reset_tokens (id, email, token, expires_at)
			VALUES ($1, $2, $3, $4)
		`
		_, err := tx.Exec(ctx, insert, token.ID, token.Email, token.Token, token.ExpiresAt)
		return err
	})
}

func (r *PgTokenRepository) GetResetByToken(ctx context.Context, token string) (domain.PasswordResetToken, error) {
	const query = `
		SELECT id, email, token, expires_at
		FROM password_reset_tokens
		WHERE token = $1
	`
	var t domain.PasswordResetToken
	err := r.pool.QueryRow(ctx, query, token).Scan(&t.ID, &t.Email, &t.Token, &t.ExpiresAt)
	if err != nil {
		return domain.PasswordResetToken{}, err
	}
	return t, nil
}

func (r *PgTokenRepository) DeleteReset(ctx context.Context, id string) error {
	const query = `DELETE FROM password_reset_tokens WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ConsumeReset actualiza el hash de password y borra el token en una sola
// transaccion. De dos consumiciones concurrentes solo una confirma; la otra
// observa el token ya borrado.
func (r *PgTokenRepository) ConsumeReset(ctx context.Context, tokenID, userID, passwordHash string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const updateUser = `UPDATE users SET password_hash = $2 WHERE id = $1`
		if _, err := tx.Exec(ctx, updateUser, userID, passwordHash); err != nil {
			return err
		}
		const deleteToken = `DELETE FROM password_reset_tokens WHERE id = $1`
		tag, err := tx.Exec(ctx, deleteToken, tokenID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *PgTokenRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
