package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ctv-portal/internal/domain"
	"ctv-portal/internal/repository"
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)

// TokenService emite y consume tokens de verificacion de email y de reset de
// password. Los valores de token salen de uuid.NewString (fuente CSPRNG) y
// son de un solo uso: consumir borra la fila.
type TokenService struct {
	logger *zap.Logger
	tokens repository.TokenRepository
	users  repository.UserRepository
}

func NewTokenService(logger *zap.Logger, tokens repository.TokenRepository, users repository.UserRepository) *TokenService {
	return &TokenService{
		logger: logger,
		tokens: tokens,
		users:  users,
	}
}

// IssueVerificationToken crea un token de confirmacion de email con
// expiracion a 24 horas.
func (s *TokenService) IssueVerificationToken(ctx context.Context, email string) (domain.VerificationToken, error) {
	token := domain.VerificationToken{
		ID:        uuid.NewString(),
		Email:     normalizeEmail(email),
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(verificationTokenTTL),
	}
	if err := s.tokens.CreateVerification(ctx, token); err != nil {
		return domain.VerificationToken{}, err
	}
	return token, nil
}

// IssueResetToken crea un token de reset con expiracion a 1 hora.
// Reemplaza cualquier token previo del mismo email: el invariante de
// "a lo sumo un token vivo por email" es estructural, no incidental.
func (s *TokenService) IssueResetToken(ctx context.Context, email string) (domain.PasswordResetToken, error) {
	token := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		Email:     normalizeEmail(email),
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if err := s.tokens.ReplaceReset(ctx, token); err != nil {
		return domain.PasswordResetToken{}, err
	}
	return token, nil
}

// ConsumeVerificationToken valida el token, marca el email de la cuenta como
// verificado y borra el token, ambas cosas en una transaccion. Devuelve la
// cuenta actualizada.
func (s *TokenService) ConsumeVerificationToken(ctx context.Context, tokenValue string) (domain.User, error) {
	token, err := s.tokens.GetVerificationByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrTokenNotFound
		}
		return domain.User{}, err
	}
	if token.Expired(time.Now().UTC()) {
		// Limpieza oportunista: un token expirado es inerte, intentos
		// posteriores deben ver NotFound.
		if err := s.tokens.DeleteVerification(ctx, token.ID); err != nil && s.logger != nil {
			s.logger.Warn("delete expired verification token failed", zap.Error(err))
		}
		return domain.User{}, ErrTokenExpired
	}

	user, err := s.users.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	verifiedAt := time.Now().UTC()
	if err := s.tokens.ConsumeVerification(ctx, token.ID, user.ID, token.Email, verifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Otro consumidor borro el token primero.
			return domain.User{}, ErrTokenNotFound
		}
		return domain.User{}, err
	}

	user.Email = token.Email
	user.EmailVerifiedAt = &verifiedAt
	return user, nil
}

// ConsumeResetToken valida el token, actualiza el hash de password de la
// cuenta duenia y borra el token en una transaccion. Un token expirado se
// borra como efecto secundario antes de reportar ErrTokenExpired.
func (s *TokenService) ConsumeResetToken(ctx context.Context, tokenValue, newPasswordHash string) error {
	token, err := s.tokens.GetResetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return err
	}
	if token.Expired(time.Now().UTC()) {
		if err := s.tokens.DeleteReset(ctx, token.ID); err != nil && s.logger != nil {
			s.logger.Warn("delete expired reset token failed", zap.Error(err))
		}
		return ErrTokenExpired
	}

	user, err := s.users.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.tokens.ConsumeReset(ctx, token.ID, user.ID, newPasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return err
	}
	return nil
}
