package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"

	"ctv-portal/internal/domain"
	"ctv-portal/internal/repository"
)

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
	ErrSessionStale   = errors.New("session account not found")
)

const defaultSessionTTL = 30 * 24 * time.Hour

// SessionClaims es el snapshot de perfil embebido en el token de sesion,
// para acceso rapido sin ir a la base en cada request. Nunca incluye el
// hash de password.
type SessionClaims struct {
	UserID   string `json:"uid"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Tax      string `json:"tax,omitempty"`
	Province string `json:"province,omitempty"`
	Ward     string `json:"ward,omitempty"`
	Address  string `json:"address,omitempty"`
	Status   string `json:"status,omitempty"`
	Image    string `json:"image,omitempty"`
	jwt.RegisteredClaims
}

// Session es el token firmado entregado al cliente.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionService emite, valida y refresca tokens de sesion JWT (HS256).
//
// La expiracion es absoluta: 30 dias desde la emision inicial. Refresh
// re-deriva los claims desde la cuenta pero conserva la expiracion y el jti
// originales, no hay renovacion deslizante.
type SessionService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	users   repository.UserRepository
	revoked SessionStore
}

func NewSessionService(secret string, ttl time.Duration, users repository.UserRepository) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  "ctv-portal",
		users:   users,
		revoked: NewMemorySessionStore(),
	}
}

func NewSessionServiceWithStore(secret string, ttl time.Duration, users repository.UserRepository, store SessionStore) *SessionService {
	svc := NewSessionService(secret, ttl, users)
	if store != nil {
		svc.revoked = store
	}
	return svc
}

// IssueSession crea una sesion nueva con claims derivados de la cuenta.
func (s *SessionService) IssueSession(user domain.User) (Session, error) {
	if len(s.secret) == 0 {
		return Session{}, ErrSessionInvalid
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()
	signed, err := s.sign(claimsFromUser(user), jti, now, expiresAt)
	if err != nil {
		return Session{}, err
	}
	if s.revoked != nil {
		if err := s.revoked.Store(jti, user.ID, s.ttl); err != nil {
			return Session{}, err
		}
	}
	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// ParseSession valida el token y devuelve sus claims. Una sesion revocada
// (logout) es invalida aunque la firma y la expiracion esten bien.
func (s *SessionService) ParseSession(token string) (SessionClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return SessionClaims{}, err
	}
	if s.revoked != nil && claims.ID != "" {
		ok, err := s.revoked.Exists(claims.ID)
		if err != nil || !ok {
			return SessionClaims{}, ErrSessionInvalid
		}
	}
	return claims, nil
}

// RefreshSession re-deriva los claims desde una lectura fresca de la cuenta,
// buscando por el email actual de la sesion. Si el email cambio por otra via
// sin actualizar la sesion, la cuenta no se encuentra y la sesion queda
// stale; limitacion conocida, no se resuelve aca.
func (s *SessionService) RefreshSession(ctx context.Context, token string) (Session, error) {
	claims, err := s.ParseSession(token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionStale
		}
		return Session{}, err
	}

	// Mismo jti y misma expiracion: solo cambian los claims de perfil.
	expiresAt := claims.ExpiresAt.Time
	signed, err := s.sign(claimsFromUser(user), claims.ID, time.Now().UTC(), expiresAt)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// RevokeSession invalida la sesion (logout).
func (s *SessionService) RevokeSession(token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if s.revoked == nil || claims.ID == "" {
		return ErrSessionInvalid
	}
	return s.revoked.Revoke(claims.ID)
}

func claimsFromUser(user domain.User) SessionClaims {
	return SessionClaims{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Phone:    user.Phone,
		Tax:      user.Tax,
		Province: user.Province,
		Ward:     user.Ward,
		Address:  user.Address,
		Status:   string(user.Status),
		Image:    user.Image,
	}
}

func (s *SessionService) sign(claims SessionClaims, jti string, now, expiresAt time.Time) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		Issuer:    s.issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionService) parse(tokenString string) (SessionClaims, error) {
	if len(s.secret) == 0 {
		return SessionClaims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return SessionClaims{}, ErrSessionInvalid
	}
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	if !s.validClaims(claims) {
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}

func (s *SessionService) validClaims(claims SessionClaims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
