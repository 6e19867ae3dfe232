package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ctv-portal/internal/domain"
	"ctv-portal/internal/email"
	"ctv-portal/internal/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrOAuthInvalid       = errors.New("oauth data invalid")
	ErrRateLimited        = errors.New("rate limited")
)

// El envio de correo es best effort y acotado: un proveedor lento no puede
// colgar un registro o un reset que ya confirmo su escritura en la base.
const emailSendTimeout = 10 * time.Second

// AuthService orquesta los flujos de autenticacion: registro, login,
// verificacion de email y recuperacion de password.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	loginLogs   repository.LoginLogRepository
	tokens      *TokenService
	settings    *SettingsCache
	emailSender email.Sender
	limiter     RequestRateLimiter
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	loginLogs repository.LoginLogRepository,
	tokens *TokenService,
	settings *SettingsCache,
	emailSender email.Sender,
	limiter RequestRateLimiter,
) *AuthService {
	if limiter == nil {
		limiter = NewRequestRateLimiter(resetTokenTTL, 3)
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		loginLogs:   loginLogs,
		tokens:      tokens,
		settings:    settings,
		emailSender: emailSender,
		limiter:     limiter,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type RegisterResult struct {
	User          domain.User
	VerifyEnabled bool
}

// Register crea una cuenta nueva con credenciales. Si el flag VERIFY_EMAIL
// esta activo emite un token de verificacion y envia el correo; un fallo en
// el envio se loguea pero no revierte la creacion de la cuenta.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	emailAddr := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if emailAddr == "" {
		return RegisterResult{}, ErrInvalidEmail
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return RegisterResult{}, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return RegisterResult{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResult{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		Name:         name,
		Role:         "CLIENT",
		Status:       domain.StatusActive,
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return RegisterResult{}, err
	}

	verifyEnabled := s.settings != nil && s.settings.IsVerifyEmailEnabled(ctx)
	if verifyEnabled {
		if err := s.sendVerification(ctx, user); err != nil && s.logger != nil {
			s.logger.Warn("send verification email failed",
				zap.Error(err), zap.String("email", user.Email))
		}
	}

	return RegisterResult{User: user.Sanitized(), VerifyEnabled: verifyEnabled}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user domain.User) error {
	token, err := s.tokens.IssueVerificationToken(ctx, user.Email)
	if err != nil {
		return err
	}
	if s.emailSender == nil {
		return errors.New("email sender not configured")
	}
	sendCtx, cancel := context.WithTimeout(ctx, emailSendTimeout)
	defer cancel()
	return s.emailSender.SendVerificationEmail(sendCtx, user.Email, user.Name, token.Token, s.branding(ctx))
}

type LoginInput struct {
	Email           string
	Password        string
	UserAgentHeader string
	IPAddress       string
	Location        string
}

// Authenticate valida credenciales contra la cuenta almacenada.
//
// Devuelve ErrInvalidCredentials indistintamente cuando la cuenta no existe,
// no tiene password (solo OAuth) o el password no coincide, para no filtrar
// cual de las tres fallo. Los estados LOCKED y SUSPENDED si se distinguen.
// La cuenta devuelta nunca lleva el hash de password.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	password := input.Password
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !user.HasPassword() {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	switch user.Status {
	case domain.StatusLocked:
		return domain.User{}, ErrAccountLocked
	case domain.StatusSuspended:
		return domain.User{}, ErrAccountSuspended
	}

	if input.UserAgentHeader != "" {
		s.recordLogin(ctx, user, input)
	}

	return user.Sanitized(), nil
}

// recordLogin agrega una fila al historial de accesos. Un fallo aqui no
// bloquea el login.
func (s *AuthService) recordLogin(ctx context.Context, user domain.User, input LoginInput) {
	if s.loginLogs == nil {
		return
	}
	parsed := ParseUserAgent(input.UserAgentHeader)
	log := domain.LoginLog{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		IPAddress:    input.IPAddress,
		Browser:      parsed.Browser,
		OS:           parsed.OS,
		DeviceType:   parsed.DeviceType,
		Location:     input.Location,
		ActivityType: domain.ActivityLoginSuccess,
		LoginTime:    time.Now().UTC(),
	}
	if err := s.loginLogs.Create(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("login log write failed", zap.Error(err), zap.String("user_id", user.ID))
	}
}

// RequestPasswordReset emite un token de reset y envia el correo. Si el email
// no esta registrado no hace nada y tampoco lo revela: el caller responde el
// mismo mensaje generico en ambos casos.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}

	if s.limiter != nil && !s.limiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := s.tokens.IssueResetToken(ctx, user.Email)
	if err != nil {
		return err
	}

	if s.emailSender == nil {
		return nil
	}
	name := user.Name
	if name == "" {
		name = "Thành viên"
	}
	sendCtx, cancel := context.WithTimeout(ctx, emailSendTimeout)
	defer cancel()
	if err := s.emailSender.SendPasswordResetEmail(sendCtx, user.Email, name, token.Token, s.branding(ctx)); err != nil && s.logger != nil {
		s.logger.Warn("send password reset email failed",
			zap.Error(err), zap.String("email", user.Email))
	}
	return nil
}

// ResetPassword consume un token de reset y fija el nuevo password.
func (s *AuthService) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.tokens.ConsumeResetToken(ctx, tokenValue, string(hashBytes))
}

// VerifyEmail consume un token de verificacion y devuelve la cuenta
// actualizada sin hash.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenValue string) (domain.User, error) {
	user, err := s.tokens.ConsumeVerificationToken(ctx, tokenValue)
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

// CheckVerifyStatus indica si el email de la cuenta ya fue verificado.
// Un email desconocido cuenta como no verificado.
func (s *AuthService) CheckVerifyStatus(ctx context.Context, emailAddr string) (bool, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return false, ErrInvalidEmail
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return user.EmailVerifiedAt != nil, nil
}

// ChangePassword fija un nuevo password para una cuenta autenticada.
// Cuentas solo-OAuth no tienen password que cambiar.
func (s *AuthService) ChangePassword(ctx context.Context, emailAddr, newPassword string) error {
	emailAddr = normalizeEmail(emailAddr)
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.HasPassword() {
		return ErrUserNotFound
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hashBytes))
}

type ProfileInput struct {
	Name     string
	Phone    string
	Address  string
	Tax      string
	Province string
	Ward     string
}

// UpdateProfile actualiza los datos de perfil de la cuenta.
func (s *AuthService) UpdateProfile(ctx context.Context, emailAddr string, input ProfileInput) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	user.Name = strings.TrimSpace(input.Name)
	user.Phone = strings.TrimSpace(input.Phone)
	user.Address = strings.TrimSpace(input.Address)
	user.Tax = strings.TrimSpace(input.Tax)
	user.Province = strings.TrimSpace(input.Province)
	user.Ward = strings.TrimSpace(input.Ward)

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

// RecentDevices devuelve las ultimas entradas del historial de accesos.
func (s *AuthService) RecentDevices(ctx context.Context, limit int) ([]domain.LoginLog, error) {
	if s.loginLogs == nil {
		return nil, nil
	}
	return s.loginLogs.ListRecent(ctx, limit)
}

type OAuthInput struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// UpsertOAuthUser resuelve un login OAuth: devuelve la cuenta vinculada al
// par provider/subject, vincula una cuenta existente por email, o crea una
// nueva. Un login OAuth con email implica email verificado.
func (s *AuthService) UpsertOAuthUser(ctx context.Context, input OAuthInput) (domain.User, error) {
	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	subject := strings.TrimSpace(input.Subject)
	emailAddr := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	if provider == "" || subject == "" {
		return domain.User{}, ErrOAuthInvalid
	}

	user, err := s.users.GetByAuth(ctx, provider, subject)
	if err == nil {
		return user.Sanitized(), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	if emailAddr != "" {
		existing, err := s.users.GetByEmail(ctx, emailAddr)
		if err == nil {
			if err := s.users.LinkOAuth(ctx, existing.ID, provider, subject); err != nil {
				return domain.User{}, err
			}
			verifiedAt := time.Now().UTC()
			if err := s.users.VerifyEmail(ctx, existing.ID, verifiedAt); err != nil {
				return domain.User{}, err
			}
			existing.AuthProvider = provider
			existing.AuthSubject = subject
			existing.EmailVerifiedAt = &verifiedAt
			if name != "" && existing.Name == "" {
				existing.Name = name
			}
			return existing.Sanitized(), nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
	}

	verifiedAt := time.Now().UTC()
	user = domain.User{
		ID:              uuid.NewString(),
		Email:           emailAddr,
		Name:            name,
		Role:            "CLIENT",
		Status:          domain.StatusActive,
		AuthProvider:    provider,
		AuthSubject:     subject,
		EmailVerifiedAt: &verifiedAt,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

func (s *AuthService) branding(ctx context.Context) email.Branding {
	return email.Branding{
		SiteName:       s.stringSetting(ctx, domain.ConfigSiteName, "CTV Tiktok"),
		CompanyAddress: s.stringSetting(ctx, domain.ConfigCompanyAddress, ""),
		CompanyHotline: s.stringSetting(ctx, domain.ConfigCompanyHotline, ""),
	}
}

func (s *AuthService) stringSetting(ctx context.Context, key, fallback string) string {
	if s.settings == nil {
		return fallback
	}
	if val, ok := s.settings.Get(ctx, key, fallback).(string); ok && val != "" {
		return val
	}
	return fallback
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
