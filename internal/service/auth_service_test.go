package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ctv-portal/internal/domain"
	"ctv-portal/internal/email"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	usersByAuth  map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
		usersByAuth:  make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	if user.AuthProvider != "" && user.AuthSubject != "" {
		m.usersByAuth[user.AuthProvider+"|"+user.AuthSubject] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) GetByAuth(_ context.Context, provider, subject string) (domain.User, error) {
	id, ok := m.usersByAuth[provider+"|"+subject]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) LinkOAuth(_ context.Context, id, provider, subject string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AuthProvider = provider
	user.AuthSubject = subject
	m.usersByID[id] = user
	m.usersByAuth[provider+"|"+subject] = id
	return nil
}

func (m *mockUserRepo) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerifiedAt = &verifiedAt
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, updated domain.User) error {
	user, ok := m.usersByID[updated.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Name = updated.Name
	user.Phone = updated.Phone
	user.Address = updated.Address
	user.Tax = updated.Tax
	user.Province = updated.Province
	user.Ward = updated.Ward
	m.usersByID[user.ID] = user
	return nil
}

type mockLoginLogRepo struct {
	logs      []domain.LoginLog
	createErr error
}

func (m *mockLoginLogRepo) Create(_ context.Context, log domain.LoginLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockLoginLogRepo) ListRecent(_ context.Context, limit int) ([]domain.LoginLog, error) {
	if limit > len(m.logs) {
		limit = len(m.logs)
	}
	out := make([]domain.LoginLog, 0, limit)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

type mockEmailSender struct {
	verificationSent int
	resetSent        int
	lastToken        string
	lastEmail        string
	sendErr          error
}

func (m *mockEmailSender) SendVerificationEmail(_ context.Context, toEmail, _, token string, _ email.Branding) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.verificationSent++
	m.lastEmail = toEmail
	m.lastToken = token
	return nil
}

func (m *mockEmailSender) SendPasswordResetEmail(_ context.Context, toEmail, _, token string, _ email.Branding) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.resetSent++
	m.lastEmail = toEmail
	m.lastToken = token
	return nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

type authFixture struct {
	users    *mockUserRepo
	tokens   *mockTokenRepo
	logs     *mockLoginLogRepo
	sender   *mockEmailSender
	configs  *mockConfigRepo
	settings *SettingsCache
	svc      *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newMockUserRepo()
	tokens := newMockTokenRepo(users)
	logs := &mockLoginLogRepo{}
	sender := &mockEmailSender{}
	configs := &mockConfigRepo{}
	settings := NewSettingsCache(zap.NewNop(), configs, time.Hour)
	tokenSvc := NewTokenService(zap.NewNop(), tokens, users)
	svc := NewAuthService(zap.NewNop(), users, logs, tokenSvc, settings, sender, allowAllLimiter{})
	return &authFixture{
		users:    users,
		tokens:   tokens,
		logs:     logs,
		sender:   sender,
		configs:  configs,
		settings: settings,
		svc:      svc,
	}
}

func (f *authFixture) register(t *testing.T, emailAddr, password, name string) RegisterResult {
	t.Helper()
	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    emailAddr,
		Password: password,
		Name:     name,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return result
}

func TestAuthService_AuthenticateInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "pw123", "Alice")

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "pw123"},
		{"wrong password", "alice@example.com", "wrong"},
		{"empty password", "alice@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Authenticate(context.Background(), LoginInput{Email: tc.email, Password: tc.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_AuthenticateOAuthOnlyAccount(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.UpsertOAuthUser(context.Background(), OAuthInput{
		Provider: "google",
		Subject:  "sub-1",
		Email:    "oauth@example.com",
		Name:     "OAuth User",
	})
	if err != nil {
		t.Fatalf("oauth upsert: %v", err)
	}

	// Sin hash de password, cualquier password falla con el error generico.
	for _, pw := range []string{"", "guess", "password"} {
		_, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "oauth@example.com", Password: pw})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %q, got %v", pw, err)
		}
	}
}

func TestAuthService_AuthenticateStatusGates(t *testing.T) {
	f := newAuthFixture(t)
	result := f.register(t, "bob@example.com", "pw123", "Bob")

	setStatus := func(status domain.AccountStatus) {
		user := f.users.usersByID[result.User.ID]
		user.Status = status
		f.users.usersByID[result.User.ID] = user
	}

	setStatus(domain.StatusLocked)
	_, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "bob@example.com", Password: "pw123"})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	setStatus(domain.StatusSuspended)
	_, err = f.svc.Authenticate(context.Background(), LoginInput{Email: "bob@example.com", Password: "pw123"})
	if !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestAuthService_AuthenticateStripsHashAndLogsDevice(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "carol@example.com", "pw123", "Carol")

	user, err := f.svc.Authenticate(context.Background(), LoginInput{
		Email:           "carol@example.com",
		Password:        "pw123",
		UserAgentHeader: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
		IPAddress:       "203.0.113.7",
		Location:        "Hanoi, VN",
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatalf("password hash leaked from authenticate")
	}
	if len(f.logs.logs) != 1 {
		t.Fatalf("expected 1 login log, got %d", len(f.logs.logs))
	}
	entry := f.logs.logs[0]
	if entry.Browser != "Chrome" || entry.OS != "Windows" || entry.DeviceType != domain.DeviceDesktop {
		t.Fatalf("unexpected parsed device: %+v", entry)
	}
	if entry.ActivityType != domain.ActivityLoginSuccess {
		t.Fatalf("unexpected activity type: %s", entry.ActivityType)
	}
}

func TestAuthService_LoginLogFailureDoesNotBlock(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "dave@example.com", "pw123", "Dave")
	f.logs.createErr = errors.New("log table unavailable")

	_, err := f.svc.Authenticate(context.Background(), LoginInput{
		Email:           "dave@example.com",
		Password:        "pw123",
		UserAgentHeader: "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("authenticate should succeed despite log failure: %v", err)
	}
}

func TestAuthService_AuthenticateWithoutMetadataSkipsLog(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "erin@example.com", "pw123", "Erin")

	_, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "erin@example.com", Password: "pw123"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if len(f.logs.logs) != 0 {
		t.Fatalf("expected no login logs without user agent, got %d", len(f.logs.logs))
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "pw123", "Alice")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "ALICE@example.com",
		Password: "other",
		Name:     "Alice Again",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_RegisterVerifyDisabled(t *testing.T) {
	f := newAuthFixture(t)
	f.configs.configs = []domain.SystemConfig{{Key: domain.ConfigVerifyEmail, Value: "false"}}

	result := f.register(t, "alice@example.com", "pw123", "Alice")
	if result.VerifyEnabled {
		t.Fatalf("expected verifyEnabled false")
	}
	if result.User.PasswordHash != "" {
		t.Fatalf("password hash leaked from register")
	}
	if f.sender.verificationSent != 0 {
		t.Fatalf("no verification email expected")
	}

	if _, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "alice@example.com", Password: "pw123"}); err != nil {
		t.Fatalf("authenticate after register: %v", err)
	}
}

func TestAuthService_RegisterVerifyEnabled(t *testing.T) {
	f := newAuthFixture(t)
	f.configs.configs = []domain.SystemConfig{{Key: domain.ConfigVerifyEmail, Value: "true"}}

	result := f.register(t, "bob@example.com", "pw123", "Bob")
	if !result.VerifyEnabled {
		t.Fatalf("expected verifyEnabled true")
	}
	if f.sender.verificationSent != 1 {
		t.Fatalf("expected verification email, sent=%d", f.sender.verificationSent)
	}
	if f.sender.lastToken == "" {
		t.Fatalf("expected a token in the email")
	}

	// La verificacion no bloquea el login: el gate es de status, no de verify.
	if _, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "bob@example.com", Password: "pw123"}); err != nil {
		t.Fatalf("unverified account should still authenticate: %v", err)
	}
}

func TestAuthService_RegisterEmailFailureSwallowed(t *testing.T) {
	f := newAuthFixture(t)
	f.configs.configs = []domain.SystemConfig{{Key: domain.ConfigVerifyEmail, Value: "true"}}
	f.sender.sendErr = errors.New("smtp down")

	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "carol@example.com",
		Password: "pw123",
		Name:     "Carol",
	})
	if err != nil {
		t.Fatalf("register must not fail on email error: %v", err)
	}
	if !result.VerifyEnabled {
		t.Fatalf("expected verifyEnabled true")
	}
	if _, err := f.users.GetByEmail(context.Background(), "carol@example.com"); err != nil {
		t.Fatalf("account should exist despite email failure: %v", err)
	}
}

func TestAuthService_VerifyEmailFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.configs.configs = []domain.SystemConfig{{Key: domain.ConfigVerifyEmail, Value: "true"}}
	f.register(t, "bob@example.com", "pw123", "Bob")

	verified, err := f.svc.CheckVerifyStatus(context.Background(), "bob@example.com")
	if err != nil || verified {
		t.Fatalf("expected unverified, got verified=%v err=%v", verified, err)
	}

	user, err := f.svc.VerifyEmail(context.Background(), f.sender.lastToken)
	if err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if user.EmailVerifiedAt == nil {
		t.Fatalf("expected verified timestamp")
	}

	verified, err = f.svc.CheckVerifyStatus(context.Background(), "bob@example.com")
	if err != nil || !verified {
		t.Fatalf("expected verified, got verified=%v err=%v", verified, err)
	}

	if _, err := f.svc.VerifyEmail(context.Background(), f.sender.lastToken); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("second consume should be ErrTokenNotFound, got %v", err)
	}
}

func TestAuthService_CheckVerifyStatusUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	verified, err := f.svc.CheckVerifyStatus(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("check verify status: %v", err)
	}
	if verified {
		t.Fatalf("unknown email must count as unverified")
	}
}

func TestAuthService_ForgotPasswordUnknownEmailSilent(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if f.sender.resetSent != 0 {
		t.Fatalf("no email expected for unknown account")
	}
	if len(f.tokens.resets) != 0 {
		t.Fatalf("no reset token expected for unknown account")
	}
}

func TestAuthService_ResetPasswordRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "old-pass", "Alice")

	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if f.sender.resetSent != 1 {
		t.Fatalf("expected reset email")
	}

	if err := f.svc.ResetPassword(context.Background(), f.sender.lastToken, "new-pass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "alice@example.com", Password: "new-pass"}); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "alice@example.com", Password: "old-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}

	if err := f.svc.ResetPassword(context.Background(), f.sender.lastToken, "again"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("token reuse should be ErrTokenNotFound, got %v", err)
	}
}

func TestAuthService_RequestResetReplacesPriorToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "pw123", "Alice")

	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	firstToken := f.sender.lastToken

	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	secondToken := f.sender.lastToken
	if firstToken == secondToken {
		t.Fatalf("expected a fresh token value")
	}

	if err := f.svc.ResetPassword(context.Background(), firstToken, "x"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("replaced token should be invalid, got %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), secondToken, "new-pass"); err != nil {
		t.Fatalf("current token should work: %v", err)
	}
}

func TestAuthService_ForgotPasswordRateLimited(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "pw123", "Alice")
	f.svc.limiter = denyAllLimiter{}

	if err := f.svc.RequestPasswordReset(context.Background(), "alice@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "pw123", "Alice")

	if err := f.svc.ChangePassword(context.Background(), "alice@example.com", "fresh"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), LoginInput{Email: "alice@example.com", Password: "fresh"}); err != nil {
		t.Fatalf("authenticate after change: %v", err)
	}

	if err := f.svc.ChangePassword(context.Background(), "ghost@example.com", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	result := f.register(t, "alice@example.com", "pw123", "Alice")

	updated, err := f.svc.UpdateProfile(context.Background(), "alice@example.com", ProfileInput{
		Name:     "Alice Nguyen",
		Phone:    "0901234567",
		Address:  "1 Pham Van Dong",
		Tax:      "123456",
		Province: "Ha Noi",
		Ward:     "Cau Giay",
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Alice Nguyen" || updated.Phone != "0901234567" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.PasswordHash != "" {
		t.Fatalf("password hash leaked from update")
	}

	stored := f.users.usersByID[result.User.ID]
	if stored.Province != "Ha Noi" || stored.Ward != "Cau Giay" {
		t.Fatalf("profile not persisted: %+v", stored)
	}
}

func TestAuthService_OAuthLinksExistingAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "alice@example.com", "pw123", "Alice")

	user, err := f.svc.UpsertOAuthUser(context.Background(), OAuthInput{
		Provider: "google",
		Subject:  "g-123",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("oauth upsert: %v", err)
	}
	if user.AuthProvider != "google" {
		t.Fatalf("expected linked provider, got %q", user.AuthProvider)
	}
	if user.EmailVerifiedAt == nil {
		t.Fatalf("oauth login should verify the email")
	}

	again, err := f.svc.UpsertOAuthUser(context.Background(), OAuthInput{Provider: "google", Subject: "g-123"})
	if err != nil {
		t.Fatalf("second oauth login: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("expected same account on repeat login")
	}
}
