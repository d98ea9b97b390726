package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
	"github.com/kodecamp/lms/internal/core/security"
)

const (
	DefaultSessionTTL    = 30 * 24 * time.Hour
	DefaultResetTokenTTL = 10 * time.Minute
)

// AuthConfig holds the credential lifecycle settings.
type AuthConfig struct {
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	// RevealUnknownEmail makes ForgotPassword report unknown and unverified
	// accounts instead of acknowledging every request the same way.
	RevealUnknownEmail bool
	// VerifyEmailURL and PasswordResetURL prefix the code or token in
	// outgoing mail.
	VerifyEmailURL   string
	PasswordResetURL string
}

// AuthService implements ports.AuthService.
type AuthService struct {
	users    ports.UserRepository
	hasher   *security.Hasher
	tokens   *security.TokenIssuer
	otps     *security.OTPManager
	notifier ports.Notifier
	cfg      AuthConfig
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(
	users ports.UserRepository,
	hasher *security.Hasher,
	tokens *security.TokenIssuer,
	otps *security.OTPManager,
	notifier ports.Notifier,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		otps:     otps,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Register creates an unverified account and mails it a verification code.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, domain.NewValidationError("email is required")
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateClassification(in.Stack, in.Track, in.Proficiency); err != nil {
		return nil, err
	}

	// The unique index is what actually guards concurrent sign-ups.
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, storeError("check email", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Username:     strings.TrimSpace(in.Username),
		FirstName:    strings.TrimSpace(in.FirstName),
		Surname:      strings.TrimSpace(in.Surname),
		Phone:        strings.TrimSpace(in.Phone),
		Gender:       strings.TrimSpace(in.Gender),
		PasswordHash: hash,
		Stack:        domain.Normalize(in.Stack),
		Track:        domain.Normalize(in.Track),
		Proficiency:  domain.Normalize(in.Proficiency),
		Stage:        0,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, storeError("create user", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	// A failed OTP issue is recoverable through ResendVerification.
	if err := s.sendVerification(ctx, user); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue verification code")
	}
	return user, nil
}

// VerifyEmail consumes code and marks its user as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (*domain.User, error) {
	userID, ok, err := s.otps.Resolve(ctx, code)
	if err != nil {
		return nil, domain.DependencyFailure("resolve otp", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOrExpiredOTP
	}

	verified := true
	user, err := s.users.Update(ctx, userID, domain.UserUpdate{EmailVerified: &verified})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidOrExpiredOTP
		}
		return nil, storeError("verify email", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("email verified")
	return user, nil
}

// ResendVerification issues a new code for an unverified account. Unknown
// and already verified emails are acknowledged silently.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return storeError("find user", err)
	}
	if user.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, user)
}

// Login authenticates a verified account. The password is checked before
// the verification flag.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.burnHash(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storeError("find user", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password digest is unusable")
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	token, expiresAt, err := s.tokens.Issue(security.TokenSpec{
		Subject: user.ID,
		Purpose: security.PurposeSession,
		TTL:     s.cfg.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	return &ports.LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ForgotPassword mails a reset link to a verified account. The token never
// appears in the response.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		if s.cfg.RevealUnknownEmail {
			return domain.ErrUserNotFound
		}
		return nil
	case err != nil:
		return storeError("find user", err)
	case !user.EmailVerified:
		if s.cfg.RevealUnknownEmail {
			return domain.ErrEmailNotVerified
		}
		return nil
	}

	token, _, err := s.tokens.Issue(security.TokenSpec{
		Subject: user.ID,
		Purpose: security.PurposeReset,
		TTL:     s.cfg.ResetTokenTTL,
		Stamp:   security.PasswordStamp(user.PasswordHash),
	})
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	s.notifier.Send(ports.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s%s\n\nIf you did not ask for this, ignore this email.\n",
			user.FirstName, s.cfg.ResetTokenTTL, s.cfg.PasswordResetURL, token,
		),
	})
	s.log.Info().Str("user_id", user.ID).Msg("password reset requested")
	return nil
}

// ResetPassword replaces the password of the user a reset token was issued
// for. A token stops working once the password it was issued against changes.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	if password != confirmPassword {
		return domain.ErrPasswordMismatch
	}
	if err := security.ValidatePassword(password); err != nil {
		return err
	}

	claims, err := s.tokens.Verify(token)
	if err != nil || claims.Purpose != security.PurposeReset {
		return domain.ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return storeError("find user", err)
	}
	if !user.EmailVerified || !security.StampMatches(claims.Stamp, user.PasswordHash) {
		return domain.ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, user.ID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		return storeError("update password", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// UpdateProfile applies profile changes and an optional password change to
// user in a single write.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, in ports.ProfileInput) (*domain.User, error) {
	var upd domain.UserUpdate

	switch {
	case in.NewPassword != "" && in.OldPassword == "":
		return nil, domain.ErrOldPasswordRequired
	case in.OldPassword != "" && in.NewPassword == "":
		return nil, domain.ErrNewPasswordRequired
	case in.NewPassword != "":
		if err := security.ValidatePassword(in.NewPassword); err != nil {
			return nil, err
		}
		ok, err := s.hasher.Verify(in.OldPassword, user.PasswordHash)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password digest is unusable")
			return nil, err
		}
		if !ok {
			return nil, domain.ErrIncorrectPassword
		}
		hash, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}

	stack, track, proficiency := user.Stack, user.Track, user.Proficiency
	if in.Stack != nil {
		stack = domain.Normalize(*in.Stack)
		upd.Stack = &stack
	}
	if in.Track != nil {
		track = domain.Normalize(*in.Track)
		upd.Track = &track
	}
	if in.Proficiency != nil {
		proficiency = domain.Normalize(*in.Proficiency)
		upd.Proficiency = &proficiency
	}
	if in.Stack != nil || in.Track != nil || in.Proficiency != nil {
		if err := domain.ValidateClassification(stack, track, proficiency); err != nil {
			return nil, err
		}
	}

	upd.FirstName = trimmed(in.FirstName)
	upd.Surname = trimmed(in.Surname)
	upd.Username = trimmed(in.Username)
	upd.Phone = trimmed(in.Phone)
	upd.Gender = trimmed(in.Gender)

	if upd.IsEmpty() {
		return user, nil
	}

	updated, err := s.users.Update(ctx, user.ID, upd)
	if err != nil {
		return nil, storeError("update profile", err)
	}

	ev := s.log.Info().Str("user_id", user.ID)
	if upd.PasswordHash != nil {
		ev = ev.Bool("password_changed", true)
	}
	ev.Msg("profile updated")
	return updated, nil
}

// SetPermission toggles the admin flag of the account registered under email.
func (s *AuthService) SetPermission(ctx context.Context, actor *domain.User, email string) (*domain.User, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, domain.ErrAdminRequired
	}

	target, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storeError("find user", err)
	}

	isAdmin := !target.IsAdmin
	updated, err := s.users.Update(ctx, target.ID, domain.UserUpdate{IsAdmin: &isAdmin})
	if err != nil {
		return nil, storeError("set permission", err)
	}

	s.log.Info().
		Str("actor_id", actor.ID).
		Str("user_id", updated.ID).
		Bool("is_admin", updated.IsAdmin).
		Msg("permission changed")
	return updated, nil
}

// Authenticate resolves a session token to the user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil || claims.Purpose != security.PurposeSession {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, storeError("find user", err)
	}
	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) error {
	code, err := s.otps.Create(ctx, user.ID)
	if err != nil {
		return domain.DependencyFailure("create otp", err)
	}

	s.notifier.Send(ports.Message{
		To:      user.Email,
		Subject: "Verify your email",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWelcome aboard. Confirm your email address with the link below. It expires in %s.\n\n%s%s\n",
			user.FirstName, s.otps.TTL(), s.cfg.VerifyEmailURL, code,
		),
	})
	return nil
}

// burnHash spends roughly the time of a real verification so unknown emails
// are not distinguishable by latency.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("unused-Passw0rd#")
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(password, s.dummyDigest)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// storeError passes domain errors through and marks anything else as a
// dependency failure.
func storeError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.DependencyFailure(op, err)
}

var _ ports.AuthService = (*AuthService)(nil)
