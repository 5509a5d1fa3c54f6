package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notorite/auth-service/config"
	"github.com/notorite/auth-service/internal/domain/entity"
	"github.com/notorite/auth-service/internal/domain/repository"
	"github.com/notorite/auth-service/pkg/helpers"
	"github.com/notorite/auth-service/pkg/mailer"
	tpl "github.com/notorite/auth-service/pkg/mailer/templates"
)

// MinPasswordLen is the signup/reset password policy.
const MinPasswordLen = 8

var (
	ErrInvalidEmailDomain = errors.New("invalid email domain")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPNotFound        = errors.New("otp not found")
	ErrOTPMismatch        = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
)

// ImageUploader stores an uploaded image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, r io.Reader, filename, contentType string) (string, error)
}

// MailQueue enqueues outbound email jobs. Delivery happens in the email
// worker; callers only wait for the enqueue.
type MailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// Service orchestrates the account flows over the repositories and
// collaborators. Every method is a single linear unit of work.
type Service struct {
	Users  repository.UserRepository
	OTPs   repository.OTPRepository
	Resets repository.PasswordResetRepository

	JWT      *helpers.JWTManager
	Uploader ImageUploader
	Mail     MailQueue
	Logger   *logrus.Logger
	Cfg      *config.Config
}

func NewService(
	users repository.UserRepository,
	otps repository.OTPRepository,
	resets repository.PasswordResetRepository,
	jwt *helpers.JWTManager,
	uploader ImageUploader,
	mail MailQueue,
	logger *logrus.Logger,
	cfg *config.Config,
) *Service {
	return &Service{
		Users:    users,
		OTPs:     otps,
		Resets:   resets,
		JWT:      jwt,
		Uploader: uploader,
		Mail:     mail,
		Logger:   logger,
		Cfg:      cfg,
	}
}

// SignupInput carries the signup form plus the uploaded profile image.
type SignupInput struct {
	FirstName string
	LastName  string
	Bio       string
	Email     string
	Username  string
	Password  string

	Avatar            io.Reader
	AvatarFilename    string
	AvatarContentType string
}

// Signup validates policy, uploads the profile image, and creates the
// account. Returns the stored user and a signed identity token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*entity.User, string, error) {
	if !strings.HasSuffix(in.Email, s.Cfg.AllowedEmailDomain) {
		return nil, "", ErrInvalidEmailDomain
	}
	if len(in.Password) < MinPasswordLen {
		return nil, "", ErrPasswordTooShort
	}

	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	avatarURL, err := s.Uploader.UploadImage(ctx, in.Avatar, in.AvatarFilename, in.AvatarContentType)
	if err != nil {
		return nil, "", fmt.Errorf("upload profile image: %w", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Email:     in.Email,
		Username:  in.Username,
		Password:  hash,
		AvatarURL: avatarURL,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race with a concurrent signup for the same email/username.
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, _, err := s.JWT.Generate(u.ID, u.Email)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user signed up")
	return u, token, nil
}

// Login verifies the credentials and issues a signed identity token.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, _, err := s.JWT.Generate(u.ID, u.Email)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return u, token, nil
}

// ForgotPassword persists a one-time reset token for the account and emails
// the reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := helpers.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.Resets.Create(ctx, &entity.PasswordReset{UserID: u.ID, Token: token}); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	resetURL := s.Cfg.ResetPasswordURL(token)
	data := tpl.NewForgotPasswordData(s.Cfg, u.FirstName, u.Email, resetURL,
		tpl.WithExpiresIn(s.Cfg.ResetTokenTTL))
	if err := s.enqueueMail(ctx, mailer.EmailJob{To: u.Email, Template: tpl.ForgotPassword, Data: data}); err != nil {
		return fmt.Errorf("enqueue reset email: %w", err)
	}

	s.Logger.WithField("user_id", u.ID).Info("password reset requested")
	return nil
}

// ResetPassword redeems a one-time token and sets the new password. The
// token delete and password update happen in one transaction.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrPasswordTooShort
	}

	pr, err := s.Resets.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if s.Cfg.ResetTokenTTL > 0 && time.Since(pr.CreatedAt) > s.Cfg.ResetTokenTTL {
		return ErrResetTokenInvalid
	}

	if _, err := s.Users.GetByID(ctx, pr.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Resets.Redeem(ctx, token, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Consumed by a concurrent reset between lookup and redeem.
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}

	s.Logger.WithField("user_id", pr.UserID).Info("password reset completed")
	return nil
}

// SendOTP installs a fresh verification code for the email (replacing any
// live one) and emails it.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	code, err := helpers.GenOTPCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.OTPs.Upsert(ctx, &entity.OTP{Email: email, Code: code}); err != nil {
		return fmt.Errorf("persist otp: %w", err)
	}

	data := tpl.NewVerifyOTPData(s.Cfg, email, code, tpl.WithExpiresIn(s.Cfg.OTPTTL))
	if err := s.enqueueMail(ctx, mailer.EmailJob{To: email, Template: tpl.VerifyOTP, Data: data}); err != nil {
		return fmt.Errorf("enqueue otp email: %w", err)
	}
	return nil
}

// VerifyOTP checks the submitted code against the stored one and consumes
// it on success.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	otp, err := s.OTPs.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOTPNotFound
		}
		return fmt.Errorf("lookup otp: %w", err)
	}
	if s.Cfg.OTPTTL > 0 && time.Since(otp.CreatedAt) > s.Cfg.OTPTTL {
		return ErrOTPExpired
	}
	if otp.Code != code {
		return ErrOTPMismatch
	}
	if err := s.OTPs.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// Profile loads a user by id.
func (s *Service) Profile(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (s *Service) enqueueMail(ctx context.Context, job mailer.EmailJob) error {
	if s.Mail == nil || !s.Cfg.MailSendEnabled {
		s.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).
			Debug("mail sending disabled, dropping job")
		return nil
	}
	return s.Mail.PublishJSON(ctx, job)
}
