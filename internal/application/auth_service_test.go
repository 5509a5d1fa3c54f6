package application

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notorite/auth-service/config"
	"github.com/notorite/auth-service/internal/domain/entity"
	"github.com/notorite/auth-service/internal/domain/repository"
	"github.com/notorite/auth-service/pkg/helpers"
	"github.com/notorite/auth-service/pkg/mailer"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type mockOTPRepo struct{ mock.Mock }

func (m *mockOTPRepo) Upsert(ctx context.Context, o *entity.OTP) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOTPRepo) GetByEmail(ctx context.Context, email string) (*entity.OTP, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OTP), args.Error(1)
}

func (m *mockOTPRepo) DeleteByEmail(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type mockResetRepo struct{ mock.Mock }

func (m *mockResetRepo) Create(ctx context.Context, pr *entity.PasswordReset) error {
	args := m.Called(ctx, pr)
	return args.Error(0)
}

func (m *mockResetRepo) GetByToken(ctx context.Context, token string) (*entity.PasswordReset, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PasswordReset), args.Error(1)
}

func (m *mockResetRepo) Redeem(ctx context.Context, token, passwordHash string) error {
	args := m.Called(ctx, token, passwordHash)
	return args.Error(0)
}

type mockUploader struct{ mock.Mock }

func (m *mockUploader) UploadImage(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	args := m.Called(ctx, r, filename, contentType)
	return args.String(0), args.Error(1)
}

type mockMailQueue struct{ mock.Mock }

func (m *mockMailQueue) PublishJSON(ctx context.Context, body any) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

type serviceFixture struct {
	users    *mockUserRepo
	otps     *mockOTPRepo
	resets   *mockResetRepo
	uploader *mockUploader
	mail     *mockMailQueue
	svc      *Service
}

func newFixture() *serviceFixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		AppName:            "notorite-auth",
		AllowedEmailDomain: "@gmail.com",
		FrontendURL:        "http://localhost:3000",
		MailSendEnabled:    true,
		OTPTTL:             10 * time.Minute,
		ResetTokenTTL:      time.Hour,
	}

	f := &serviceFixture{
		users:    new(mockUserRepo),
		otps:     new(mockOTPRepo),
		resets:   new(mockResetRepo),
		uploader: new(mockUploader),
		mail:     new(mockMailQueue),
	}
	f.svc = NewService(
		f.users, f.otps, f.resets,
		helpers.NewJWTManager("test-secret", time.Hour),
		f.uploader, f.mail, logger, cfg,
	)
	return f
}

func signupInput() SignupInput {
	return SignupInput{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Bio:               "first programmer",
		Email:             "ada@gmail.com",
		Username:          "ada",
		Password:          "12345678",
		Avatar:            strings.NewReader("png-bytes"),
		AvatarFilename:    "avatar.png",
		AvatarContentType: "image/png",
	}
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(nil, repository.ErrNotFound).Once()
		f.uploader.On("UploadImage", mock.Anything, mock.Anything, "avatar.png", "image/png").
			Return("https://storage.googleapis.com/bucket/avatars/x.png", nil).Once()

		var created *entity.User
		f.users.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*entity.User)
				created.ID = "user-1"
			}).Return(nil).Once()

		u, token, err := f.svc.Signup(ctx, signupInput())
		require.NoError(t, err)
		require.NotNil(t, u)

		// Stored password is a verifiable hash, never the plaintext.
		assert.NotEqual(t, "12345678", created.Password)
		assert.True(t, helpers.CompareHashAndPassword(created.Password, "12345678"))
		assert.Equal(t, "https://storage.googleapis.com/bucket/avatars/x.png", created.AvatarURL)

		claims, err := f.svc.JWT.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "ada@gmail.com", claims.Email)

		f.users.AssertExpectations(t)
		f.uploader.AssertExpectations(t)
	})

	t.Run("InvalidEmailDomain", func(t *testing.T) {
		f := newFixture()
		in := signupInput()
		in.Email = "ada@example.com"

		_, _, err := f.svc.Signup(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidEmailDomain)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.uploader.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PasswordTooShort", func(t *testing.T) {
		f := newFixture()
		in := signupInput()
		in.Password = "1234567"

		_, _, err := f.svc.Signup(ctx, in)
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").
			Return(&entity.User{ID: "user-1", Email: "ada@gmail.com"}, nil).Once()

		_, _, err := f.svc.Signup(ctx, signupInput())
		assert.ErrorIs(t, err, ErrUserExists)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.uploader.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateRaceOnInsert", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(nil, repository.ErrNotFound).Once()
		f.uploader.On("UploadImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("https://example.com/a.png", nil).Once()
		f.users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate).Once()

		_, _, err := f.svc.Signup(ctx, signupInput())
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("UploadFailure", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(nil, repository.ErrNotFound).Once()
		f.uploader.On("UploadImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", assert.AnError).Once()

		_, _, err := f.svc.Signup(ctx, signupInput())
		assert.Error(t, err)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := helpers.HashPassword("12345678")
	require.NoError(t, err)
	stored := &entity.User{ID: "user-1", Email: "ada@gmail.com", Password: hash}

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(stored, nil).Once()

		u, token, err := f.svc.Login(ctx, "ada@gmail.com", "12345678")
		require.NoError(t, err)
		assert.Equal(t, "user-1", u.ID)

		claims, err := f.svc.JWT.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "ada@gmail.com", claims.Email)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(stored, nil).Once()

		_, token, err := f.svc.Login(ctx, "ada@gmail.com", "wrong0000")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ghost@gmail.com").Return(nil, repository.ErrNotFound).Once()

		_, _, err := f.svc.Login(ctx, "ghost@gmail.com", "12345678")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		user := &entity.User{ID: "user-1", FirstName: "Ada", Email: "ada@gmail.com"}
		// Lookup uses the normalized form of the submitted email.
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(user, nil).Once()

		var saved *entity.PasswordReset
		f.resets.On("Create", mock.Anything, mock.AnythingOfType("*entity.PasswordReset")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*entity.PasswordReset) }).
			Return(nil).Once()

		var job mailer.EmailJob
		f.mail.On("PublishJSON", mock.Anything, mock.AnythingOfType("mailer.EmailJob")).
			Run(func(args mock.Arguments) { job = args.Get(1).(mailer.EmailJob) }).
			Return(nil).Once()

		err := f.svc.ForgotPassword(ctx, "  Ada@Gmail.com ")
		require.NoError(t, err)

		require.NotNil(t, saved)
		assert.Equal(t, "user-1", saved.UserID)
		assert.Len(t, saved.Token, 64) // 32 random bytes, hex

		assert.Equal(t, "ada@gmail.com", job.To)
		assert.Equal(t, "forgot_password", job.Template)
		resetURL, _ := job.Data["ResetURL"].(string)
		assert.Equal(t, "http://localhost:3000/reset-password/"+saved.Token, resetURL)

		f.resets.AssertExpectations(t)
		f.mail.AssertExpectations(t)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByEmail", mock.Anything, "ghost@gmail.com").Return(nil, repository.ErrNotFound).Once()

		err := f.svc.ForgotPassword(ctx, "ghost@gmail.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		f.resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.mail.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("MailDisabled", func(t *testing.T) {
		f := newFixture()
		f.svc.Cfg.MailSendEnabled = false
		user := &entity.User{ID: "user-1", FirstName: "Ada", Email: "ada@gmail.com"}
		f.users.On("GetByEmail", mock.Anything, "ada@gmail.com").Return(user, nil).Once()
		f.resets.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		err := f.svc.ForgotPassword(ctx, "ada@gmail.com")
		require.NoError(t, err)
		f.mail.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	const token = "aaaabbbbccccddddeeeeffff0000111122223333444455556666777788889999"

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.resets.On("GetByToken", mock.Anything, token).
			Return(&entity.PasswordReset{ID: "pr-1", UserID: "user-1", Token: token, CreatedAt: time.Now()}, nil).Once()
		f.users.On("GetByID", mock.Anything, "user-1").
			Return(&entity.User{ID: "user-1", Email: "ada@gmail.com"}, nil).Once()
		f.resets.On("Redeem", mock.Anything, token, mock.MatchedBy(func(hash string) bool {
			return helpers.CompareHashAndPassword(hash, "newpass123")
		})).Return(nil).Once()

		err := f.svc.ResetPassword(ctx, token, "newpass123")
		require.NoError(t, err)
		f.resets.AssertExpectations(t)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		f := newFixture()
		f.resets.On("GetByToken", mock.Anything, token).Return(nil, repository.ErrNotFound).Once()

		err := f.svc.ResetPassword(ctx, token, "newpass123")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
		f.resets.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		f := newFixture()
		f.resets.On("GetByToken", mock.Anything, token).
			Return(&entity.PasswordReset{ID: "pr-1", UserID: "user-1", Token: token, CreatedAt: time.Now().Add(-2 * time.Hour)}, nil).Once()

		err := f.svc.ResetPassword(ctx, token, "newpass123")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
		f.resets.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingUser", func(t *testing.T) {
		f := newFixture()
		f.resets.On("GetByToken", mock.Anything, token).
			Return(&entity.PasswordReset{ID: "pr-1", UserID: "user-1", Token: token, CreatedAt: time.Now()}, nil).Once()
		f.users.On("GetByID", mock.Anything, "user-1").Return(nil, repository.ErrNotFound).Once()

		err := f.svc.ResetPassword(ctx, token, "newpass123")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		f := newFixture()
		err := f.svc.ResetPassword(ctx, token, "short")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
		f.resets.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
	})

	t.Run("RedeemRace", func(t *testing.T) {
		f := newFixture()
		f.resets.On("GetByToken", mock.Anything, token).
			Return(&entity.PasswordReset{ID: "pr-1", UserID: "user-1", Token: token, CreatedAt: time.Now()}, nil).Once()
		f.users.On("GetByID", mock.Anything, "user-1").
			Return(&entity.User{ID: "user-1"}, nil).Once()
		f.resets.On("Redeem", mock.Anything, token, mock.Anything).Return(repository.ErrNotFound).Once()

		err := f.svc.ResetPassword(ctx, token, "newpass123")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
	})
}

func TestSendOTP(t *testing.T) {
	ctx := context.Background()
	codeRe := regexp.MustCompile(`^\d{6}$`)

	t.Run("Success", func(t *testing.T) {
		f := newFixture()

		var stored *entity.OTP
		f.otps.On("Upsert", mock.Anything, mock.AnythingOfType("*entity.OTP")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*entity.OTP) }).
			Return(nil).Once()

		var job mailer.EmailJob
		f.mail.On("PublishJSON", mock.Anything, mock.AnythingOfType("mailer.EmailJob")).
			Run(func(args mock.Arguments) { job = args.Get(1).(mailer.EmailJob) }).
			Return(nil).Once()

		err := f.svc.SendOTP(ctx, "bob@gmail.com")
		require.NoError(t, err)

		require.NotNil(t, stored)
		assert.Equal(t, "bob@gmail.com", stored.Email)
		assert.Regexp(t, codeRe, stored.Code)
		n, err := strconv.Atoi(stored.Code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)

		assert.Equal(t, "bob@gmail.com", job.To)
		assert.Equal(t, "verify_otp", job.Template)
		assert.Equal(t, stored.Code, job.Data["Code"])
	})

	t.Run("MailDisabled", func(t *testing.T) {
		f := newFixture()
		f.svc.Cfg.MailSendEnabled = false
		f.otps.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		err := f.svc.SendOTP(ctx, "bob@gmail.com")
		require.NoError(t, err)
		f.mail.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.otps.On("GetByEmail", mock.Anything, "bob@gmail.com").
			Return(&entity.OTP{Email: "bob@gmail.com", Code: "123456", CreatedAt: time.Now()}, nil).Once()
		f.otps.On("DeleteByEmail", mock.Anything, "bob@gmail.com").Return(nil).Once()

		err := f.svc.VerifyOTP(ctx, "bob@gmail.com", "123456")
		require.NoError(t, err)
		f.otps.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture()
		f.otps.On("GetByEmail", mock.Anything, "bob@gmail.com").Return(nil, repository.ErrNotFound).Once()

		err := f.svc.VerifyOTP(ctx, "bob@gmail.com", "123456")
		assert.ErrorIs(t, err, ErrOTPNotFound)
	})

	t.Run("Mismatch", func(t *testing.T) {
		f := newFixture()
		f.otps.On("GetByEmail", mock.Anything, "bob@gmail.com").
			Return(&entity.OTP{Email: "bob@gmail.com", Code: "123456", CreatedAt: time.Now()}, nil).Once()

		err := f.svc.VerifyOTP(ctx, "bob@gmail.com", "654321")
		assert.ErrorIs(t, err, ErrOTPMismatch)
		f.otps.AssertNotCalled(t, "DeleteByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Expired", func(t *testing.T) {
		f := newFixture()
		f.otps.On("GetByEmail", mock.Anything, "bob@gmail.com").
			Return(&entity.OTP{Email: "bob@gmail.com", Code: "123456", CreatedAt: time.Now().Add(-time.Hour)}, nil).Once()

		err := f.svc.VerifyOTP(ctx, "bob@gmail.com", "123456")
		assert.ErrorIs(t, err, ErrOTPExpired)
		f.otps.AssertNotCalled(t, "DeleteByEmail", mock.Anything, mock.Anything)
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByID", mock.Anything, "user-1").
			Return(&entity.User{ID: "user-1", Email: "ada@gmail.com"}, nil).Once()

		u, err := f.svc.Profile(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "ada@gmail.com", u.Email)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByID", mock.Anything, "ghost").Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.Profile(ctx, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
