package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/notorite/auth-service/internal/application"
	"github.com/notorite/auth-service/internal/domain/entity"
	"github.com/notorite/auth-service/pkg/response"
	"github.com/notorite/auth-service/pkg/validation"
)

// AuthService is the application surface the handlers depend on.
type AuthService interface {
	Signup(ctx context.Context, in application.SignupInput) (*entity.User, string, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	Profile(ctx context.Context, id string) (*entity.User, error)
}

type AuthHandler struct {
	Svc    AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type signupRequest struct {
	FirstName string `form:"first_name" binding:"required"`
	LastName  string `form:"last_name" binding:"required"`
	Bio       string `form:"bio"`
	Email     string `form:"email" binding:"required,email"`
	Username  string `form:"username" binding:"required"`
	Password  string `form:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

type sendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

func userPayload(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"bio":        u.Bio,
		"email":      u.Email,
		"username":   u.Username,
		"avatar_url": u.AvatarURL,
		"created_at": u.CreatedAt,
	}
}

// logErr records the raw error; callers get a stable message only.
func (h *AuthHandler) logErr(c *gin.Context, msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error(msg)
}

// Signup POST /api/signup (multipart: form fields + profile_image file)
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	fileHeader, err := c.FormFile("profile_image")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "profile_image file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.logErr(c, "open uploaded file failed", err)
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	defer func() { _ = file.Close() }()

	u, token, err := h.Svc.Signup(c.Request.Context(), application.SignupInput{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Bio:               req.Bio,
		Email:             req.Email,
		Username:          req.Username,
		Password:          req.Password,
		Avatar:            file,
		AvatarFilename:    fileHeader.Filename,
		AvatarContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidEmailDomain):
			response.Error[any](c, http.StatusBadRequest, "email domain not allowed", nil)
		case errors.Is(err, application.ErrPasswordTooShort):
			response.Error[any](c, http.StatusBadRequest, "password must be at least 8 characters long", nil)
		case errors.Is(err, application.ErrUserExists):
			response.Error[any](c, http.StatusUnauthorized, "user already exists with this email", nil)
		default:
			h.logErr(c, "signup failed", err)
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userPayload(u), "token": token}, "signup successful", nil)
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		default:
			h.logErr(c, "login failed", err)
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userPayload(u), "token": token}, "login successful", nil)
}

// ForgotPassword POST /api/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user with this email not found", nil)
		default:
			h.logErr(c, "forgot password failed", err)
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}
	response.Success[any](c, http.StatusOK, nil, "check your email for the reset link", nil)
}

// ResetPassword POST /api/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Param("token")
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, application.ErrResetTokenInvalid):
			response.Error[any](c, http.StatusBadRequest, "token is invalid or has expired", nil)
		case errors.Is(err, application.ErrPasswordTooShort):
			response.Error[any](c, http.StatusBadRequest, "password must be at least 8 characters long", nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		default:
			h.logErr(c, "reset password failed", err)
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password reset successful", nil)
}

// SendOTP POST /api/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.SendOTP(c.Request.Context(), req.Email); err != nil {
		h.logErr(c, "send otp failed", err)
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "otp sent successfully", nil)
}

// VerifyOTP POST /api/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		switch {
		case errors.Is(err, application.ErrOTPNotFound):
			response.Error[any](c, http.StatusNotFound, "otp not found, please request a new one", nil)
		case errors.Is(err, application.ErrOTPMismatch):
			response.Error[any](c, http.StatusUnauthorized, "invalid otp", nil)
		case errors.Is(err, application.ErrOTPExpired):
			response.Error[any](c, http.StatusBadRequest, "otp has expired, please request a new one", nil)
		default:
			h.logErr(c, "verify otp failed", err)
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		}
		return
	}
	response.Success[any](c, http.StatusOK, nil, "otp verified successfully", nil)
}

// Profile GET /api/profile (auth required)
func (h *AuthHandler) Profile(c *gin.Context) {
	uid := c.GetString("userID")
	u, err := h.Svc.Profile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.logErr(c, "profile lookup failed", err)
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success(c, http.StatusOK, userPayload(u), "profile", nil)
}
