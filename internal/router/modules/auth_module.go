package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/notorite/auth-service/internal/interface/http"
	"github.com/notorite/auth-service/internal/interface/middleware"
	"github.com/notorite/auth-service/pkg/helpers"
)

// AuthModule wires the account endpoints.
// Public: signup, login, forgot/reset password, send/verify OTP.
// Protected: profile.
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/signup", m.Handler.Signup)
	rg.POST("/login", m.Handler.Login)
	rg.POST("/forgot-password", m.Handler.ForgotPassword)
	rg.POST("/reset-password/:token", m.Handler.ResetPassword)
	rg.POST("/send-otp", m.Handler.SendOTP)
	rg.POST("/verify-otp", m.Handler.VerifyOTP)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	{
		auth.GET("/profile", m.Handler.Profile)
	}
}
