package router

import (
	"github.com/notorite/auth-service/internal/application"
	"github.com/notorite/auth-service/internal/container"
	pginfra "github.com/notorite/auth-service/internal/infrastructure/postgres"
	handlers "github.com/notorite/auth-service/internal/interface/http"
	"github.com/notorite/auth-service/internal/router/modules"
	"github.com/notorite/auth-service/pkg/helpers"
)

func buildAuthModule() *modules.AuthModule {
	pool := container.GetPGPool()
	cfg := container.GetConfig()

	// Typed nil pointers must not reach the MailQueue interface.
	var mail application.MailQueue
	if pub := container.GetRabbitPub(); pub != nil {
		mail = pub
	}

	svc := application.NewService(
		pginfra.NewUserRepository(pool),
		pginfra.NewOTPRepository(pool),
		pginfra.NewPasswordResetRepository(pool),
		container.GetJWT(),
		helpers.NewGCSUploader(container.GetGCS(), cfg.GCSBucket),
		mail,
		container.GetLogger(),
		cfg,
	)

	handler := handlers.NewAuthHandler(svc, container.GetLogger())
	return modules.NewAuthModule(handler, container.GetJWT())
}

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
}
