package main

import (
	"go.uber.org/fx"

	"github.com/LinkLocker-Labs/linklocker-back/internal/auth"
	"github.com/LinkLocker-Labs/linklocker-back/internal/config"
	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
	"github.com/LinkLocker-Labs/linklocker-back/internal/logging"
	"github.com/LinkLocker-Labs/linklocker-back/internal/service"
	"github.com/LinkLocker-Labs/linklocker-back/internal/transport"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			logging.NewLogger,
			db.NewGormClient,
			auth.NewBcryptHasher,
			auth.NewJWTManager,
			service.NewAuth,
			service.NewUsers,
			service.NewBookmarks,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(*transport.HTTPServer) {}),
	).Run()
}
