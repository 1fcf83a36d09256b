package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	apicontext "github.com/skillupng/lms-server/internal/api/http/context"
	"github.com/skillupng/lms-server/internal/api/http/router"
	"github.com/skillupng/lms-server/internal/config"
	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/notifier"
	"github.com/skillupng/lms-server/internal/repository/postgres"
	redisrepo "github.com/skillupng/lms-server/internal/repository/redis"
	"github.com/skillupng/lms-server/internal/server"
	"github.com/skillupng/lms-server/internal/service"
	"github.com/skillupng/lms-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	redisClient, err := redisrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	blacklist := redisrepo.NewBlacklist(redisClient)

	tokenManager, err := token.NewManager(cfg.JWT)
	if err != nil {
		logger.Fatal("failed to create token manager", "error", err)
	}

	mailer := notifier.NewMailer(cfg.SMTP, logger.Component("mailer"))

	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, blacklist, logger.Component("token_service"))
	authService, err := service.NewAuth(userRepo, tokenService, mailer, logger.Component("auth_service"), cfg.Security, cfg.App)
	if err != nil {
		logger.Fatal("failed to create auth service", "error", err)
	}

	ctxMgr := apicontext.NewManager()
	r := router.New(authService, tokenService, ctxMgr, logger.Component("http"), cfg.JWT, cfg.HTTP.EnableHTTPS)

	httpServer := server.NewHTTPServer(fmt.Sprintf(":%s", cfg.HTTP.Port), r.Register(), logger.Component("server"))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
