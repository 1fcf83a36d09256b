// Package router wires HTTP routes, handlers and middleware.
package router

import (
	"github.com/gin-gonic/gin"

	apicontext "github.com/skillupng/lms-server/internal/api/http/context"
	"github.com/skillupng/lms-server/internal/api/http/handler"
	"github.com/skillupng/lms-server/internal/api/http/middleware"
	"github.com/skillupng/lms-server/internal/config"
	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/service"
)

// Router builds the gin engine for the auth server.
type Router struct {
	authService    *service.Auth
	tokenService   *service.TokenService
	contextManager *apicontext.Manager
	logger         *logger.Logger
	jwtConfig      config.JWT
	secureCookies  bool
}

// New creates a new Router instance.
func New(
	authService *service.Auth,
	tokenService *service.TokenService,
	contextManager *apicontext.Manager,
	logger *logger.Logger,
	jwtConfig config.JWT,
	secureCookies bool,
) *Router {
	return &Router{
		authService:    authService,
		tokenService:   tokenService,
		contextManager: contextManager,
		logger:         logger,
		jwtConfig:      jwtConfig,
		secureCookies:  secureCookies,
	}
}

// Register configures all routes and middleware and returns the engine.
func (r *Router) Register() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	logging := middleware.NewLogging(r.logger)
	engine.Use(logging.Handle)

	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)
	authHandler := handler.NewAuth(r.authService, r.contextManager, r.logger, r.jwtConfig.RefreshExpiry, r.secureCookies)

	auth := engine.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password/:token", authHandler.ResetPassword)

		auth.POST("/logout", authenticate.Handle, authHandler.Logout)
		auth.GET("/me", authenticate.Handle, authHandler.Me)
	}

	admin := engine.Group("/admin", authenticate.Handle, authenticate.RequireRoles(model.RoleAdmin))
	{
		admin.GET("/users", authHandler.ListUsers)
	}

	return engine
}
