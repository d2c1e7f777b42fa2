package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	_ "github.com/facilityops/facility-system/docs"
	"github.com/facilityops/facility-system/internal/api/handler"
	"github.com/facilityops/facility-system/internal/api/middleware"
	"github.com/facilityops/facility-system/internal/core/domain"
	"github.com/facilityops/facility-system/internal/core/ports"
	"github.com/facilityops/facility-system/pkg/logger"
)

// loginRateLimit bounds credential-guessing attempts per client IP.
const (
	loginRateLimit rate.Limit = 1 // requests per second
	loginBurst                = 5
)

// Deps carries everything the router needs to register routes.
type Deps struct {
	Auth       ports.AuthService
	Users      ports.UserService
	Facilities ports.FacilityService
	Permits    ports.PermitService

	DB        *mongo.Database
	Redis     *redis.Client
	JWTSecret string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Component("api"))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("facility"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	facilityHandler := handler.NewFacilityHandler(deps.Facilities)
	permitHandler := handler.NewPermitHandler(deps.Permits)
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis)

	authMW := middleware.Auth(deps.JWTSecret)
	loginLimiter := middleware.RateLimit(loginRateLimit, loginBurst)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login, loginLimiter)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/logout", authHandler.Logout)

	authGroup := e.Group("/auth", authMW)
	authGroup.GET("/me", userHandler.Me)
	authGroup.POST("/password", authHandler.ChangePassword)
	authGroup.POST("/2fa/setup", authHandler.SetupTwoFactor)
	authGroup.POST("/2fa/confirm", authHandler.ConfirmTwoFactor)
	authGroup.DELETE("/2fa", authHandler.DisableTwoFactor)

	// --- User administration ---
	users := e.Group("/users", authMW)
	users.GET("", userHandler.List, middleware.RequirePermission("view_users"))
	users.POST("", userHandler.Create, middleware.RequirePermission("create_users"))
	users.GET("/:id", userHandler.Get, middleware.RequirePermission("view_users"))
	users.PATCH("/:id", userHandler.Update, middleware.RequirePermission("edit_users"))
	users.DELETE("/:id", userHandler.Delete, middleware.RequirePermission("delete_users"))
	users.POST("/:id/unlock", userHandler.Unlock, middleware.RequirePermission("edit_users"))

	e.GET("/permissions", userHandler.Permissions, authMW, middleware.RBAC(domain.RoleAdmin))

	// --- Facilities and tanks ---
	facilities := e.Group("/facilities", authMW)
	facilities.GET("", facilityHandler.List, middleware.RequirePermission("view_locations"))
	facilities.POST("", facilityHandler.Create, middleware.RequirePermission("create_locations"))
	facilities.GET("/:id", facilityHandler.Get, middleware.RequirePermission("view_locations"))
	facilities.PATCH("/:id", facilityHandler.Update, middleware.RequirePermission("edit_locations"))
	facilities.DELETE("/:id", facilityHandler.Delete, middleware.RequirePermission("delete_locations"))
	facilities.POST("/:id/tanks", facilityHandler.AddTank, middleware.RequirePermission("edit_tanks"))
	facilities.PUT("/:id/tanks/:label", facilityHandler.UpdateTank, middleware.RequirePermission("edit_tanks"))
	facilities.DELETE("/:id/tanks/:label", facilityHandler.RemoveTank, middleware.RequirePermission("edit_tanks"))

	// --- Permits ---
	permits := e.Group("/permits", authMW)
	permits.GET("", permitHandler.List, middleware.RequirePermission("view_permits"))
	permits.POST("", permitHandler.Upload, middleware.RequirePermission("upload_permits"))
	permits.GET("/stats", permitHandler.Stats, middleware.RequirePermission("view_permits"))
	permits.GET("/:id", permitHandler.Get, middleware.RequirePermission("view_permits"))
	permits.POST("/:id/renew", permitHandler.Renew, middleware.RequirePermission("renew_permits"))
	permits.DELETE("/:id", permitHandler.Delete, middleware.RequirePermission("delete_permits"))
	permits.GET("/:id/history", permitHandler.History, middleware.RequirePermission("view_permits"))

	// --- Operational endpoints ---
	e.GET("/health", healthHandler.Liveness)       // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
