package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"taskhub/internal/auth"
	"taskhub/internal/config"
	"taskhub/internal/handler"
	"taskhub/internal/repository"
)

// Register wires routes and middleware. Authorization policies evaluate in
// fixed order: token verification, identity resolution, then role gating, and
// short-circuit on the first failure.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	userRepo repository.UserRepository,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	userHandler *handler.UserHandler,
	reportHandler *handler.ReportHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Secured routes (verified bearer token + resolved identity)
	secured := api.Group("", auth.Middleware(cfg.JWTSecret), auth.Protect(userRepo))

	secured.GET("/auth/profile", authHandler.GetProfile)
	secured.PUT("/auth/profile", authHandler.UpdateProfile)

	// Task routes
	tasks := secured.Group("/tasks")
	tasks.GET("/dashboard-data", taskHandler.Dashboard, auth.AdminOnly)
	tasks.GET("/user-dashboard-data", taskHandler.UserDashboard)
	tasks.GET("", taskHandler.List)
	tasks.GET("/:id", taskHandler.Get)
	tasks.POST("", taskHandler.Create, auth.AdminOnly)
	tasks.PUT("/:id", taskHandler.Update, auth.AdminOnly)
	tasks.DELETE("/:id", taskHandler.Delete, auth.AdminOnly)
	tasks.PUT("/:id/status", taskHandler.UpdateStatus)
	tasks.PUT("/:id/todo", taskHandler.UpdateChecklist)

	// User administration routes
	users := secured.Group("/users", auth.AdminOnly)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// Report routes
	reports := secured.Group("/reports", auth.AdminOnly)
	reports.GET("/export/tasks", reportHandler.ExportTasks)
	reports.GET("/export/users", reportHandler.ExportUsers)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
