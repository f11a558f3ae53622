package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-groupware/internal/common/api"
	"go-groupware/internal/common/clock"
	"go-groupware/internal/config"
	"go-groupware/internal/database"
	"go-groupware/internal/features/approval"
	"go-groupware/internal/features/audit"
	cron_feature "go-groupware/internal/features/cron"
	"go-groupware/internal/features/directory"
	"go-groupware/internal/features/report"
	"go-groupware/internal/features/system"
	"go-groupware/internal/features/vacation"
	"go-groupware/internal/logger"
	"go-groupware/internal/middleware"
	"go-groupware/pkg/utils"

	_ "go-groupware/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	utils.SetSecret(cfg.JWTSecret)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// @title           Groupware Approval API
// @version         1.0
// @description     Corporate groupware backend: vacations and multi-step approval workflows.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,

			database.NewDatabase,
			database.NewLogDatabase,
			logger.NewLogger,
			clock.NewClock,

			NewFiberServer,

			// Repositories
			directory.NewDirectoryRepository,
			approval.NewApprovalRepository,
			vacation.NewVacationRepository,
			audit.NewAuditRepository,

			// Services
			directory.NewDirectoryService,
			audit.NewAuditService,
			approval.NewTargetRegistry,
			approval.NewTemplateResolver,
			approval.NewMaterializer,
			approval.NewApprovalService,
			vacation.NewVacationService,
			report.NewReportService,
			cron_feature.NewSweepService,

			// Controllers
			approval.NewApprovalController,
			vacation.NewVacationController,
			audit.NewAuditController,
			report.NewReportController,

			// API Routes
			AsRoute(approval.NewApprovalApi),
			AsRoute(vacation.NewVacationApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(report.NewReportApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, sweep cron_feature.SweepService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return sweep.Start()
					},
					OnStop: func(ctx context.Context) error {
						sweep.Stop()
						return nil
					},
				})
			},
		),
	)

	app.Run()
}
