package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-approvals/internal/common/api"
	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/auth"
	"go-approvals/internal/features/flow"
	"go-approvals/internal/features/identity"
	"go-approvals/internal/features/notify"
	"go-approvals/internal/features/reconcile"
	"go-approvals/internal/features/report"
	"go-approvals/internal/features/source"
	"go-approvals/internal/features/system"
	"go-approvals/internal/features/template"
	"go-approvals/internal/logger"
	"go-approvals/internal/middleware"
	"go-approvals/pkg/utils"

	_ "go-approvals/docs" // Import swagger docs

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
	for _, route := range routes {
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
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

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, flowRepo flow.FlowRepository, templateRepo template.TemplateRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := flowRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure flow indexes: %v", err)
				}
				if err := templateRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure template indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// usernameFinder adapts the identity user repository to the audit trail's
// actor-name lookup
type usernameFinder struct {
	repo identity.UserRepository
}

func (f *usernameFinder) FindUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	users, err := f.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID.Hex()] = u.Username
	}
	return names, nil
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			identity.NewUserRepository,
			identity.NewRoleRepository,
			template.NewTemplateRepository,
			flow.NewFlowRepository,
			notify.NewTargetRepository,
			notify.NewDeliveryRepository,
			source.NewSourceRepository,

			// Initialize Service
			audit.NewAuditService,
			identity.NewIdentityService,
			auth.NewAuthService,
			template.NewTemplateService,
			flow.NewFlowService,
			notify.NewHub,
			notify.NewNotifyService,
			source.NewSourceService,
			reconcile.NewReconcileService,
			report.NewReportService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r identity.UserRepository) audit.UserFinder { return &usernameFinder{repo: r} },
			func(s identity.IdentityService) flow.RoleDirectory { return s },
			func(s notify.NotifyService) flow.CompletionNotifier { return s },
			func(s source.SourceService) flow.ObjectFetcher { return s },

			// Initialize Controller
			auth.NewAuthController,
			identity.NewIdentityController,
			template.NewTemplateController,
			flow.NewFlowController,
			notify.NewNotifyController,
			source.NewSourceController,
			reconcile.NewReconcileController,
			report.NewReportController,
			audit.NewAuditController,
			system.NewWebSocketController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(identity.NewIdentityApi),
			AsRoute(template.NewTemplateApi),
			AsRoute(flow.NewFlowApi),
			AsRoute(notify.NewNotifyApi),
			AsRoute(source.NewSourceApi),
			AsRoute(reconcile.NewReconcileApi),
			AsRoute(report.NewReportApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, reconcileService reconcile.ReconcileService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return reconcileService.StartScheduler()
					},
					OnStop: func(ctx context.Context) error {
						reconcileService.StopScheduler()
						return nil
					},
				})
			},
			InitializeIndexes,
		),
	)

	app.Run()
}
