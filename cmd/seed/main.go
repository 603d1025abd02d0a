package main

import (
	"context"

	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/features/audit"
	"go-approvals/internal/features/identity"
	"go-approvals/internal/features/template"
	"go-approvals/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed creates the admin role/user, the sample directory roles, and one
// sample template. Safe to re-run: existing records are skipped.
func Seed(
	lc fx.Lifecycle,
	identityService identity.IdentityService,
	templateService template.TemplateService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Starting database seeding...")

				roles := []identity.Role{
					{Name: "Admin", Description: "Full administrative access", IsSystem: true},
					{Name: "Manager", Description: "Department manager"},
					{Name: "Accountant", Description: "Finance department"},
					{Name: "Auditor", Description: "Internal audit"},
				}

				roleIDs := map[string]string{}
				for i := range roles {
					role := roles[i]
					if err := identityService.CreateRole(ctx, &role); err != nil {
						logger.Info("Role exists, skipping", zap.String("role", role.Name))
						if existing, lookupErr := identityService.RoleBySlug(ctx, role.Slug); lookupErr == nil && existing != nil {
							roleIDs[existing.Slug] = existing.ID.Hex()
						}
						continue
					}
					roleIDs[role.Slug] = role.ID.Hex()
					logger.Info("Seeded role", zap.String("role", role.Name))
				}

				admin := &identity.User{
					Username: "admin",
					Email:    "admin@localhost",
					Status:   "active",
				}
				if err := identityService.CreateUser(ctx, admin, "admin"); err != nil {
					logger.Info("Admin user exists, skipping")
				} else {
					if roleID, ok := roleIDs["admin"]; ok {
						if err := identityService.AssignRole(ctx, admin.ID.Hex(), roleID); err != nil {
							logger.Error("Failed to assign admin role", zap.Error(err))
						}
					}
					logger.Info("Seeded admin user")
				}

				sample := template.ApprovalTemplate{
					ObjectType:   "invoice",
					ObjectSource: "erp",
					Name:         "Invoice sign-off",
					Description:  "Manager and accountant must both sign; auditor may countersign",
					Officers: []template.OfficerSpec{
						{Kind: template.OfficerKindRole, Reference: "manager", Action: template.ActionMustSign, Order: 1},
						{Kind: template.OfficerKindRole, Reference: "accountant", Action: template.ActionMustSign, Order: 2},
						{Kind: template.OfficerKindRole, Reference: "auditor", Action: template.ActionCanSign, Order: 3},
					},
					Active: true,
				}
				if err := templateService.CreateTemplate(ctx, sample); err != nil {
					logger.Info("Sample template exists, skipping", zap.Error(err))
				} else {
					logger.Info("Seeded sample template", zap.String("template", sample.Name))
				}

				logger.Info("Seeding finished")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			audit.NewAuditRepository,
			identity.NewUserRepository,
			identity.NewRoleRepository,
			template.NewTemplateRepository,

			audit.NewAuditService,
			identity.NewIdentityService,
			template.NewTemplateService,

			func(r identity.UserRepository) audit.UserFinder { return &seedUserFinder{repo: r} },
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}

type seedUserFinder struct {
	repo identity.UserRepository
}

func (f *seedUserFinder) FindUsernames(ctx context.Context, ids []string) (map[string]string, error) {
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
