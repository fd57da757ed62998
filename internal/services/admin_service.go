package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/authprovider"
	"github.com/grupokali/portal/internal/config"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"github.com/grupokali/portal/internal/saga"
	"gorm.io/gorm"
)

type AdminService struct {
	db         *gorm.DB
	provider   authprovider.Provider
	pub        feed.Publisher
	superAdmin string
}

func NewAdminService(db *gorm.DB, provider authprovider.Provider, pub feed.Publisher, cfg *config.Config) *AdminService {
	return &AdminService{db: db, provider: provider, pub: pub, superAdmin: normalizeEmail(cfg.SuperAdminEmail)}
}

func (s *AdminService) IsSuperAdmin(email string) bool {
	return normalizeEmail(email) == s.superAdmin
}

// AddAdminUser creates the provider principal, then the profile row. If the profile
// cannot be written the provider principal is deleted again.
func (s *AdminService) AddAdminUser(ctx context.Context, p policy.Principal, req *dto.CreateAdminRequest) (*models.Admin, error) {
	if err := authorize(p, policy.ManageAdmins, policy.Resource{}); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, invalid("a valid email is required")
	case !req.Role.Valid():
		return nil, invalid("unknown role %q", req.Role)
	case len(req.Password) < minPasswordLength:
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}

	taken, err := emailInUse(ctx, s.db, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	admin := models.Admin{Email: email, Role: req.Role, IsActive: true}
	var providerID string

	err = saga.Run(ctx, "add admin",
		saga.Step{
			Name: "create auth principal",
			Do: func(ctx context.Context) error {
				id, err := s.provider.CreateUser(ctx, email, req.Password)
				if errors.Is(err, authprovider.ErrUserExists) {
					return ErrEmailTaken
				}
				providerID = id
				return err
			},
			Compensate: func(ctx context.Context) error {
				return s.provider.DeleteUser(ctx, providerID)
			},
		},
		saga.Step{
			Name: "create admin profile",
			Do: func(ctx context.Context) error {
				admin.ProviderID = providerID
				return storeErr("create admin", s.db.WithContext(ctx).Create(&admin).Error)
			},
		},
	)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.pub, tableAdmins, feed.Insert, uuid.Nil, &admin, nil)
	slog.Info("admin created", "email", admin.Email, "role", admin.Role, "actor", p.Email)
	return &admin, nil
}

// UpdateAdminUser changes an admin's role.
func (s *AdminService) UpdateAdminUser(ctx context.Context, p policy.Principal, email string, req *dto.UpdateAdminRequest) (*models.Admin, error) {
	admin, err := s.target(ctx, p, email, false)
	if err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, invalid("unknown role %q", req.Role)
	}

	old := *admin
	admin.Role = req.Role
	if err := s.db.WithContext(ctx).Model(admin).Update("role", admin.Role).Error; err != nil {
		return nil, storeErr("update admin", err)
	}

	publish(ctx, s.pub, tableAdmins, feed.Update, uuid.Nil, admin, &old)
	return admin, nil
}

// ToggleAdminStatus flips is_active. Deactivation ends the admin's sessions.
func (s *AdminService) ToggleAdminStatus(ctx context.Context, p policy.Principal, email string) (*models.Admin, error) {
	admin, err := s.target(ctx, p, email, true)
	if err != nil {
		return nil, err
	}

	old := *admin
	admin.IsActive = !admin.IsActive
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(admin).Update("is_active", admin.IsActive).Error; err != nil {
			return err
		}
		if !admin.IsActive {
			return revokeSessions(tx, models.SessionAdmin, admin.Email)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("toggle admin", err)
	}

	publish(ctx, s.pub, tableAdmins, feed.Update, uuid.Nil, admin, &old)
	return admin, nil
}

// DeleteAdminUser removes the profile row, ends the admin's sessions and then drops
// the provider principal so the email can be registered again.
func (s *AdminService) DeleteAdminUser(ctx context.Context, p policy.Principal, email string) error {
	admin, err := s.target(ctx, p, email, true)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := revokeSessions(tx, models.SessionAdmin, admin.Email); err != nil {
			return err
		}
		return tx.Delete(&models.Admin{}, "email = ?", admin.Email).Error
	})
	if err != nil {
		return storeErr("delete admin", err)
	}

	if admin.ProviderID != "" {
		if err := s.provider.DeleteUser(ctx, admin.ProviderID); err != nil {
			slog.Warn("failed to delete auth principal", "email", admin.Email, "provider_id", admin.ProviderID, "error", err)
		}
	} else {
		slog.Warn("admin has no provider id, auth principal kept", "email", admin.Email)
	}

	publish(ctx, s.pub, tableAdmins, feed.Delete, uuid.Nil, nil, admin)
	slog.Info("admin deleted", "email", admin.Email, "actor", p.Email)
	return nil
}

func (s *AdminService) ListAdmins(ctx context.Context, p policy.Principal) ([]models.Admin, error) {
	if err := authorize(p, policy.ViewAdmins, policy.Resource{}); err != nil {
		return nil, err
	}

	var admins []models.Admin
	if err := s.db.WithContext(ctx).Order("email ASC").Find(&admins).Error; err != nil {
		return nil, storeErr("list admins", err)
	}
	return admins, nil
}

// target loads an admin that p is about to modify. The super-admin is never a valid
// target; self-targeting is refused when forbidSelf is set.
func (s *AdminService) target(ctx context.Context, p policy.Principal, email string, forbidSelf bool) (*models.Admin, error) {
	if err := authorize(p, policy.ManageAdmins, policy.Resource{}); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if s.IsSuperAdmin(email) {
		return nil, ErrSuperAdminProtected
	}
	if forbidSelf && email == normalizeEmail(p.Email) {
		return nil, ErrSelfTarget
	}

	var admin models.Admin
	if err := s.db.WithContext(ctx).First(&admin, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("load admin", err)
	}
	return &admin, nil
}

// Seed makes sure the super-admin exists as an active LEVEL_3 profile and adds the
// seed admins from the portal file that are not there yet. Provider principals are
// created for entries that carry a password.
func (s *AdminService) Seed(ctx context.Context, superPassword string, seeds []config.SeedAdmin) error {
	if s.superAdmin == "" {
		return invalid("super admin email is not configured")
	}

	super := models.Admin{Email: s.superAdmin, Role: models.RoleLevel3, IsActive: true}
	err := s.db.WithContext(ctx).
		Where(models.Admin{Email: s.superAdmin}).
		Assign(models.Admin{Role: models.RoleLevel3, IsActive: true}).
		FirstOrCreate(&super).Error
	if err != nil {
		return storeErr("seed super admin", err)
	}
	s.ensurePrincipal(ctx, s.superAdmin, superPassword)

	for _, seed := range seeds {
		email := normalizeEmail(seed.Email)
		if email == "" || s.IsSuperAdmin(email) {
			continue
		}

		role := models.Role(seed.Role)
		if !role.Valid() {
			slog.Warn("seed admin has unknown role, using LEVEL_1", "email", email, "role", seed.Role)
			role = models.RoleLevel1
		}

		admin := models.Admin{Email: email, Role: role, IsActive: true}
		result := s.db.WithContext(ctx).Where(models.Admin{Email: email}).FirstOrCreate(&admin)
		if result.Error != nil {
			return storeErr("seed admin", result.Error)
		}
		if result.RowsAffected > 0 {
			slog.Info("seeded admin", "email", email, "role", role)
		}
		if id := s.ensurePrincipal(ctx, email, seed.Password); id != "" && admin.ProviderID == "" {
			if err := s.db.WithContext(ctx).Model(&admin).Update("provider_id", id).Error; err != nil {
				return storeErr("seed admin", err)
			}
		}
	}
	return nil
}

// ensurePrincipal creates the provider principal and returns its id. It returns ""
// when no password was given or the principal already exists.
func (s *AdminService) ensurePrincipal(ctx context.Context, email, password string) string {
	if password == "" {
		return ""
	}
	id, err := s.provider.CreateUser(ctx, email, password)
	if err != nil && !errors.Is(err, authprovider.ErrUserExists) {
		slog.Error("failed to create auth principal", "email", email, "error", err)
	}
	if err != nil {
		return ""
	}
	return id
}
