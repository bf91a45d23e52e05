package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidClerkData = errors.New("invalid clerk event payload")
)

// EntitlementInvalidator drops cached entitlement state for a user.
type EntitlementInvalidator interface {
	Invalidate(ctx context.Context, user *models.User)
}

type UserService struct {
	db      *gorm.DB
	store   *catalog.Store
	invalid EntitlementInvalidator
}

func NewUserService(db *gorm.DB, store *catalog.Store, invalid EntitlementInvalidator) *UserService {
	return &UserService{db: db, store: store, invalid: invalid}
}

// EnsureUser returns the user for clerkID, creating it on first sight.
// Concurrent first requests converge on one row through the unique clerk id.
func (s *UserService) EnsureUser(ctx context.Context, clerkID, email string) (*models.User, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, errors.New("clerk id is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error
	if err == nil {
		if user.Email == "" && email != "" {
			if err := s.db.WithContext(ctx).Model(&user).Update("email", email).Error; err != nil {
				slog.Warn("backfilling user email failed", "user_id", clerkID, "error", err)
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	user = models.User{ClerkID: clerkID, Email: email, Role: models.RoleUser}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "clerk_id"}}, DoNothing: true}).
		Create(&user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	// DoNothing leaves the struct untouched when another request won the race.
	var stored models.User
	if err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reloading user: %w", err)
	}
	slog.Info("user provisioned", "user_id", clerkID)
	return &stored, nil
}

func (s *UserService) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// HandleClerkEvent applies a verified Clerk webhook. Unknown event types are
// accepted and ignored.
func (s *UserService) HandleClerkEvent(ctx context.Context, event dto.ClerkWebhookEvent) error {
	switch event.Type {
	case "user.created", "user.updated":
		var cu dto.ClerkUser
		if err := json.Unmarshal(event.Data, &cu); err != nil || cu.ID == "" {
			return ErrInvalidClerkData
		}
		return s.syncUser(ctx, cu)
	case "user.deleted":
		var cu dto.ClerkUser
		if err := json.Unmarshal(event.Data, &cu); err != nil || cu.ID == "" {
			return ErrInvalidClerkData
		}
		user, err := s.GetByClerkID(ctx, cu.ID)
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.deleteUser(ctx, user, "clerk_webhook")
	default:
		slog.Debug("ignoring clerk event", "type", event.Type)
		return nil
	}
}

func (s *UserService) syncUser(ctx context.Context, cu dto.ClerkUser) error {
	user, err := s.EnsureUser(ctx, cu.ID, cu.PrimaryEmail())
	if err != nil {
		return err
	}
	email := cu.PrimaryEmail()
	if email == "" || email == user.Email {
		return nil
	}
	return s.db.WithContext(ctx).Model(user).Update("email", email).Error
}

// DeleteAccount removes the caller and everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, user *models.User) error {
	return s.deleteUser(ctx, user, "self_service")
}

func (s *UserService) deleteUser(ctx context.Context, user *models.User, origin string) error {
	if err := s.store.DeleteUserData(ctx, user.ID); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	s.invalidate(ctx, user)
	logging.Audit(ctx, logging.ActionAccountDeleted,
		slog.String("user_id", user.ClerkID),
		slog.String("origin", origin),
	)
	return nil
}

// GrantAdmin stores the ADMIN role, creating the user when needed.
func (s *UserService) GrantAdmin(ctx context.Context, clerkID string) (*models.User, error) {
	user, err := s.EnsureUser(ctx, clerkID, "")
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", models.RoleAdmin).Error; err != nil {
		return nil, fmt.Errorf("granting admin: %w", err)
	}
	user.Role = models.RoleAdmin
	s.invalidate(ctx, user)
	return user, nil
}

// RevokeAdmin resets a stored ADMIN role to USER. PRO access is still
// derived from the live subscription.
func (s *UserService) RevokeAdmin(ctx context.Context, clerkID string) (*models.User, error) {
	user, err := s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", models.RoleUser).Error; err != nil {
		return nil, fmt.Errorf("revoking admin: %w", err)
	}
	user.Role = models.RoleUser
	s.invalidate(ctx, user)
	return user, nil
}

func (s *UserService) invalidate(ctx context.Context, user *models.User) {
	if s.invalid != nil {
		s.invalid.Invalidate(ctx, user)
	}
}
