package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"gorm.io/gorm"
)

type Config struct {
	AdminIDs   []string
	UpgradeURL string
	CacheTTL   time.Duration
}

// Gate computes effective roles. A stored PRO role never grants PRO without
// a live entitling subscription.
type Gate struct {
	db         *gorm.DB
	cache      Cache
	ttl        time.Duration
	admins     map[string]bool
	upgradeURL string
}

func NewGate(db *gorm.DB, cache Cache, cfg Config) *Gate {
	if cache == nil {
		cache = NewMemoryCache()
	}
	admins := make(map[string]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Gate{db: db, cache: cache, ttl: ttl, admins: admins, upgradeURL: cfg.UpgradeURL}
}

func (g *Gate) UpgradeURL() string {
	return g.upgradeURL
}

// EffectiveRole uses the cached subscription snapshot when fresh.
func (g *Gate) EffectiveRole(ctx context.Context, user *models.User) (models.Role, error) {
	return g.effectiveRole(ctx, user, false)
}

// LiveRole always reads the subscription table.
func (g *Gate) LiveRole(ctx context.Context, user *models.User) (models.Role, error) {
	return g.effectiveRole(ctx, user, true)
}

func (g *Gate) effectiveRole(ctx context.Context, user *models.User, live bool) (models.Role, error) {
	if user == nil {
		return "", apperr.Unauthorized("authentication required")
	}
	if user.Role == models.RoleAdmin || g.admins[user.ClerkID] {
		return models.RoleAdmin, nil
	}

	snap, err := g.snapshot(ctx, user, live)
	if err != nil {
		return "", err
	}
	if snap.Entitled() {
		return models.RolePro, nil
	}
	return models.RoleUser, nil
}

// Require fails with Forbidden when the caller's effective role is below min.
func (g *Gate) Require(ctx context.Context, user *models.User, min models.Role) error {
	return g.require(ctx, user, min, false)
}

// RequireLive is Require with the cache bypassed, for monetized actions.
func (g *Gate) RequireLive(ctx context.Context, user *models.User, min models.Role) error {
	return g.require(ctx, user, min, true)
}

func (g *Gate) require(ctx context.Context, user *models.User, min models.Role, live bool) error {
	role, err := g.effectiveRole(ctx, user, live)
	if err != nil {
		return err
	}
	if AtLeast(role, min) {
		return nil
	}

	logging.Audit(ctx, logging.ActionEntitlementDenied,
		slog.String("user_id", user.ClerkID),
		slog.String("role", string(role)),
		slog.String("required", string(min)),
	)
	if min == models.RoleAdmin {
		return apperr.Forbidden("admin access required", "")
	}
	return apperr.Forbidden(fmt.Sprintf("%s subscription required", min), g.upgradeURL)
}

// Invalidate drops the cached snapshot so the next check reads live state.
func (g *Gate) Invalidate(ctx context.Context, user *models.User) {
	if user == nil {
		return
	}
	if err := g.cache.Delete(ctx, user.ID.String()); err != nil {
		slog.Warn("entitlement cache invalidate failed", "user_id", user.ClerkID, "error", err)
	}
}

func (g *Gate) snapshot(ctx context.Context, user *models.User, live bool) (Snapshot, error) {
	key := user.ID.String()
	if !live {
		snap, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("entitlement cache read failed", "user_id", user.ClerkID, "error", err)
		} else if ok {
			return snap, nil
		}
	}

	snap, err := g.lookup(ctx, user)
	if err != nil {
		return Snapshot{}, apperr.Internal("entitlement lookup failed", err)
	}
	if err := g.cache.Set(ctx, key, snap, g.ttl); err != nil {
		slog.Warn("entitlement cache write failed", "user_id", user.ClerkID, "error", err)
	}
	return snap, nil
}

// lookup picks the entitling subscription with the latest period end, or
// the most recently updated one when none entitles.
func (g *Gate) lookup(ctx context.Context, user *models.User) (Snapshot, error) {
	var subs []models.Subscription
	err := g.db.WithContext(ctx).
		Where("user_id = ? OR (clerk_user_id = ? AND clerk_user_id <> '')", user.ID, user.ClerkID).
		Order("updated_at DESC").
		Find(&subs).Error
	if err != nil {
		return Snapshot{}, err
	}
	if len(subs) == 0 {
		return Snapshot{}, nil
	}

	best := subs[0]
	for _, s := range subs {
		if !StatusEntitles(s.Status) {
			continue
		}
		if !StatusEntitles(best.Status) || s.CurrentPeriodEnd.After(best.CurrentPeriodEnd) {
			best = s
		}
	}
	return Snapshot{Found: true, Status: best.Status, PeriodEnd: best.CurrentPeriodEnd}, nil
}
