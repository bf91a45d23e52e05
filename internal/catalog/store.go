// Package catalog is the relational store for items, defects, fix paths and
// parts. Every user-facing read is scoped to the owning user.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound covers both missing rows and rows owned by another user.
var ErrNotFound = errors.New("not found")

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxSearchResult = 100
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a Store bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// likePattern escapes LIKE wildcards so user input matches literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// NormalizePage clamps page to >=1 and pageSize to 1..MaxPageSize.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// --- Items ---

func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	if item.UserID == uuid.Nil {
		return errors.New("item owner is required")
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, userID, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Item, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	q := s.db.WithContext(ctx).Model(&models.Item{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Item
	err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateItemMetadata merges patch into the item's metadata. Metadata is the
// only mutable part of an item.
func (s *Store) UpdateItemMetadata(ctx context.Context, userID, id uuid.UUID, patch map[string]interface{}) (*models.Item, error) {
	item, err := s.GetItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if item.Metadata == nil {
		item.Metadata = map[string]interface{}{}
	}
	for k, v := range patch {
		item.Metadata[k] = v
	}
	if err := s.db.WithContext(ctx).Model(item).Update("metadata", item.Metadata).Error; err != nil {
		return nil, err
	}
	return item, nil
}

type SearchFilter struct {
	Query    string
	Brand    string
	Category string
}

// SearchItems matches case-insensitively: Query against brand, model, model
// number and category; Brand as a substring; Category exactly.
func (s *Store) SearchItems(ctx context.Context, userID uuid.UUID, f SearchFilter) ([]models.Item, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)

	if strings.TrimSpace(f.Query) != "" {
		p := likePattern(f.Query)
		q = q.Where(`(LOWER(brand) LIKE ? ESCAPE '\' OR LOWER(model) LIKE ? ESCAPE '\' OR LOWER(model_number) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`, p, p, p, p)
	}
	if strings.TrimSpace(f.Brand) != "" {
		q = q.Where(`LOWER(brand) LIKE ? ESCAPE '\'`, likePattern(f.Brand))
	}
	if strings.TrimSpace(f.Category) != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(strings.TrimSpace(f.Category)))
	}

	var items []models.Item
	if err := q.Order("created_at DESC").Limit(maxSearchResult).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Catalog devices ---

func (s *Store) FindDevice(ctx context.Context, brand, model string) (*models.CatalogDevice, error) {
	b, m := models.DeviceKey(brand), models.DeviceKey(model)
	if b == "" || m == "" {
		return nil, ErrNotFound
	}
	var dev models.CatalogDevice
	if err := s.db.WithContext(ctx).Where("brand_key = ? AND model_key = ?", b, m).First(&dev).Error; err != nil {
		return nil, notFound(err)
	}
	return &dev, nil
}

func (s *Store) UpsertDevice(ctx context.Context, dev *models.CatalogDevice) error {
	existing, err := s.FindDevice(ctx, dev.Brand, dev.Model)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.db.WithContext(ctx).Create(dev).Error
	case err != nil:
		return err
	}
	dev.ID = existing.ID
	dev.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(dev).Error
}

// --- Defects ---

// CreateDefect attaches d to an item the user owns. The defect always
// inherits the item's owner.
func (s *Store) CreateDefect(ctx context.Context, userID uuid.UUID, d *models.Defect) error {
	item, err := s.GetItem(ctx, userID, d.ItemID)
	if err != nil {
		return err
	}
	d.UserID = item.UserID
	if d.Severity == "" {
		d.Severity = models.SeverityMedium
	}
	if err := s.db.WithContext(ctx).Omit("Item").Create(d).Error; err != nil {
		return fmt.Errorf("creating defect: %w", err)
	}
	d.Item = item
	return nil
}

func (s *Store) GetDefect(ctx context.Context, userID, id uuid.UUID) (*models.Defect, error) {
	var d models.Defect
	err := s.db.WithContext(ctx).Preload("Item").Where("id = ? AND user_id = ?", id, userID).First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// GetDefectByID skips the ownership check; callers must be administrative.
func (s *Store) GetDefectByID(ctx context.Context, id uuid.UUID) (*models.Defect, error) {
	var d models.Defect
	if err := s.db.WithContext(ctx).Preload("Item").First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// LockDefect re-reads an owned defect with a row lock held until the
// surrounding transaction ends. SQLite ignores the lock clause and relies on
// its single-writer transactions instead.
func (s *Store) LockDefect(ctx context.Context, userID, id uuid.UUID) (*models.Defect, error) {
	var d models.Defect
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Store) ListDefects(ctx context.Context, userID uuid.UUID, itemID *uuid.UUID) ([]models.Defect, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if itemID != nil {
		q = q.Where("item_id = ?", *itemID)
	}
	var defects []models.Defect
	if err := q.Order("created_at DESC").Find(&defects).Error; err != nil {
		return nil, err
	}
	return defects, nil
}

// --- Fix paths ---

// ListFixPaths orders by provenance score, highest first. Equal scores keep
// creation order.
func (s *Store) ListFixPaths(ctx context.Context, defectID uuid.UUID) ([]models.FixPath, error) {
	var paths []models.FixPath
	err := s.db.WithContext(ctx).
		Preload("Parts").
		Where("defect_id = ?", defectID).
		Order("provenance_score DESC").
		Order("created_at ASC").
		Find(&paths).Error
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (s *Store) CreateFixPath(ctx context.Context, fp *models.FixPath) error {
	if fp.ProvenanceScore < 0 || fp.ProvenanceScore > 1 {
		return fmt.Errorf("provenance score %v out of range", fp.ProvenanceScore)
	}
	if err := s.db.WithContext(ctx).Create(fp).Error; err != nil {
		return fmt.Errorf("creating fix path: %w", err)
	}
	return nil
}

// GetFixPath resolves a fix path only through a defect the user owns.
func (s *Store) GetFixPath(ctx context.Context, userID, id uuid.UUID) (*models.FixPath, error) {
	var fp models.FixPath
	err := s.db.WithContext(ctx).
		Preload("Parts").
		Joins("JOIN defects ON defects.id = fix_paths.defect_id").
		Where("fix_paths.id = ? AND defects.user_id = ?", id, userID).
		First(&fp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fp, nil
}

// --- Parts ---

// FindPart matches the primary part number, then any alternative number.
func (s *Store) FindPart(ctx context.Context, partNumber string) (*models.Part, error) {
	pn := strings.TrimSpace(partNumber)
	if pn == "" {
		return nil, ErrNotFound
	}
	db := s.db.WithContext(ctx)

	var part models.Part
	err := db.Where("LOWER(part_number) = ?", strings.ToLower(pn)).First(&part).Error
	if err == nil {
		return &part, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	err = db.Where(`LOWER(alternative_part_numbers) LIKE ? ESCAPE '\'`, jsonElementPattern(pn)).First(&part).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &part, nil
}

// FindPartByModel returns the first part listing model among its compatible models.
func (s *Store) FindPartByModel(ctx context.Context, model string) (*models.Part, error) {
	if strings.TrimSpace(model) == "" {
		return nil, ErrNotFound
	}
	var part models.Part
	err := s.db.WithContext(ctx).
		Where(`LOWER(compatible_models) LIKE ? ESCAPE '\'`, jsonElementPattern(model)).
		Order("estimated_cost ASC").
		First(&part).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &part, nil
}

// jsonElementPattern matches a whole string element of a JSON array column.
func jsonElementPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return `%"` + r.Replace(strings.ToLower(strings.TrimSpace(s))) + `"%`
}

func (s *Store) UpsertPart(ctx context.Context, p *models.Part) error {
	var existing models.Part
	err := s.db.WithContext(ctx).Where("part_number = ?", p.PartNumber).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.WithContext(ctx).Create(p).Error
	case err != nil:
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(p).Error
}

// --- Account deletion ---

// DeleteUserData removes the user and everything they own in one transaction.
func (s *Store) DeleteUserData(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		defectIDs := tx.Model(&models.Defect{}).Select("id").Where("user_id = ?", userID)
		fixPathIDs := tx.Model(&models.FixPath{}).Select("id").Where("defect_id IN (?)", defectIDs)

		if err := tx.Exec("DELETE FROM fix_path_parts WHERE fix_path_id IN (?)", fixPathIDs).Error; err != nil {
			return fmt.Errorf("deleting fix path parts: %w", err)
		}
		if err := tx.Where("defect_id IN (?)", defectIDs).Delete(&models.FixPath{}).Error; err != nil {
			return fmt.Errorf("deleting fix paths: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Defect{}).Error; err != nil {
			return fmt.Errorf("deleting defects: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("deleting items: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Subscription{}).Error; err != nil {
			return fmt.Errorf("deleting subscription: %w", err)
		}
		if err := tx.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		return nil
	})
}
