package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"gorm.io/gorm"
)

var ErrInvalidLibrary = errors.New("invalid tool library")

type Query struct {
	Category      string
	EssentialOnly bool
	Lat           *float64
	Lng           *float64
}

type NearbyLibrary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distanceKm"`
	Phone      string  `json:"phone,omitempty"`
	Website    string  `json:"website,omitempty"`
	Hours      string  `json:"hours,omitempty"`
	Available  bool    `json:"available"`
}

type ToolResult struct {
	Tool
	Essential       bool            `json:"essential"`
	NearbyLibraries []NearbyLibrary `json:"nearbyLibraries,omitempty"`
}

type Result struct {
	Tools     []ToolResult    `json:"tools"`
	Libraries []NearbyLibrary `json:"libraries,omitempty"`
	Count     int             `json:"count"`
}

type Index struct {
	db      *gorm.DB
	catalog *Catalog
}

func NewIndex(db *gorm.DB, catalog *Catalog) *Index {
	return &Index{db: db, catalog: catalog}
}

func (x *Index) Catalog() *Catalog {
	return x.catalog
}

// Search filters the catalog and, when coordinates are given, attaches the
// libraries within the search box that stock each tool, nearest first.
func (x *Index) Search(ctx context.Context, q Query) (*Result, error) {
	if err := ValidateCoordinates(q.Lat, q.Lng); err != nil {
		return nil, err
	}

	filtered := x.catalog.Filter(q.Category, q.EssentialOnly)
	res := &Result{Tools: make([]ToolResult, 0, len(filtered))}
	for _, t := range filtered {
		res.Tools = append(res.Tools, ToolResult{Tool: t, Essential: q.Category != "" && t.EssentialTo(q.Category)})
	}
	res.Count = len(res.Tools)

	if q.Lat == nil {
		return res, nil
	}

	libs, err := x.librariesNear(ctx, *q.Lat, *q.Lng)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		lib      models.ToolLibrary
		distance float64
	}
	rankedLibs := make([]ranked, 0, len(libs))
	for _, l := range libs {
		rankedLibs = append(rankedLibs, ranked{lib: l, distance: Haversine(*q.Lat, *q.Lng, l.Latitude, l.Longitude)})
	}
	sort.SliceStable(rankedLibs, func(i, j int) bool { return rankedLibs[i].distance < rankedLibs[j].distance })

	for _, r := range rankedLibs {
		res.Libraries = append(res.Libraries, nearby(r.lib, r.distance, true))
	}

	for i := range res.Tools {
		toolID := res.Tools[i].ID
		for _, r := range rankedLibs {
			for _, inv := range r.lib.Inventory {
				if inv.Serves(toolID) {
					res.Tools[i].NearbyLibraries = append(res.Tools[i].NearbyLibraries, nearby(r.lib, r.distance, inv.Available))
					break
				}
			}
		}
	}
	return res, nil
}

func nearby(l models.ToolLibrary, distance float64, available bool) NearbyLibrary {
	return NearbyLibrary{
		ID:         l.ID.String(),
		Name:       l.Name,
		Address:    l.Address,
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		DistanceKm: float64(int(distance*100+0.5)) / 100,
		Phone:      l.Phone,
		Website:    l.Website,
		Hours:      l.Hours,
		Available:  available,
	}
}

func (x *Index) librariesNear(ctx context.Context, lat, lng float64) ([]models.ToolLibrary, error) {
	box := BoundingBox(lat, lng, SearchBoxDegrees)
	var libs []models.ToolLibrary
	err := x.db.WithContext(ctx).
		Preload("Inventory.Links").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&libs).Error
	if err != nil {
		return nil, fmt.Errorf("loading tool libraries: %w", err)
	}
	return libs, nil
}

// CreateLibrary stores a curated library. Each inventory row is linked to
// its catalog tools here, so searches join on ids only. An explicit toolId
// links exactly that tool; otherwise every tool matching the name is linked.
func (x *Index) CreateLibrary(ctx context.Context, req dto.CreateToolLibraryRequest) (*models.ToolLibrary, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidLibrary("name", "name is required")
	}
	if req.Latitude == nil {
		return nil, invalidLibrary("latitude", "latitude and longitude are required")
	}
	if req.Longitude == nil {
		return nil, invalidLibrary("longitude", "latitude and longitude are required")
	}
	if err := ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		var fe *FieldError
		if errors.As(err, &fe) && fe.Field == "lng" {
			return nil, invalidLibrary("longitude", "longitude must be between -180 and 180")
		}
		return nil, invalidLibrary("latitude", "latitude must be between -90 and 90")
	}

	lib := models.ToolLibrary{
		Name:      strings.TrimSpace(req.Name),
		Address:   req.Address,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Phone:     req.Phone,
		Email:     req.Email,
		Website:   req.Website,
		Hours:     req.Hours,
	}
	for _, in := range req.Inventory {
		if strings.TrimSpace(in.Name) == "" {
			return nil, invalidLibrary("inventory.name", "inventory name is required")
		}
		row := models.LibraryTool{Name: strings.TrimSpace(in.Name), Available: true}
		if in.Available != nil {
			row.Available = *in.Available
		}
		var ids []string
		if in.ToolID != nil && *in.ToolID != "" {
			if _, ok := x.catalog.Get(*in.ToolID); !ok {
				return nil, invalidLibrary("inventory.toolId", fmt.Sprintf("unknown tool id %q", *in.ToolID))
			}
			ids = []string{*in.ToolID}
		} else {
			ids = x.catalog.Matches(row.Name)
		}
		for _, id := range ids {
			row.Links = append(row.Links, models.LibraryToolLink{ToolID: id})
		}
		lib.Inventory = append(lib.Inventory, row)
	}

	if err := x.db.WithContext(ctx).Create(&lib).Error; err != nil {
		return nil, fmt.Errorf("creating tool library: %w", err)
	}
	return &lib, nil
}

func invalidLibrary(field, msg string) error {
	return &FieldError{Err: ErrInvalidLibrary, Field: field, Msg: msg}
}
