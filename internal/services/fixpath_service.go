package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/tools"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed fixpath_template.yaml
var fixPathTemplateYAML []byte

// GeneratedProvenance is the score given to templated guides.
const GeneratedProvenance = 0.7

type stepTemplate struct {
	Title        string   `yaml:"title"`
	Minutes      int      `yaml:"minutes"`
	CatalogTools bool     `yaml:"catalogTools"`
	Instructions []string `yaml:"instructions"`
	Warnings     []string `yaml:"warnings"`
}

type fixPathTemplate struct {
	Title          string         `yaml:"title"`
	WarrantyImpact string         `yaml:"warrantyImpact"`
	SafetyWarnings []string       `yaml:"safetyWarnings"`
	Steps          []stepTemplate `yaml:"steps"`
}

func parseFixPathTemplate(data []byte) (*fixPathTemplate, error) {
	var t fixPathTemplate
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing fix path template: %w", err)
	}
	if t.Title == "" || len(t.Steps) == 0 {
		return nil, errors.New("fix path template needs a title and steps")
	}
	return &t, nil
}

var defaultFixPathTemplate = func() *fixPathTemplate {
	t, err := parseFixPathTemplate(fixPathTemplateYAML)
	if err != nil {
		panic(err)
	}
	return t
}()

// severityProfile maps defect severity to guide difficulty and risk.
var severityProfile = map[models.Severity]struct {
	Difficulty models.Difficulty
	Risk       models.RiskLevel
}{
	models.SeverityLow:      {models.DifficultyEasy, models.RiskLow},
	models.SeverityMedium:   {models.DifficultyModerate, models.RiskMedium},
	models.SeverityHigh:     {models.DifficultyHard, models.RiskHigh},
	models.SeverityCritical: {models.DifficultyExpert, models.RiskHigh},
}

// LiveEntitlement checks a role against uncached subscription state.
type LiveEntitlement interface {
	RequireLive(ctx context.Context, user *models.User, min models.Role) error
}

type FixPathService struct {
	store   *catalog.Store
	gate    LiveEntitlement
	catalog *tools.Catalog
	tmpl    *fixPathTemplate
}

func NewFixPathService(store *catalog.Store, gate LiveEntitlement, toolCatalog *tools.Catalog) *FixPathService {
	return &FixPathService{store: store, gate: gate, catalog: toolCatalog, tmpl: defaultFixPathTemplate}
}

// Recommend returns the stored guides for a defect. When none exist, a PRO
// caller gets one generated guide; repeated calls return the same guide.
func (s *FixPathService) Recommend(ctx context.Context, user *models.User, defectID string) (*dto.RecommendFixPathResponse, error) {
	id, err := uuid.Parse(strings.TrimSpace(defectID))
	if err != nil {
		return nil, apperr.Validation("defectId", "defectId must be a valid id")
	}

	defect, err := s.store.GetDefect(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("defect")
		}
		return nil, apperr.Internal("loading defect failed", err)
	}

	existing, err := s.store.ListFixPaths(ctx, defect.ID)
	if err != nil {
		return nil, apperr.Internal("listing fix paths failed", err)
	}
	if len(existing) > 0 {
		return &dto.RecommendFixPathResponse{FixPaths: existing, Generated: false}, nil
	}

	if err := s.gate.RequireLive(ctx, user, models.RolePro); err != nil {
		return nil, err
	}

	resp := &dto.RecommendFixPathResponse{}
	err = s.store.Transaction(ctx, func(tx *catalog.Store) error {
		if _, err := tx.LockDefect(ctx, user.ID, defect.ID); err != nil {
			return err
		}
		paths, err := tx.ListFixPaths(ctx, defect.ID)
		if err != nil {
			return err
		}
		if len(paths) > 0 {
			resp.FixPaths = paths
			return nil
		}

		fp := s.generate(ctx, tx, defect)
		if err := tx.CreateFixPath(ctx, fp); err != nil {
			return err
		}
		paths, err = tx.ListFixPaths(ctx, defect.ID)
		if err != nil {
			return err
		}
		resp.FixPaths = paths
		resp.Generated = true
		return nil
	})
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, apperr.NotFound("defect")
	}
	if err != nil {
		return nil, apperr.Internal("generating fix path failed", err)
	}
	return resp, nil
}

// generate fills the embedded template for defect.
func (s *FixPathService) generate(ctx context.Context, tx *catalog.Store, defect *models.Defect) *models.FixPath {
	item := defect.Item
	if item == nil {
		item = &models.Item{Category: "unknown"}
	}
	device := deviceLabel(item)
	primary := "the reported fault"
	if len(defect.Symptoms) > 0 {
		primary = strings.ToLower(defect.Symptoms[0])
	}
	r := strings.NewReplacer(
		"{{device}}", device,
		"{{category}}", item.Category,
		"{{symptoms}}", strings.Join(defect.Symptoms, "; "),
		"{{primarySymptom}}", primary,
	)

	toolNames := s.toolNamesFor(item.Category)
	steps := make([]models.FixStep, 0, len(s.tmpl.Steps))
	minutes := 0
	for i, st := range s.tmpl.Steps {
		step := models.FixStep{
			Order:            i + 1,
			Title:            r.Replace(st.Title),
			Instructions:     replaceAll(r, st.Instructions),
			Tools:            []string{},
			EstimatedMinutes: st.Minutes,
			Warnings:         replaceAll(r, st.Warnings),
		}
		if st.CatalogTools {
			step.Tools = toolNames
		}
		minutes += st.Minutes
		steps = append(steps, step)
	}

	profile, ok := severityProfile[defect.Severity]
	if !ok {
		profile = severityProfile[models.SeverityMedium]
	}

	fp := &models.FixPath{
		DefectID:         defect.ID,
		Title:            r.Replace(s.tmpl.Title),
		Steps:            steps,
		Difficulty:       profile.Difficulty,
		RiskLevel:        profile.Risk,
		WarrantyImpact:   r.Replace(s.tmpl.WarrantyImpact),
		SafetyWarnings:   replaceAll(r, s.tmpl.SafetyWarnings),
		ProvenanceScore:  GeneratedProvenance,
		SourceType:       models.SourceAIGenerated,
		EstimatedMinutes: minutes,
	}

	if part := s.compatiblePart(ctx, tx, item); part != nil {
		fp.Parts = []models.Part{*part}
		fp.EstimatedCost = part.EstimatedCost
	}
	return fp
}

func (s *FixPathService) compatiblePart(ctx context.Context, tx *catalog.Store, item *models.Item) *models.Part {
	for _, m := range []*string{item.ModelNumber, item.Model} {
		if m == nil || *m == "" {
			continue
		}
		if part, err := tx.FindPartByModel(ctx, *m); err == nil {
			return part
		}
	}
	return nil
}

func (s *FixPathService) toolNamesFor(category string) []string {
	if s.catalog == nil {
		return []string{}
	}
	list := s.catalog.Essentials(category)
	if len(list) == 0 {
		list = s.catalog.Filter(category, false)
	}
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}
	return names
}

// Get returns a fix path reachable through a defect the user owns.
func (s *FixPathService) Get(ctx context.Context, user *models.User, id string) (*models.FixPath, error) {
	fpID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("id", "id must be a valid id")
	}
	fp, err := s.store.GetFixPath(ctx, user.ID, fpID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("fix path")
		}
		return nil, apperr.Internal("loading fix path failed", err)
	}
	return fp, nil
}

// Guide denormalizes a fix path with its defect, item, parts and tools.
func (s *FixPathService) Guide(ctx context.Context, user *models.User, id string) (*dto.RepairGuideResponse, error) {
	fp, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	defect, err := s.store.GetDefect(ctx, user.ID, fp.DefectID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("fix path")
		}
		return nil, apperr.Internal("loading defect failed", err)
	}

	resp := &dto.RepairGuideResponse{
		FixPath: *fp,
		Defect:  *defect,
		Parts:   fp.Parts,
		Tools:   []dto.GuideTool{},
	}
	if defect.Item != nil {
		resp.Item = *defect.Item
	}
	resp.Defect.Item = nil
	if resp.Parts == nil {
		resp.Parts = []models.Part{}
	}

	var names []string
	minutes := 0
	for _, st := range fp.Steps {
		names = append(names, st.Tools...)
		minutes += st.EstimatedMinutes
	}
	if minutes == 0 {
		minutes = fp.EstimatedMinutes
	}
	resp.TotalMinutes = minutes

	if s.catalog != nil {
		for _, t := range s.catalog.ByName(names) {
			resp.Tools = append(resp.Tools, dto.GuideTool{
				ID:          t.ID,
				Name:        t.Name,
				Description: t.Description,
				Essential:   t.EssentialTo(resp.Item.Category),
			})
		}
	}

	total := 0.0
	for _, p := range fp.Parts {
		total += p.EstimatedCost
	}
	resp.TotalPartsCost = math.Round(total*100) / 100
	return resp, nil
}

// CreateCurated attaches an administrator-supplied guide to any defect.
func (s *FixPathService) CreateCurated(ctx context.Context, req dto.CreateFixPathRequest) (*models.FixPath, error) {
	defectID, err := uuid.Parse(strings.TrimSpace(req.DefectID))
	if err != nil {
		return nil, apperr.Validation("defectId", "defectId must be a valid id")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("title", "title is required")
	}
	if len(req.Steps) == 0 {
		return nil, apperr.Validation("steps", "at least one step is required")
	}

	source := models.SourceType(strings.ToUpper(req.SourceType))
	if !source.Valid() || source == models.SourceAIGenerated {
		return nil, apperr.Validation("sourceType", "sourceType must be OFFICIAL, IFIXIT or COMMUNITY")
	}
	difficulty := models.Difficulty(strings.ToUpper(req.Difficulty))
	if !difficulty.Valid() {
		return nil, apperr.Validation("difficulty", "difficulty must be EASY, MODERATE, HARD or EXPERT")
	}
	risk := models.RiskLevel(strings.ToUpper(req.RiskLevel))
	if !risk.Valid() {
		return nil, apperr.Validation("riskLevel", "riskLevel must be LOW, MEDIUM or HIGH")
	}
	if math.IsNaN(req.ProvenanceScore) || req.ProvenanceScore < 0 || req.ProvenanceScore > 1 {
		return nil, apperr.Validation("provenanceScore", "provenanceScore must be between 0 and 1")
	}

	defect, err := s.store.GetDefectByID(ctx, defectID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("defect")
		}
		return nil, apperr.Internal("loading defect failed", err)
	}

	steps := make([]models.FixStep, len(req.Steps))
	minutes := 0
	for i, st := range req.Steps {
		st.Order = i + 1
		if st.Tools == nil {
			st.Tools = []string{}
		}
		minutes += st.EstimatedMinutes
		steps[i] = st
	}
	if req.EstimatedMinutes > 0 {
		minutes = req.EstimatedMinutes
	}

	fp := &models.FixPath{
		DefectID:         defect.ID,
		Title:            strings.TrimSpace(req.Title),
		Steps:            steps,
		Difficulty:       difficulty,
		RiskLevel:        risk,
		WarrantyImpact:   req.WarrantyImpact,
		SafetyWarnings:   req.SafetyWarnings,
		ProvenanceScore:  req.ProvenanceScore,
		SourceType:       source,
		SourceURL:        req.SourceURL,
		EstimatedCost:    req.EstimatedCost,
		EstimatedMinutes: minutes,
	}
	if fp.SafetyWarnings == nil {
		fp.SafetyWarnings = []string{}
	}

	err = s.store.Transaction(ctx, func(tx *catalog.Store) error {
		for _, in := range req.Parts {
			part, err := partFromInput(in)
			if err != nil {
				return err
			}
			if err := tx.UpsertPart(ctx, part); err != nil {
				return err
			}
			fp.Parts = append(fp.Parts, *part)
		}
		return tx.CreateFixPath(ctx, fp)
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, apperr.Internal("saving fix path failed", err)
	}
	return fp, nil
}

func partFromInput(in dto.PartInput) (*models.Part, error) {
	pn := strings.TrimSpace(in.PartNumber)
	if pn == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("parts.partNumber", "each part needs a partNumber and name")
	}
	if in.EstimatedCost < 0 {
		return nil, apperr.Validation("parts.estimatedCost", "part estimatedCost must not be negative")
	}
	availability := models.Availability(strings.ToUpper(in.Availability))
	switch availability {
	case "":
		availability = models.AvailabilityInStock
	case models.AvailabilityInStock, models.AvailabilityLimited, models.AvailabilityOutOfStock, models.AvailabilityDiscontinued:
	default:
		return nil, apperr.Validation("parts.availability", "part availability is not recognised")
	}
	return &models.Part{
		PartNumber:             pn,
		Name:                   strings.TrimSpace(in.Name),
		CompatibleModels:       emptyIfNil(in.CompatibleModels),
		AlternativePartNumbers: emptyIfNil(in.AlternativePartNumbers),
		EstimatedCost:          in.EstimatedCost,
		AffiliateURL:           in.AffiliateURL,
		Availability:           availability,
	}, nil
}

func deviceLabel(item *models.Item) string {
	var parts []string
	if item.Brand != nil && *item.Brand != "" {
		parts = append(parts, *item.Brand)
	}
	if item.Model != nil && *item.Model != "" {
		parts = append(parts, *item.Model)
	}
	if len(parts) == 0 {
		return item.Category
	}
	return strings.Join(parts, " ")
}

func replaceAll(r *strings.Replacer, in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = r.Replace(s)
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
