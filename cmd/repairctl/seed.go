package main

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/tools"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var seedYAML []byte

type seedLibraryTool struct {
	Name      string  `yaml:"name"`
	ToolID    *string `yaml:"toolId"`
	Available *bool   `yaml:"available"`
}

type seedLibrary struct {
	Name      string            `yaml:"name"`
	Address   string            `yaml:"address"`
	Latitude  float64           `yaml:"latitude"`
	Longitude float64           `yaml:"longitude"`
	Website   string            `yaml:"website"`
	Hours     string            `yaml:"hours"`
	Inventory []seedLibraryTool `yaml:"inventory"`
}

type seedDevice struct {
	Brand              string            `yaml:"brand"`
	Model              string            `yaml:"model"`
	ModelNumber        string            `yaml:"modelNumber"`
	Category           string            `yaml:"category"`
	ReleaseYear        int               `yaml:"releaseYear"`
	RepairabilityScore int               `yaml:"repairabilityScore"`
	Specifications     map[string]string `yaml:"specifications"`
	CommonIssues       []string          `yaml:"commonIssues"`
}

type seedPart struct {
	PartNumber             string   `yaml:"partNumber"`
	Name                   string   `yaml:"name"`
	CompatibleModels       []string `yaml:"compatibleModels"`
	AlternativePartNumbers []string `yaml:"alternativePartNumbers"`
	EstimatedCost          float64  `yaml:"estimatedCost"`
	Availability           string   `yaml:"availability"`
}

type seedData struct {
	Devices   []seedDevice  `yaml:"devices"`
	Parts     []seedPart    `yaml:"parts"`
	Libraries []seedLibrary `yaml:"libraries"`
}

var skipLibraries bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo catalog devices, parts and tool libraries",
	RunE: withDB(func(cmd *cobra.Command, _ []string, db *gorm.DB) error {
		var data seedData
		if err := yaml.Unmarshal(seedYAML, &data); err != nil {
			return fmt.Errorf("parse seed data: %w", err)
		}
		ctx := cmd.Context()
		store := catalog.NewStore(db)

		for _, d := range data.Devices {
			dev := &models.CatalogDevice{
				Brand:              d.Brand,
				Model:              d.Model,
				ModelNumber:        d.ModelNumber,
				Category:           d.Category,
				ReleaseYear:        d.ReleaseYear,
				RepairabilityScore: d.RepairabilityScore,
				Specifications:     d.Specifications,
				CommonIssues:       d.CommonIssues,
			}
			if err := store.UpsertDevice(ctx, dev); err != nil {
				return fmt.Errorf("seed device %s %s: %w", d.Brand, d.Model, err)
			}
		}

		for _, p := range data.Parts {
			part := &models.Part{
				PartNumber:             p.PartNumber,
				Name:                   p.Name,
				CompatibleModels:       p.CompatibleModels,
				AlternativePartNumbers: p.AlternativePartNumbers,
				EstimatedCost:          p.EstimatedCost,
				Availability:           models.Availability(p.Availability),
			}
			if part.AlternativePartNumbers == nil {
				part.AlternativePartNumbers = []string{}
			}
			if err := store.UpsertPart(ctx, part); err != nil {
				return fmt.Errorf("seed part %s: %w", p.PartNumber, err)
			}
		}

		libraries := 0
		if !skipLibraries {
			catalogTools, err := tools.LoadCatalog()
			if err != nil {
				return err
			}
			index := tools.NewIndex(db, catalogTools)
			for _, l := range data.Libraries {
				var existing int64
				if err := db.WithContext(ctx).Model(&models.ToolLibrary{}).Where("name = ?", l.Name).Count(&existing).Error; err != nil {
					return err
				}
				if existing > 0 {
					continue
				}
				if _, err := index.CreateLibrary(ctx, libraryRequest(l)); err != nil {
					return fmt.Errorf("seed library %s: %w", l.Name, err)
				}
				libraries++
			}
		}

		slog.Info("seed finished", "devices", len(data.Devices), "parts", len(data.Parts), "libraries", libraries)
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %d devices, %d parts, %d libraries\n", len(data.Devices), len(data.Parts), libraries)
		return err
	}),
}

func libraryRequest(l seedLibrary) dto.CreateToolLibraryRequest {
	lat, lng := l.Latitude, l.Longitude
	req := dto.CreateToolLibraryRequest{
		Name:      l.Name,
		Address:   l.Address,
		Latitude:  &lat,
		Longitude: &lng,
		Website:   l.Website,
		Hours:     l.Hours,
	}
	for _, t := range l.Inventory {
		req.Inventory = append(req.Inventory, dto.LibraryToolInput{Name: t.Name, ToolID: t.ToolID, Available: t.Available})
	}
	return req
}

func init() {
	seedCmd.Flags().BoolVar(&skipLibraries, "skip-libraries", false, "Only seed devices and parts")
}
