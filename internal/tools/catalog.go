// Package tools serves the static tool catalog and finds nearby tool-lending
// libraries that stock each tool.
package tools

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

const allCategories = "all"

type Tool struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Categories   []string `yaml:"categories" json:"categories"`
	EssentialFor []string `yaml:"essentialFor" json:"essentialFor"`
	PurchaseCost float64  `yaml:"purchaseCost" json:"purchaseCost"`
}

// AppliesTo reports whether the tool is listed for category or for all categories.
func (t Tool) AppliesTo(category string) bool {
	c := strings.ToLower(category)
	return slices.Contains(t.Categories, allCategories) || slices.Contains(t.Categories, c)
}

// EssentialTo reports whether the tool is essential for category. An empty
// category matches tools essential for anything.
func (t Tool) EssentialTo(category string) bool {
	if category == "" {
		return len(t.EssentialFor) > 0
	}
	c := strings.ToLower(category)
	return slices.Contains(t.EssentialFor, allCategories) || slices.Contains(t.EssentialFor, c)
}

type Catalog struct {
	tools []Tool
	byID  map[string]Tool
}

// LoadCatalog parses the embedded tool catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Tools []Tool `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tool catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]Tool, len(doc.Tools))}
	for _, t := range doc.Tools {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("tool catalog entry missing id or name: %+v", t)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tool id %q", t.ID)
		}
		c.tools = append(c.tools, t)
		c.byID[t.ID] = t
	}
	return c, nil
}

func (c *Catalog) All() []Tool {
	return slices.Clone(c.tools)
}

func (c *Catalog) Get(id string) (Tool, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Filter applies the category and essential filters in catalog order.
func (c *Catalog) Filter(category string, essentialOnly bool) []Tool {
	category = strings.ToLower(strings.TrimSpace(category))
	out := make([]Tool, 0, len(c.tools))
	for _, t := range c.tools {
		if category != "" && !t.AppliesTo(category) {
			continue
		}
		if essentialOnly && !t.EssentialTo(category) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Essentials returns the tools essential for category.
func (c *Catalog) Essentials(category string) []Tool {
	return c.Filter(category, true)
}

// Matches maps a free-text inventory name to every catalog tool whose name
// contains, or is contained in, name case-insensitively. "screwdriver"
// matches every screwdriver set.
func (c *Catalog) Matches(name string) []string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil
	}
	var ids []string
	for _, t := range c.tools {
		tn := strings.ToLower(t.Name)
		if strings.Contains(tn, n) || strings.Contains(n, tn) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// ByName finds tools by display name, case-insensitively; unknown names are skipped.
func (c *Catalog) ByName(names []string) []Tool {
	var out []Tool
	seen := make(map[string]bool)
	for _, name := range names {
		for _, t := range c.tools {
			if strings.EqualFold(t.Name, strings.TrimSpace(name)) && !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out
}
