// Package marketplace builds vendor price comparisons for replacement parts.
// Quotes are simulated from a single base price; every response says so.
package marketplace

import (
	"context"
	"errors"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/models"
)

// DefaultBasePrice is used when no known part matches the query.
const DefaultBasePrice = 29.99

var ErrEmptyQuery = errors.New("partNumber or model is required")

type Vendor struct {
	Name         string
	Multiplier   float64
	Shipping     float64
	DeliveryDays int
}

// Vendors is the fixed generation order. Ties in best-deal selection go to
// the earlier vendor.
var Vendors = []Vendor{
	{Name: "Amazon", Multiplier: 1.10, Shipping: 0, DeliveryDays: 2},
	{Name: "eBay", Multiplier: 0.85, Shipping: 5.99, DeliveryDays: 5},
	{Name: "OEM", Multiplier: 1.50, Shipping: 8.99, DeliveryDays: 7},
	{Name: "AliExpress", Multiplier: 0.60, Shipping: 0, DeliveryDays: 21},
}

type Quote struct {
	Vendor       string  `json:"vendor"`
	Price        float64 `json:"price"`
	Shipping     float64 `json:"shipping"`
	Total        float64 `json:"total"`
	DeliveryDays int     `json:"deliveryDays"`
	URL          string  `json:"url"`
}

type Comparison struct {
	PartNumber string       `json:"partNumber,omitempty"`
	Model      string       `json:"model,omitempty"`
	Part       *models.Part `json:"part,omitempty"`
	BasePrice  float64      `json:"basePrice"`
	Currency   string       `json:"currency"`
	Quotes     []Quote      `json:"quotes"`
	BestDeal   *Quote       `json:"bestDeal"`
	Savings    float64      `json:"savings"`
	Simulated  bool         `json:"simulated"`
}

// PartLookup finds catalog parts by number or compatible model.
type PartLookup interface {
	FindPart(ctx context.Context, partNumber string) (*models.Part, error)
	FindPartByModel(ctx context.Context, model string) (*models.Part, error)
}

type Config struct {
	DefaultPrice       float64
	AmazonAffiliateTag string
	EbayCampaignID     string
}

type Aggregator struct {
	parts PartLookup
	cfg   Config
}

func NewAggregator(parts PartLookup, cfg Config) *Aggregator {
	if cfg.DefaultPrice <= 0 {
		cfg.DefaultPrice = DefaultBasePrice
	}
	return &Aggregator{parts: parts, cfg: cfg}
}

// Compare prices a part known by number and/or model across all vendors.
func (a *Aggregator) Compare(ctx context.Context, partNumber, model string) (*Comparison, error) {
	partNumber, model = strings.TrimSpace(partNumber), strings.TrimSpace(model)
	if partNumber == "" && model == "" {
		return nil, ErrEmptyQuery
	}

	cmp := &Comparison{
		PartNumber: partNumber,
		Model:      model,
		BasePrice:  a.cfg.DefaultPrice,
		Currency:   "USD",
		Simulated:  true,
	}

	part, err := a.lookup(ctx, partNumber, model)
	if err != nil {
		return nil, err
	}
	if part != nil {
		cmp.Part = part
		if part.EstimatedCost > 0 {
			cmp.BasePrice = part.EstimatedCost
		}
	}

	query := partNumber
	if query == "" {
		query = model
	}
	oemURL := ""
	if part != nil {
		oemURL = part.AffiliateURL
	}
	cmp.Quotes = a.quotes(cmp.BasePrice, query, oemURL)

	if best, savings, ok := SelectBestDeal(cmp.Quotes); ok {
		cmp.BestDeal = &best
		cmp.Savings = savings
	}
	return cmp, nil
}

func (a *Aggregator) lookup(ctx context.Context, partNumber, model string) (*models.Part, error) {
	if a.parts == nil {
		return nil, nil
	}
	if partNumber != "" {
		if p, err := a.parts.FindPart(ctx, partNumber); err == nil {
			return p, nil
		}
	}
	if model != "" {
		if p, err := a.parts.FindPartByModel(ctx, model); err == nil {
			return p, nil
		}
	}
	return nil, nil
}

func (a *Aggregator) quotes(base float64, query, oemURL string) []Quote {
	out := make([]Quote, 0, len(Vendors))
	for _, v := range Vendors {
		price := RoundCents(base * v.Multiplier)
		out = append(out, Quote{
			Vendor:       v.Name,
			Price:        price,
			Shipping:     v.Shipping,
			Total:        RoundCents(price + v.Shipping),
			DeliveryDays: v.DeliveryDays,
			URL:          a.vendorURL(v.Name, query, oemURL),
		})
	}
	return out
}

func (a *Aggregator) vendorURL(vendor, query, oemURL string) string {
	q := url.QueryEscape(query)
	switch vendor {
	case "Amazon":
		u := "https://www.amazon.com/s?k=" + q
		if a.cfg.AmazonAffiliateTag != "" {
			u += "&tag=" + url.QueryEscape(a.cfg.AmazonAffiliateTag)
		}
		return u
	case "eBay":
		u := "https://www.ebay.com/sch/i.html?_nkw=" + q
		if a.cfg.EbayCampaignID != "" {
			u += "&mkcid=1&campid=" + url.QueryEscape(a.cfg.EbayCampaignID)
		}
		return u
	case "OEM":
		if oemURL != "" {
			return oemURL
		}
		return "https://www.google.com/search?q=" + q + "+OEM+part"
	case "AliExpress":
		return "https://www.aliexpress.com/wholesale?SearchText=" + q
	}
	return ""
}

// SelectBestDeal ranks quotes by listed unit price, keeping generation order
// for equal prices, and returns the first. Savings is the most expensive
// total minus the best deal's total.
func SelectBestDeal(quotes []Quote) (Quote, float64, bool) {
	if len(quotes) == 0 {
		return Quote{}, 0, false
	}
	ranked := make([]Quote, len(quotes))
	copy(ranked, quotes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Price < ranked[j].Price
	})

	best := ranked[0]
	worst := best.Total
	for _, q := range quotes {
		worst = math.Max(worst, q.Total)
	}
	return best, RoundCents(worst - best.Total), true
}

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
