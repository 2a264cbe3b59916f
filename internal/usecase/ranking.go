package usecase

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smartshop/backend/internal/domain"
)

// AllCategories is the facet value that disables category filtering
const AllCategories = "all"

// Sort keys for ranked views
const (
	SortByDistance = "distance"
	SortByPrice    = "price"
)

// ViewOptions are the user controls applied to a result
type ViewOptions struct {
	MaxDistanceKm *float64 // nil means no radius limit; 0 keeps only markets at 0.0 km
	SortBy        string  // distance (default) or price
	Category      string  // empty or "all" means every category
}

// Categories returns "all" followed by every product category in alphabetical order
func Categories(result *domain.OptimizationResult) []string {
	seen := make(map[string]struct{})
	if result != nil {
		for _, m := range result.Markets {
			for _, p := range m.Products {
				if c := strings.TrimSpace(p.Category); c != "" {
					seen[c] = struct{}{}
				}
			}
		}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return append([]string{AllCategories}, categories...)
}

// BuildView filters and sorts copies of the result's markets. The result is never mutated.
func BuildView(result *domain.OptimizationResult, opts ViewOptions) []domain.Market {
	if result == nil {
		return []domain.Market{}
	}

	maxKm := math.Inf(1)
	if opts.MaxDistanceKm != nil && !math.IsNaN(*opts.MaxDistanceKm) {
		maxKm = *opts.MaxDistanceKm
	}
	filterCategory := opts.Category != "" && !strings.EqualFold(opts.Category, AllCategories)

	type ranked struct {
		market   domain.Market
		distance float64
		total    decimal.Decimal
	}

	view := make([]ranked, 0, len(result.Markets))
	for _, m := range result.Markets {
		km, ok := domain.ParseDistance(m.Distance)
		if !ok || km > maxKm {
			continue
		}

		market := m.Clone()
		if filterCategory {
			for name, p := range market.Products {
				if !strings.EqualFold(p.Category, opts.Category) {
					delete(market.Products, name)
				}
			}
			if len(market.Products) == 0 {
				continue
			}
		}

		view = append(view, ranked{market: market, distance: km, total: productTotal(market.Products)})
	}

	if opts.SortBy == SortByPrice {
		slices.SortStableFunc(view, func(a, b ranked) int { return a.total.Cmp(b.total) })
	} else {
		slices.SortStableFunc(view, func(a, b ranked) int {
			switch {
			case a.distance < b.distance:
				return -1
			case a.distance > b.distance:
				return 1
			}
			return 0
		})
	}

	markets := make([]domain.Market, len(view))
	for i, r := range view {
		markets[i] = r.market
	}
	return markets
}
