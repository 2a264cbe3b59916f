package usecase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smartshop/backend/internal/domain"
)

// DefaultMarkup scales the reference market total into the "original" estimate
const DefaultMarkup = 1.3

// Aggregator merges store offers into markets keyed by store id.
// It is not safe for concurrent use.
type Aggregator struct {
	origin  domain.Location
	order   []string
	markets map[string]*domain.Market
}

// NewAggregator creates an aggregator measuring distances from origin
func NewAggregator(origin domain.Location) *Aggregator {
	return &Aggregator{
		origin:  origin,
		markets: make(map[string]*domain.Market),
	}
}

// market returns the market for a store, creating it on first sighting
func (a *Aggregator) market(offer domain.StoreOffer) *domain.Market {
	if m, ok := a.markets[offer.ID]; ok {
		return m
	}

	store := domain.Location{Latitude: offer.Lat, Longitude: offer.Lng}
	m := &domain.Market{
		ID:          offer.ID,
		Name:        offer.Name,
		Address:     offer.Address,
		Distance:    domain.FormatDistance(domain.Distance(a.origin, store)),
		Lat:         offer.Lat,
		Lng:         offer.Lng,
		OfficialURL: offer.OfficialURL,
		FlyerURL:    offer.FlyerURL,
		Products:    make(map[string]domain.MarketProduct),
	}
	a.markets[offer.ID] = m
	a.order = append(a.order, offer.ID)
	return m
}

// Add records the result of a single-item lookup
func (a *Aggregator) Add(itemName string, offers []domain.StoreOffer) {
	for _, offer := range offers {
		if offer.ID == "" {
			continue
		}
		m := a.market(offer)
		if offer.Product == nil {
			continue
		}

		p := offer.Product.ToMarketProduct()
		p.IsCheapest = true
		m.Products[itemName] = p
	}
}

// AddComparison records the result of a whole-list lookup.
// Product keys that do not name a requested item are dropped.
func (a *Aggregator) AddComparison(itemNames []string, offers []domain.StoreOffer) {
	for _, offer := range offers {
		if offer.ID == "" {
			continue
		}
		m := a.market(offer)

		for key, product := range offer.Products {
			name, ok := matchItemName(itemNames, key)
			if !ok {
				continue
			}
			p := product.ToMarketProduct()
			p.IsCheapest = true
			m.Products[name] = p
		}
	}
}

// matchItemName resolves a model product key to the requested item name.
// Exact matches win over case and whitespace insensitive ones.
func matchItemName(itemNames []string, key string) (string, bool) {
	for _, name := range itemNames {
		if name == key {
			return name, true
		}
	}
	trimmed := strings.TrimSpace(key)
	for _, name := range itemNames {
		if strings.EqualFold(strings.TrimSpace(name), trimmed) {
			return name, true
		}
	}
	return "", false
}

// Finalize computes totals, drops markets without products and builds the summary.
// Markets keep first-sighting order.
func (a *Aggregator) Finalize(markup float64, currencySymbol string) (*domain.OptimizationResult, error) {
	markets := make([]domain.Market, 0, len(a.order))
	totals := make([]decimal.Decimal, 0, len(a.order))

	for _, id := range a.order {
		m := a.markets[id]
		if len(m.Products) == 0 {
			continue
		}

		total := productTotal(m.Products)
		finalized := m.Clone()
		finalized.TotalCost = total.InexactFloat64()

		markets = append(markets, finalized)
		totals = append(totals, total)
	}

	if len(markets) == 0 {
		return nil, domain.ErrNoNearbyStock
	}

	markCheapest(markets)

	optimized := totals[0]
	for _, t := range totals[1:] {
		if t.LessThan(optimized) {
			optimized = t
		}
	}
	estimate := totals[0].Mul(decimal.NewFromFloat(markup))

	return &domain.OptimizationResult{
		Markets: markets,
		Summary: domain.Summary{
			TotalOriginalEstimate: estimate.InexactFloat64(),
			TotalOptimizedCost:    optimized.InexactFloat64(),
			Savings:               estimate.Sub(optimized).InexactFloat64(),
			CurrencySymbol:        currencySymbol,
		},
	}, nil
}

func productTotal(products map[string]domain.MarketProduct) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(decimal.NewFromFloat(p.Price))
	}
	return total
}

// markCheapest flags, per item, every product priced at the lowest price across markets
func markCheapest(markets []domain.Market) {
	lowest := make(map[string]decimal.Decimal)
	for _, m := range markets {
		for item, p := range m.Products {
			price := decimal.NewFromFloat(p.Price)
			if cur, ok := lowest[item]; !ok || price.LessThan(cur) {
				lowest[item] = price
			}
		}
	}

	for _, m := range markets {
		for item, p := range m.Products {
			p.IsCheapest = decimal.NewFromFloat(p.Price).Equal(lowest[item])
			m.Products[item] = p
		}
	}
}
