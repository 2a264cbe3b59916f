package domain

// Location is a WGS-84 coordinate pair in degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the location is a usable fix
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// MarketProduct is one store's matched SKU for one requested item
type MarketProduct struct {
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category"`
	IsCheapest     bool    `json:"isCheapest"`
	IsPrivateLabel bool    `json:"isPrivateLabel,omitempty"`
}

// Market is a store location with its matched products for the current list
type Market struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Address     string                   `json:"address"`
	Distance    string                   `json:"distance"` // display form, e.g. "2.4 km"
	Lat         float64                  `json:"lat"`
	Lng         float64                  `json:"lng"`
	OfficialURL string                   `json:"officialUrl,omitempty"`
	FlyerURL    string                   `json:"flyerUrl,omitempty"`
	Products    map[string]MarketProduct `json:"products"` // keyed by grocery item name
	TotalCost   float64                  `json:"totalCost"`
}

// Clone returns a deep copy of the market
func (m Market) Clone() Market {
	products := make(map[string]MarketProduct, len(m.Products))
	for k, v := range m.Products {
		products[k] = v
	}
	m.Products = products
	return m
}

// Summary holds the headline numbers of an optimization run
type Summary struct {
	TotalOriginalEstimate float64 `json:"totalOriginalEstimate"`
	TotalOptimizedCost    float64 `json:"totalOptimizedCost"`
	Savings               float64 `json:"savings"`
	CurrencySymbol        string  `json:"currencySymbol"`
}

// OptimizationResult is the outcome of one optimization run
type OptimizationResult struct {
	Markets []Market `json:"markets"`
	Summary Summary  `json:"summary"`
}

// OfferProduct is a product as described by the remote model
type OfferProduct struct {
	OriginalKey    string  `json:"originalKey,omitempty"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Unit           string  `json:"unit"`
	Category       string  `json:"category"`
	IsPrivateLabel bool    `json:"isPrivateLabel,omitempty"`
}

// StoreOffer is a candidate store returned by the remote model.
// Per-item lookups fill Product; whole-list lookups fill Products keyed by item name.
type StoreOffer struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Address     string                  `json:"address"`
	Lat         float64                 `json:"lat"`
	Lng         float64                 `json:"lng"`
	OfficialURL string                  `json:"officialUrl,omitempty"`
	FlyerURL    string                  `json:"flyerUrl,omitempty"`
	Product     *OfferProduct           `json:"product,omitempty"`
	Products    map[string]OfferProduct `json:"products,omitempty"`
}

// ToMarketProduct converts a model product into a market product
func (p OfferProduct) ToMarketProduct() MarketProduct {
	return MarketProduct{
		Name:           p.Name,
		Price:          p.Price,
		Unit:           p.Unit,
		Category:       p.Category,
		IsPrivateLabel: p.IsPrivateLabel,
	}
}
