package domain

import (
	"context"
	"time"
)

// PriceAdvisor is the remote generative model that prices groceries
type PriceAdvisor interface {
	// FetchItemPrices lists nearby stores carrying a single item.
	FetchItemPrices(ctx context.Context, itemName string, loc Location) ([]StoreOffer, error)
	// CompareList prices the whole list in one request.
	CompareList(ctx context.Context, itemNames []string, loc Location) ([]StoreOffer, error)
	// ParseReceipt extracts normalized product names from a base64 encoded PDF.
	ParseReceipt(ctx context.Context, base64PDF string) ([]string, error)
	// SuggestListName proposes a short display name and icon for a list.
	SuggestListName(ctx context.Context, itemNames []string) (ListSuggestion, error)
}

// OfferCache caches encoded store offers per lookup key
type OfferCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SlotStore persists named slots, each overwritten wholesale on save
type SlotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Persisted slot names
const (
	SlotGroceryList = "smartshop-grocery-list"
	SlotSavedLists  = "smartshop-saved-lists"
)
