package domain

import "strings"

// GroceryItem is a single named entry the user wants priced
type GroceryItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// SavedList is a named snapshot of the grocery list
type SavedList struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	IconName  Icon          `json:"iconName"`
	Items     []GroceryItem `json:"items"`
	CreatedAt int64         `json:"createdAt"` // Unix milliseconds
}

// ListSuggestion is a display name and icon proposed for a list
type ListSuggestion struct {
	Name string `json:"name"`
	Icon Icon   `json:"icon"`
}

// BasicBasket is the preset list of Portuguese staples
var BasicBasket = []string{
	"Arroz Agulha (1kg)",
	"Feijão (1kg)",
	"Açúcar (1kg)",
	"Café (250g)",
	"Azeite (750ml)",
	"Massa (500g)",
	"Leite (1L)",
	"Ovos (12un)",
	"Pão",
	"Bananas (kg)",
}

// ItemNames returns the names of the given items in order
func ItemNames(items []GroceryItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

// Icon identifies a list icon known to the client
type Icon string

const (
	IconShoppingBasket Icon = "ShoppingBasket"
	IconFlame          Icon = "Flame"
	IconApple          Icon = "Apple"
	IconCoffee         Icon = "Coffee"
	IconDroplets       Icon = "Droplets"
	IconBeef           Icon = "Beef"
	IconBaby           Icon = "Baby"
	IconPizza          Icon = "Pizza"
	IconMilk           Icon = "Milk"
	IconFish           Icon = "Fish"
	IconCarrot         Icon = "Carrot"
	IconWine           Icon = "Wine"
	IconCookie         Icon = "Cookie"
	IconSparkles       Icon = "Sparkles"
)

// DefaultIcon is used whenever an icon name is unknown
const DefaultIcon = IconShoppingBasket

var knownIcons = []Icon{
	IconShoppingBasket, IconFlame, IconApple, IconCoffee, IconDroplets,
	IconBeef, IconBaby, IconPizza, IconMilk, IconFish,
	IconCarrot, IconWine, IconCookie, IconSparkles,
}

// Icons returns every known icon identifier
func Icons() []Icon {
	out := make([]Icon, len(knownIcons))
	copy(out, knownIcons)
	return out
}

// ParseIcon maps a free-form icon name onto the known set.
// Matching is case-insensitive; unknown names fall back to DefaultIcon.
func ParseIcon(name string) Icon {
	name = strings.TrimSpace(name)
	for _, icon := range knownIcons {
		if strings.EqualFold(string(icon), name) {
			return icon
		}
	}
	return DefaultIcon
}
