package bedrock

import (
	"fmt"
	"strings"

	"github.com/smartshop/backend/internal/domain"
)

const systemPrompt = `You are a retail price auditor for supermarkets in Portugal.
Answer ONLY with JSON. No explanations, no markdown fences, no text before or after the JSON.`

func itemPricesPrompt(itemName string, loc domain.Location) string {
	return fmt.Sprintf(`Audit the shelf price of a single SKU.
LOCATION: lat %.5f, lng %.5f
ITEM: %q

TASK:
1. Find current prices for this item in supermarkets near the location.
2. STOCK RULE: include a store only if the item is available / in stock.
3. Return one entry per store with the product you matched.

RETURN A JSON ARRAY:
[
  {
    "id": "store-slug",
    "name": "Store name",
    "address": "Street address",
    "lat": 38.7, "lng": -9.1,
    "officialUrl": "https://...",
    "flyerUrl": "https://...",
    "product": {
      "originalKey": %q,
      "name": "Matched SKU name",
      "price": 0.00,
      "unit": "un",
      "category": "Category",
      "isPrivateLabel": true
    }
  }
]`, loc.Latitude, loc.Longitude, itemName, itemName)
}

func compareListPrompt(itemNames []string, loc domain.Location) string {
	quoted := make([]string, len(itemNames))
	for i, name := range itemNames {
		quoted[i] = fmt.Sprintf("%q", name)
	}

	return fmt.Sprintf(`Compare the price of a full grocery list across nearby supermarkets.
LOCATION: lat %.5f, lng %.5f
ITEMS: [%s]

TASK:
1. Find supermarkets near the location that stock these items.
2. For each store, match as many listed items as it has in stock.
3. Key every product by the EXACT item text from ITEMS.

RETURN A JSON ARRAY:
[
  {
    "id": "store-slug",
    "name": "Store name",
    "address": "Street address",
    "lat": 38.7, "lng": -9.1,
    "officialUrl": "https://...",
    "flyerUrl": "https://...",
    "products": {
      "<item text>": {"name": "Matched SKU", "price": 0.00, "unit": "un", "category": "Category", "isPrivateLabel": false}
    }
  }
]`, loc.Latitude, loc.Longitude, strings.Join(quoted, ", "))
}

const receiptPrompt = `Audit the attached retail receipt (PDF).

TASK:
1. Extract every purchased product.
2. NORMALIZE each name for a store-independent search:
   - REMOVE supermarket names (e.g. "Continente", "Pingo Doce").
   - KEEP commercial brands (e.g. "Mimosa", "Gallo").
   - KEEP the quantity (e.g. "1kg", "500g").

RETURN A JSON ARRAY OF STRINGS:
["Product 1", "Product 2"]`

func listNamePrompt(itemNames []string) string {
	icons := domain.Icons()
	names := make([]string, len(icons))
	for i, icon := range icons {
		names[i] = string(icon)
	}

	return fmt.Sprintf(`Look at this shopping list: %q.
Suggest a short, creative NAME (max 3 words, in Portuguese) for the list, e.g. "Churrasco de Domingo", "Cabaz Semanal".
Pick the ICON that fits best from: %s.

RETURN JSON:
{"name": "List name", "icon": "IconName"}`, strings.Join(itemNames, ", "), strings.Join(names, ", "))
}
