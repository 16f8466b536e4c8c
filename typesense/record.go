package typesense

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// cdnPrefix is the only content-delivery path accepted for media URLs
	cdnPrefix = "https://cdn.qiq-parts.com/"

	productURLPrefix = "https://www.qiq-parts.com/product/"
)

// ProductRecord is the canonical shape of a searchable catalog item.
// Every field is always present with a typed default, never null.
type ProductRecord struct {
	ObjectID     string  `json:"objectID"`
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	ItemType     string  `json:"item_type"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	ListPrice    float64 `json:"list_price"`
	Availability float64 `json:"availability"`
	Image        string  `json:"image"`
	SpecSheet    string  `json:"spec_sheet"`
	URL          string  `json:"url"`
}

// normalizeRecord maps a raw backend document into the canonical shape.
// A document lacking a resolvable identifier, name, or category is
// invalid and reported as not ok.
func normalizeRecord(doc map[string]interface{}) (ProductRecord, bool) {
	id := stringField(doc, "objectID", "object_id", "id")
	name := stringField(doc, "name")
	category := stringField(doc, "category")
	if id == "" || name == "" || category == "" {
		return ProductRecord{}, false
	}

	rec := ProductRecord{
		ObjectID:     id,
		Name:         name,
		Brand:        stringField(doc, "brand"),
		ItemType:     stringField(doc, "item_type"),
		Category:     category,
		Price:        coerceNumber(doc["price"]),
		ListPrice:    coerceNumber(doc["list_price"]),
		Availability: coerceNumber(doc["availability"]),
		Image:        mediaURL(stringField(doc, "image")),
		SpecSheet:    mediaURL(stringField(doc, "spec_sheet")),
		URL:          productURL(id),
	}
	if rec.Price < 0 {
		rec.Price = 0
	}
	return rec, true
}

// placeholderRecord synthesizes a canonical record for an identifier the
// backend could not resolve
func placeholderRecord(id string) ProductRecord {
	return ProductRecord{
		ObjectID: id,
		URL:      productURL(id),
	}
}

func productURL(id string) string {
	return productURLPrefix + url.PathEscape(id)
}

// mediaURL accepts a URL only when it lives under the approved CDN path
func mediaURL(raw string) string {
	if strings.HasPrefix(raw, cdnPrefix) {
		return raw
	}
	return ""
}

// stringField returns the first non-empty string value among keys
func stringField(doc map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := doc[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// coerceNumber converts string or numeric input to a float64, defaulting
// to 0 for anything non-coercible
func coerceNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
