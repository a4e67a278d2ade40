package models

// Catalog is the fixed set of recognized phone models together with their
// default maximum prices and the default search-word lists that accompany
// exports. It is process-wide static configuration: both the import/export
// codec and the form-rendering side must share exactly this list, and product
// names outside it are rejected at import.
type Catalog struct {
	models   []string
	prices   map[string]int
	keywords []string
	excluded []string
}

// DefaultCatalog returns the catalog of known iPhone models with their
// default max prices.
func DefaultCatalog() *Catalog {
	models := []string{
		"iPhone 16 Pro Max", "iPhone 16 Pro", "iPhone 16 Plus", "iPhone 16",
		"iPhone 15 Pro Max", "iPhone 15 Pro", "iPhone 15 Plus", "iPhone 15",
		"iPhone 14 Pro Max", "iPhone 14 Pro", "iPhone 14 Plus", "iPhone 14",
		"iPhone 13 Pro Max", "iPhone 13 Pro", "iPhone 13", "iPhone 13 Mini",
		"iPhone 12 Pro Max", "iPhone 12 Pro", "iPhone 12", "iPhone 12 Mini",
		"iPhone 11 Pro Max", "iPhone 11 Pro", "iPhone 11",
		"iPhone XS Max", "iPhone XS", "iPhone XR", "iPhone X",
		"iPhone SE (2022)", "iPhone SE (2020)",
	}
	prices := map[string]int{
		"iPhone 16 Pro Max": 900, "iPhone 16 Pro": 800, "iPhone 16 Plus": 700, "iPhone 16": 650,
		"iPhone 15 Pro Max": 900, "iPhone 15 Pro": 800, "iPhone 15 Plus": 700, "iPhone 15": 650,
		"iPhone 14 Pro Max": 750, "iPhone 14 Pro": 650, "iPhone 14 Plus": 550, "iPhone 14": 500,
		"iPhone 13 Pro Max": 600, "iPhone 13 Pro": 550, "iPhone 13": 450, "iPhone 13 Mini": 400,
		"iPhone 12 Pro Max": 500, "iPhone 12 Pro": 450, "iPhone 12": 350, "iPhone 12 Mini": 300,
		"iPhone 11 Pro Max": 400, "iPhone 11 Pro": 350, "iPhone 11": 250,
		"iPhone XS Max": 300, "iPhone XS": 250, "iPhone XR": 200, "iPhone X": 200,
		"iPhone SE (2022)": 150, "iPhone SE (2020)": 100,
	}
	return &Catalog{
		models:   models,
		prices:   prices,
		keywords: []string{"iphone"},
		excluded: []string{"warranty", "controller", "for", "stand", "car", "names", "stereo", "LCD", "C@$h", "Ca$h", "shop"},
	}
}

// Models returns the ordered model names. Callers must not modify the slice.
func (c *Catalog) Models() []string {
	return c.models
}

// Contains reports whether name is a recognized model.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.prices[name]
	return ok
}

// DefaultPrice returns the default max price for a model, or 0 when the model
// is not in the catalog.
func (c *Catalog) DefaultPrice(name string) int {
	return c.prices[name]
}

// Keywords returns the default search keywords exported per user.
func (c *Catalog) Keywords() []string {
	return c.keywords
}

// ExcludedWords returns the default excluded words exported per user.
func (c *Catalog) ExcludedWords() []string {
	return c.excluded
}
