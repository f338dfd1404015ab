package pagebuilder

// Catalog records are owned by external subsystems (products, navigation,
// settings) and handed to the renderer read-only. The page builder never
// writes them; it only selects and displays them.

// Product is the storefront's view of a catalog product.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Images       []string `json:"images,omitempty"`
	CategoryID   string   `json:"categoryId,omitempty"`
	BrandID      string   `json:"brandId,omitempty"`
	IsFeatured   bool     `json:"isFeatured"`
	IsNewArrival bool     `json:"isNewArrival"`
}

// Category is a product category; ParentID is empty for top-level categories.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Brand is a product brand.
type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Menu is a named, ordered navigation menu (e.g. "header", "footer").
type Menu struct {
	Handle string     `json:"handle"`
	Items  []MenuItem `json:"items"`
}

// MenuItem is one entry in a menu.
type MenuItem struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Catalog bundles the read-only records the renderer injects into a page.
type Catalog struct {
	Products   []Product  `json:"products,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Brands     []Brand    `json:"brands,omitempty"`
	Menus      []Menu     `json:"menus,omitempty"`
}

// MenuByHandle looks up a menu by its handle.
func (c Catalog) MenuByHandle(handle string) (Menu, bool) {
	for _, m := range c.Menus {
		if m.Handle == handle {
			return m, true
		}
	}
	return Menu{}, false
}

// SelectProducts resolves a product-grid block's product subset against the
// full product list: collection selectors take the first limit matches in
// their original relative order; manual selection looks up the ordered id
// list and skips ids that no longer exist.
func SelectProducts(products []Product, collectionType string, limit int, manualIDs []string) []Product {
	if limit < 1 {
		return nil
	}

	if collectionType == CollectionManual {
		byID := make(map[string]Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		out := make([]Product, 0, len(manualIDs))
		for _, id := range manualIDs {
			if p, ok := byID[id]; ok {
				out = append(out, p)
			}
			if len(out) == limit {
				break
			}
		}
		return out
	}

	var match func(Product) bool
	switch collectionType {
	case CollectionFeatured:
		match = func(p Product) bool { return p.IsFeatured }
	case CollectionNew:
		match = func(p Product) bool { return p.IsNewArrival }
	default: // CollectionAll and anything unrecognized
		match = func(Product) bool { return true }
	}

	out := make([]Product, 0, limit)
	for _, p := range products {
		if match(p) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
