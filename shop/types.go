package shop

// Product is one catalog entry as the handlers consume it. Prices arrive
// pre-formatted by the backend and are passed through untouched.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       string
	Stock       int
	// MainImageID references the file holding the primary product photo;
	// empty when the product has none.
	MainImageID string
}

// CartItem is one cart line. LineTotal is quantity times unit price,
// formatted by the backend.
type CartItem struct {
	ID          string
	ProductID   string
	Name        string
	Description string
	Quantity    int
	UnitPrice   string
	LineTotal   string
}

// Cart carries the cart-level aggregates.
type Cart struct {
	Total string
}
