package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the product or variant does not exist.
var ErrNotFound = errors.New("product not found")

// Availability is the catalog's answer for one (product, variant) pair.
// UnitPrice is base price plus the variant's adjustment. Name and ImageURL
// feed the add-time display snapshot on cart lines.
type Availability struct {
	Active    bool
	UnitPrice decimal.Decimal
	Available int
	Name      string
	ImageURL  string
}

// Catalog is the lookup contract the cart core consumes.
// Consumers define this interface, not the catalog implementation.
type Catalog interface {
	// GetAvailability returns current price and inventory for the exact
	// (productID, variantID) combination. An empty variantID addresses a
	// product without variants, which uses its top-level inventory count.
	GetAvailability(ctx context.Context, productID int64, variantID string) (Availability, error)
}
