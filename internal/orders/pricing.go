package orders

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
)

// QuoteLine is one priced line entering the quote. Unit prices come from
// the catalog, never from the client.
type QuoteLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is the full price breakdown for an order. Subtotal and tax carry
// exact line math; only the stored amounts are rounded to two places.
type Quote struct {
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// ComputeQuote derives the order totals from resolved lines and shop
// settings. Tax applies to the item subtotal only, not the delivery charge.
func ComputeQuote(lines []QuoteLine, taxRate decimal.Decimal, deliveryEnabled bool, deliveryCharge decimal.Decimal) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}
	if taxRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
	}
	if deliveryCharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery charge cannot be negative")
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	tax := subtotal.Mul(taxRate)

	delivery := decimal.Zero
	if deliveryEnabled {
		delivery = deliveryCharge
	}

	total := subtotal.Add(tax).Add(delivery).Round(2)

	return &Quote{
		Subtotal:       subtotal.Round(2),
		TaxRate:        taxRate,
		TaxAmount:      tax.Round(2),
		DeliveryCharge: delivery.Round(2),
		Total:          total,
	}, nil
}
