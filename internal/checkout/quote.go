package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

const (
	DiscountTypeFirstOrder = "first_order"
	DiscountTypeCode       = "code"
)

// Quote is the priced cart returned to the client and handed unchanged to
// the payment request issuer.
type Quote struct {
	Items           []types.CartItem       `json:"items"`
	SubtotalCents   int                    `json:"subtotal_cents"`
	DiscountCents   int                    `json:"discount_cents"`
	TotalCents      int                    `json:"total_cents"`
	DiscountDetails []types.DiscountDetail `json:"discount_details,omitempty"`
}

// AppliedDiscount is one discount input to the calculator.
type AppliedDiscount struct {
	Type        string
	Description string
	Percentage  int
}

// ComputeQuote prices the cart in integer cents. Discounts are additive
// percentages of the subtotal; the final amount never goes below zero.
func ComputeQuote(items []types.CartItem, applied []AppliedDiscount) (*Quote, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	subtotal := 0
	for i, item := range items {
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		if item.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit price must not be negative", i))
		}
		subtotal += item.UnitPriceCents * item.Qty
	}

	details := make([]types.DiscountDetail, 0, len(applied))
	totalDiscount := 0
	for _, d := range applied {
		amount := percentageOf(subtotal, d.Percentage)
		if amount <= 0 {
			continue
		}
		details = append(details, types.DiscountDetail{
			Type:        d.Type,
			Description: d.Description,
			AmountCents: amount,
		})
		totalDiscount += amount
	}

	total := subtotal - totalDiscount
	if total < 0 {
		total = 0
	}

	return &Quote{
		Items:           items,
		SubtotalCents:   subtotal,
		DiscountCents:   totalDiscount,
		TotalCents:      total,
		DiscountDetails: details,
	}, nil
}

// percentageOf applies an integer percentage to a cents amount, truncating
// sub-cent remainders.
func percentageOf(amountCents int, percent int) int {
	if percent <= 0 || amountCents <= 0 {
		return 0
	}
	result := decimal.NewFromInt(int64(amountCents)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100))
	return int(result.IntPart())
}
