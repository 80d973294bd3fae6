package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

func TestComputeQuote_NoDiscounts(t *testing.T) {
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 4500, Qty: 2},
		{ProductID: "sides", Name: "Side salad", UnitPriceCents: 500, Qty: 1},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9500, quote.SubtotalCents)
	assert.Equal(t, 0, quote.DiscountCents)
	assert.Equal(t, 9500, quote.TotalCents)
	assert.Empty(t, quote.DiscountDetails)
}

func TestComputeQuote_FirstOrderDiscount(t *testing.T) {
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-5", Name: "5-meal box", UnitPriceCents: 20000, Qty: 1},
	}, []AppliedDiscount{
		{Type: DiscountTypeFirstOrder, Description: "first order discount", Percentage: 25},
	})
	require.NoError(t, err)

	assert.Equal(t, 20000, quote.SubtotalCents)
	assert.Equal(t, 5000, quote.DiscountCents)
	assert.Equal(t, 15000, quote.TotalCents)
	require.Len(t, quote.DiscountDetails, 1)
	assert.Equal(t, DiscountTypeFirstOrder, quote.DiscountDetails[0].Type)
	assert.Equal(t, 5000, quote.DiscountDetails[0].AmountCents)
}

func TestComputeQuote_CodeDiscount(t *testing.T) {
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 10000, Qty: 1},
	}, []AppliedDiscount{
		{Type: DiscountTypeCode, Description: "discount code SAVE10", Percentage: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 10000, quote.SubtotalCents)
	assert.Equal(t, 1000, quote.DiscountCents)
	assert.Equal(t, 9000, quote.TotalCents)
}

func TestComputeQuote_StackedDiscounts(t *testing.T) {
	// Both discounts apply to the subtotal independently.
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 10000, Qty: 1},
	}, []AppliedDiscount{
		{Type: DiscountTypeFirstOrder, Description: "first order discount", Percentage: 25},
		{Type: DiscountTypeCode, Description: "discount code SAVE10", Percentage: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 3500, quote.DiscountCents)
	assert.Equal(t, 6500, quote.TotalCents)
	assert.Len(t, quote.DiscountDetails, 2)
}

func TestComputeQuote_TruncatesSubCentRemainders(t *testing.T) {
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 999, Qty: 1},
	}, []AppliedDiscount{
		{Type: DiscountTypeCode, Description: "discount code SAVE10", Percentage: 10},
	})
	require.NoError(t, err)

	// 10% of 999 is 99.9; the customer keeps the fraction.
	assert.Equal(t, 99, quote.DiscountCents)
	assert.Equal(t, 900, quote.TotalCents)
}

func TestComputeQuote_NeverNegative(t *testing.T) {
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 100, Qty: 1},
	}, []AppliedDiscount{
		{Type: DiscountTypeCode, Description: "a", Percentage: 60},
		{Type: DiscountTypeCode, Description: "b", Percentage: 60},
	})
	require.NoError(t, err)

	assert.Equal(t, 120, quote.DiscountCents)
	assert.Equal(t, 0, quote.TotalCents)
}

func TestComputeQuote_RejectsEmptyCart(t *testing.T) {
	_, err := ComputeQuote(nil, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestComputeQuote_RejectsBadLines(t *testing.T) {
	_, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 100, Qty: 0},
	}, nil)
	require.Error(t, err)

	_, err = ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: -1, Qty: 1},
	}, nil)
	require.Error(t, err)
}

func TestComputeQuote_ZeroPercentDiscountIsDropped(t *testing.T) {
	quote, err := ComputeQuote([]types.CartItem{
		{ProductID: "box-3", Name: "3-meal box", UnitPriceCents: 100, Qty: 1},
	}, []AppliedDiscount{
		{Type: DiscountTypeCode, Description: "noop", Percentage: 0},
	})
	require.NoError(t, err)
	assert.Empty(t, quote.DiscountDetails)
	assert.Equal(t, 100, quote.TotalCents)
}
