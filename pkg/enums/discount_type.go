package enums

// DiscountType tags one entry in a quote's discount breakdown.
type DiscountType string

const (
	DiscountTypeFirstOrder DiscountType = "first_order"
	DiscountTypeCode       DiscountType = "code"
)

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}
