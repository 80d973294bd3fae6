package controllers

import (
	"net/http"

	"github.com/freshfork/mealkit-backend/api/middleware"
	"github.com/freshfork/mealkit-backend/api/responses"
	"github.com/freshfork/mealkit-backend/api/validators"
	checkoutsvc "github.com/freshfork/mealkit-backend/internal/checkout"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

// CheckoutQuote prices the submitted cart and opens the payment request.
func CheckoutQuote(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		email := middleware.CustomerEmailFromContext(r.Context())
		if email == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload checkoutQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePaymentRequest(r.Context(), checkoutsvc.CreatePaymentRequestInput{
			CustomerEmail:   email,
			CustomerName:    payload.CustomerName,
			ShippingAddress: payload.ShippingAddress,
			Items:           payload.Items,
			DiscountCode:    payload.DiscountCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type checkoutQuoteRequest struct {
	CustomerName    string           `json:"customer_name" validate:"required"`
	ShippingAddress types.Address    `json:"shipping_address" validate:"required"`
	Items           []types.CartItem `json:"items" validate:"required,min=1,dive"`
	DiscountCode    string           `json:"discount_code,omitempty"`
}
