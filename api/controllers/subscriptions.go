package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freshfork/mealkit-backend/api/middleware"
	"github.com/freshfork/mealkit-backend/api/responses"
	"github.com/freshfork/mealkit-backend/api/validators"
	subscriptionsvc "github.com/freshfork/mealkit-backend/internal/subscriptions"
	"github.com/freshfork/mealkit-backend/pkg/enums"
	pkgerrors "github.com/freshfork/mealkit-backend/pkg/errors"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/types"
)

type subscriptionActionRequest struct {
	Action           string                `json:"action" validate:"required"`
	PauseUntil       *time.Time            `json:"pause_until,omitempty"`
	NextDeliveryDate *time.Time            `json:"next_delivery_date,omitempty"`
	MealPlan         *types.MealPlanConfig `json:"meal_plan,omitempty"`
}

// SubscriptionAction applies one lifecycle action to the caller's subscription.
func SubscriptionAction(svc *subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		id, email, err := subscriptionRequestContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionActionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		action, err := enums.ParseSubscriptionAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action"))
			return
		}

		sub, err := svc.Apply(r.Context(), id, email, subscriptionsvc.ActionInput{
			Action:           action,
			PauseUntil:       payload.PauseUntil,
			NextDeliveryDate: payload.NextDeliveryDate,
			MealPlan:         payload.MealPlan,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sub)
	}
}

// SubscriptionCancel is the DELETE shorthand for the cancel action.
func SubscriptionCancel(svc *subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		id, email, err := subscriptionRequestContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Apply(r.Context(), id, email, subscriptionsvc.ActionInput{
			Action: enums.SubscriptionActionCancel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sub)
	}
}

func subscriptionRequestContext(r *http.Request) (uuid.UUID, string, error) {
	email := middleware.CustomerEmailFromContext(r.Context())
	if email == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription id")
	}
	return id, email, nil
}
