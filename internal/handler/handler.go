package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rasaeats/api/internal/service"
	"github.com/rasaeats/api/internal/store"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the service/store error taxonomy onto HTTP
// statuses. Unknown errors are logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrEmptyOrders),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrMissingFood),
		errors.Is(err, service.ErrMissingUser),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrMissingCategory),
		errors.Is(err, service.ErrMissingPrice),
		errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrRewardNotFound),
		errors.Is(err, service.ErrFoodNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotOwned),
		errors.Is(err, service.ErrPaymentNotOwned):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrStaffExists),
		errors.Is(err, service.ErrAlreadyRedeemed),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
	default:
		logrus.WithError(err).Error("internal error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
