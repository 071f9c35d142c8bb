package httpx

import (
	"errors"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// RespondError maps the shared error taxonomy to RFC7807 responses. Each
// failure kind keeps a distinct title so callers can tell denials apart.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
	case errors.Is(err, shared.ErrInvalidToken):
		Problem(w, http.StatusUnauthorized, "Invalid Token", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrSelfProtect):
		Problem(w, http.StatusUnprocessableEntity, "Self Protection", err.Error())
	case errors.Is(err, shared.ErrProtectedRole):
		Problem(w, http.StatusUnprocessableEntity, "Protected Role", err.Error())
	case errors.Is(err, shared.ErrMinCardinality):
		Problem(w, http.StatusUnprocessableEntity, "Minimum Cardinality", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		Problem(w, http.StatusConflict, "Already Exists", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
