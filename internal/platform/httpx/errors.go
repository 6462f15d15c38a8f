package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/odyssey-erp/invoiceguard/internal/invoice"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrBadBody     = errors.New("malformed request body")
	ErrTooLarge    = errors.New("request body too large")
	ErrUnavailable = errors.New("service unavailable")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrTooLarge):
		Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
	case errors.Is(err, ErrBadBody), errors.Is(err, invoice.ErrInvalidRequest):
		Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Timeout", "")
	case errors.Is(err, context.Canceled):
		// client went away; status is for logs only
		Problem(w, 499, "Client Closed Request", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
