package errors

import (
	"errors"
	"net/http"
)

// WriteHTTPError writes an error as a JSON response. Non-AppError values are
// masked as a generic internal error so storage details never leak to clients.
func WriteHTTPError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("An unexpected error occurred", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	_, _ = w.Write(appErr.ToJSON())
}
