package http

import (
	"encoding/json"
	"net/http"

	apperrors "clinicops/pkg/errors"
)

type ErrorResponse struct {
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError renders an error response. AppErrors carry their own status and
// machine-readable code; anything else is masked as a generic failure.
func WriteError(w http.ResponseWriter, err error) error {
	switch e := err.(type) {
	case *apperrors.AppError:
		return WriteJSON(w, e.StatusCode(), ErrorResponse{
			Code:    e.Code,
			Error:   e.Message,
			Details: e.Details,
		})
	default:
		return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:  apperrors.CodeInternal,
			Error: "Internal server error",
		})
	}
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePaginated(w http.ResponseWriter, data any, totalCount int64, limit int, offset int64) error {
	return WriteJSON(w, http.StatusOK, PaginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	})
}
