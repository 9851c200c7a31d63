package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"clinicops/internal/appointments/service"
	apperrors "clinicops/pkg/errors"
	httputil "clinicops/pkg/http"
	"clinicops/pkg/logger"
	"clinicops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Create)
	router.GET("/api/v1/appointments", h.GetAll)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.PATCH("/api/v1/appointments/id/:id", h.Update)
	router.DELETE("/api/v1/appointments/id/:id", h.Delete)
	router.GET("/api/v1/appointments/search", h.Search)
	router.GET("/api/v1/appointments/slots", h.ListSlots)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var appt model.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appt); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booked, err := h.service.Book(r.Context(), &appt)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booked); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	appt, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	appts, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, appts, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var update model.AppointmentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appt, err := h.service.Update(r.Context(), id, &update)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	patientID := query.Get("patient_id")
	if patientID == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("patient_id query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	startTime, err := parseOptionalTime(query.Get("start_time"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("start_time must be RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	endTime, err := parseOptionalTime(query.Get("end_time"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("end_time must be RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	appts, total, err := h.service.Search(r.Context(), patientID, startTime, endTime, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Search", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, appts, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

// ListSlots serves the advisory availability view: every slot in the
// requested range with its remaining capacity.
func (h *AppointmentHandler) ListSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if location := query.Get("location"); location != "" && location != model.LocationClinic {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput(
			fmt.Sprintf("slot availability is only tracked for clinic appointments, got location: %s", location),
		)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	start, err := time.Parse(time.RFC3339, query.Get("start"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("start query parameter must be RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	end, err := time.Parse(time.RFC3339, query.Get("end"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("end query parameter must be RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, err := h.service.ListSlots(r.Context(), start, end)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSlots", "operation", "WriteSuccess", "error", err)
	}
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
