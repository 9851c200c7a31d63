package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "clinicops/pkg/errors"
	"clinicops/pkg/logger"
	"clinicops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockAppointmentService struct {
	bookFunc      func(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	getByIDFunc   func(ctx context.Context, id string) (*model.Appointment, error)
	deleteFunc    func(ctx context.Context, id string) error
	listSlotsFunc func(ctx context.Context, start, end time.Time) ([]model.SlotAvailability, error)
}

func (m *mockAppointmentService) Book(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	if m.bookFunc != nil {
		return m.bookFunc(ctx, appt)
	}
	return appt, nil
}

func (m *mockAppointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAppointmentService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Appointment, int64, error) {
	return []*model.Appointment{}, 0, nil
}

func (m *mockAppointmentService) Update(ctx context.Context, id string, update *model.AppointmentUpdate) (*model.Appointment, error) {
	return nil, nil
}

func (m *mockAppointmentService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockAppointmentService) Search(ctx context.Context, patientID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Appointment, int64, error) {
	return []*model.Appointment{}, 0, nil
}

func (m *mockAppointmentService) ListSlots(ctx context.Context, start, end time.Time) ([]model.SlotAvailability, error) {
	if m.listSlotsFunc != nil {
		return m.listSlotsFunc(ctx, start, end)
	}
	return []model.SlotAvailability{}, nil
}

func newTestHandler(svc *mockAppointmentService) *AppointmentHandler {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	return NewAppointmentHandler(svc, log)
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestCreateReturnsBookingErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"slot full", apperrors.SlotFull("no capacity"), http.StatusConflict, "SLOT_FULL"},
		{"invalid time", apperrors.InvalidTime("outside window"), http.StatusBadRequest, "INVALID_TIME"},
		{"booking failed", apperrors.SlotBookingFailed("rolled back", nil), http.StatusConflict, "SLOT_BOOKING_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&mockAppointmentService{
				bookFunc: func(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
					return nil, tt.serviceErr
				},
			})

			payload := `{"patient_id":"3f1f9c70-1111-4222-8333-444455556666","title":"Checkup","location":"clinic","status":"scheduled","start_at":"2026-03-10T08:00:00Z","end_at":"2026-03-10T08:15:00Z"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(payload))
			w := httptest.NewRecorder()

			h.Create(w, req, httprouter.Params{})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			body := decodeErrorResponse(t, w)
			if body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, body["code"])
			}
		})
	}
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	h := newTestHandler(&mockAppointmentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestCreateSuccessReturnsCreated(t *testing.T) {
	h := newTestHandler(&mockAppointmentService{
		bookFunc: func(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
			appt.ID = "9a3c1c2e-5555-4666-8777-888899990000"
			return appt, nil
		},
	})

	payload := `{"patient_id":"3f1f9c70-1111-4222-8333-444455556666","title":"Checkup","location":"clinic","status":"scheduled","start_at":"2026-03-10T08:00:00Z","end_at":"2026-03-10T08:15:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(payload))
	w := httptest.NewRecorder()

	h.Create(w, req, httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "9a3c1c2e-5555-4666-8777-888899990000") {
		t.Errorf("expected response to contain the appointment ID, got %s", w.Body.String())
	}
}

func TestGetByIDNotFound(t *testing.T) {
	h := newTestHandler(&mockAppointmentService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Appointment, error) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/id/abc", nil)
	w := httptest.NewRecorder()

	h.GetByID(w, req, httprouter.Params{{Key: "id", Value: "abc"}})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteReturnsNoContent(t *testing.T) {
	h := newTestHandler(&mockAppointmentService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/id/abc", nil)
	w := httptest.NewRecorder()

	h.Delete(w, req, httprouter.Params{{Key: "id", Value: "abc"}})

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
}

func TestListSlotsQueryValidation(t *testing.T) {
	h := newTestHandler(&mockAppointmentService{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing start", "?end=2026-03-10T12:00:00Z", http.StatusBadRequest},
		{"missing end", "?start=2026-03-10T08:00:00Z", http.StatusBadRequest},
		{"bad start format", "?start=tomorrow&end=2026-03-10T12:00:00Z", http.StatusBadRequest},
		{"non-clinic location", "?start=2026-03-10T08:00:00Z&end=2026-03-10T12:00:00Z&location=remote", http.StatusBadRequest},
		{"valid range", "?start=2026-03-10T08:00:00Z&end=2026-03-10T12:00:00Z", http.StatusOK},
		{"valid with location", "?start=2026-03-10T08:00:00Z&end=2026-03-10T12:00:00Z&location=clinic", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/slots"+tt.query, nil)
			w := httptest.NewRecorder()

			h.ListSlots(w, req, httprouter.Params{})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestSearchRequiresPatientID(t *testing.T) {
	h := newTestHandler(&mockAppointmentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/search", nil)
	w := httptest.NewRecorder()

	h.Search(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
