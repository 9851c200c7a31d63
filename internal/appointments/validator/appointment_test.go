package validator

import (
	"strings"
	"testing"
	"time"

	"clinicops/pkg/logger"
	"clinicops/pkg/model"

	"github.com/google/uuid"
)

func newTestValidator() *AppointmentValidator {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON})
	return NewAppointmentValidator(log)
}

func validAppointment() *model.Appointment {
	start := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	return &model.Appointment{
		PatientID: uuid.New().String(),
		Title:     "Annual checkup",
		Location:  model.LocationClinic,
		Status:    model.StatusScheduled,
		StartAt:   start,
		EndAt:     start.Add(15 * time.Minute),
	}
}

func TestValidate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		mutate    func(*model.Appointment)
		wantField string
	}{
		{"valid appointment", func(a *model.Appointment) {}, ""},
		{"missing patient id", func(a *model.Appointment) { a.PatientID = "" }, "PatientID"},
		{"patient id not a uuid", func(a *model.Appointment) { a.PatientID = "patient-42" }, "PatientID"},
		{"title too short", func(a *model.Appointment) { a.Title = "x" }, "Title"},
		{"title too long", func(a *model.Appointment) { a.Title = strings.Repeat("a", 201) }, "Title"},
		{"unknown location", func(a *model.Appointment) { a.Location = "home" }, "Location"},
		{"unknown status", func(a *model.Appointment) { a.Status = "pending" }, "Status"},
		{"end before start", func(a *model.Appointment) { a.EndAt = a.StartAt.Add(-time.Minute) }, "EndAt"},
		{"end equals start", func(a *model.Appointment) { a.EndAt = a.StartAt }, "EndAt"},
		{"description too long", func(a *model.Appointment) { a.Description = strings.Repeat("d", 2001) }, "Description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appt := validAppointment()
			tt.mutate(appt)

			err := v.Validate(appt)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error on field %s, got nil", tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("expected error to mention %s, got %q", tt.wantField, err.Error())
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := newTestValidator()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)
	badEnd := start.Add(-time.Hour)

	tests := []struct {
		name    string
		update  *model.AppointmentUpdate
		wantErr bool
	}{
		{"empty update", &model.AppointmentUpdate{}, false},
		{"status only", &model.AppointmentUpdate{Status: model.StatusArrived}, false},
		{"reschedule", &model.AppointmentUpdate{StartAt: &start, EndAt: &end}, false},
		{"bad status", &model.AppointmentUpdate{Status: "done"}, true},
		{"bad location", &model.AppointmentUpdate{Location: "office"}, true},
		{"end before start", &model.AppointmentUpdate{StartAt: &start, EndAt: &badEnd}, true},
		{"short title", &model.AppointmentUpdate{Title: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpdate(tt.update)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
		})
	}
}
