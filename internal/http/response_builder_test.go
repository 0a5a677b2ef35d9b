package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_OutgoingsSaved(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerOutgoingsSaved("Toby", 3).
		TriggerSuccessNotification("Saved").
		Write(w)

	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	saved, ok := triggers[EventOutgoingsSaved]
	if !ok {
		t.Fatalf("missing %s trigger: %v", EventOutgoingsSaved, triggers)
	}
	if saved["person"] != "Toby" || saved["count"] != float64(3) {
		t.Errorf("unexpected trigger payload: %v", saved)
	}
	if triggers[EventShowNotification]["type"] != "success" {
		t.Errorf("unexpected notification: %v", triggers[EventShowNotification])
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Invalid input"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error" role="alert">Invalid input</div>`,
		},
		{
			name:       "unprocessable entity",
			builder:    UnprocessableEntityError("Validation failed"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `<div class="error" role="alert">Validation failed</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("Something broke"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error" role="alert">Something broke</div>`,
		},
		{
			name:       "service unavailable",
			builder:    ServiceUnavailableError("Data unavailable"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `<div class="error" role="alert">Data unavailable</div>`,
		},
		{
			name:       "not found",
			builder:    NotFoundError("Resource not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `<div class="error" role="alert">Resource not found</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusUnprocessableEntity, "price: bad")

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"price: bad"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}
