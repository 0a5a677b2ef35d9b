package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHTTP, Output: &buf})
	logger.Info("hello", FieldPerson, "Toby")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output not parseable: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentHTTP || rec[FieldPerson] != "Toby" {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()
	New(Config{Level: slog.LevelInfo, Format: "tint", Output: &buf}).Info("coloured")
	if !strings.Contains(buf.String(), "coloured") {
		t.Errorf("tint output missing message: %q", buf.String())
	}

	buf.Reset()
	New(Config{Level: slog.LevelWarn, Format: "text", Output: &buf}).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Format: "text", Component: ComponentHTTP, Output: &buf})

	h := Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).With(FieldRequestID, "req-1").InfoContext(r.Context(), "inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") || !strings.Contains(buf.String(), "component=http") {
		t.Errorf("context logger not used: %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("unexpected default logger: %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf}))

	sl.LogOutgoingsReplaced(context.Background(), "Abby", 3, 77000)
	out := buf.String()
	for _, want := range []string{"person=Abby", "record_count=3", "total_pence=77000", "operation=replace"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "save failed", errors.New("boom"), ComponentStorage, OpReplace, nil)
	if !strings.Contains(buf.String(), "error=boom") || !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("unexpected error log: %q", buf.String())
	}

	buf.Reset()
	r := httptest.NewRequest(http.MethodPost, "/outgoings/Toby", nil)
	sl.LogHTTPEnd(context.Background(), r, http.StatusUnprocessableEntity, 3, "10.0.0.1", "req-9")
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status_code=422") {
		t.Errorf("unexpected access log: %q", buf.String())
	}
}

func TestFieldsKeepOrder(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentWorker).
		WithRequestID("").
		WithOutgoings("Toby", 2, 1500).
		WithError(nil)

	var keys []string
	for _, a := range f {
		keys = append(keys, a.Key)
	}
	want := []string{FieldComponent, FieldPerson, FieldRecordCount, FieldTotalPence}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}
