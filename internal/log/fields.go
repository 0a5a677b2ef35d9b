package log

import "log/slog"

// Attribute keys shared by every process.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldRoute       = "route"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldPerson      = "person"
	FieldRecordCount = "record_count"
	FieldTotalPence  = "total_pence"
)

// Component names, one per subsystem that logs on its own.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentOutgoings = "outgoings"
	ComponentStorage   = "storage"
	ComponentWorker    = "worker"
	ComponentBackend   = "backend"
)

// Operation names.
const (
	OpReplace  = "replace"
	OpExport   = "export"
	OpRender   = "render"
	OpShutdown = "shutdown"
)

// Fields accumulates attributes in the order they are added, so log lines
// read the same way every time.
type Fields []slog.Attr

func NewFields() Fields {
	return make(Fields, 0, 8)
}

func (f Fields) With(key string, value any) Fields {
	return append(f, slog.Any(key, value))
}

func (f Fields) WithComponent(component string) Fields {
	return f.With(FieldComponent, component)
}

func (f Fields) WithOperation(op string) Fields {
	return f.With(FieldOperation, op)
}

// WithRequestID skips empty IDs.
func (f Fields) WithRequestID(id string) Fields {
	if id == "" {
		return f
	}
	return f.With(FieldRequestID, id)
}

func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return f.With(FieldError, err.Error())
}

func (f Fields) WithPerson(person string) Fields {
	return f.With(FieldPerson, person)
}

// WithOutgoings describes a saved set of one person's outgoings.
func (f Fields) WithOutgoings(person string, count int, totalPence int64) Fields {
	return f.WithPerson(person).
		With(FieldRecordCount, count).
		With(FieldTotalPence, totalPence)
}

// WithRequest records the parts of r worth keeping in an access log. The
// route is the mux pattern that matched, or empty.
func (f Fields) WithRequest(method, path, route, query, userAgent string) Fields {
	f = f.With(FieldMethod, method).With(FieldPath, path)
	if route != "" {
		f = f.With(FieldRoute, route)
	}
	if query != "" {
		f = f.With(FieldQuery, query)
	}
	if userAgent != "" {
		f = f.With(FieldUserAgent, userAgent)
	}
	return f
}

func (f Fields) WithResponse(status int, durationMs int64) Fields {
	return f.With(FieldStatusCode, status).With(FieldDuration, durationMs)
}
