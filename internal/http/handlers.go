package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"housebudget/internal/core"
	"housebudget/internal/log"
	"housebudget/internal/services"
	"housebudget/internal/storage"
)

// loadTimeout bounds a single page's storage work.
const loadTimeout = 7 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether storage can be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"templates": "ok", "storage": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.household.Ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, status := s.dashboardFor(r)
	s.render(w, r, status, "index.html", view)
}

// handleProjection renders only the dashboard body for htmx updates. A
// plain load of the pushed URL gets the whole page.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	view, status := s.dashboardFor(r)
	if !isHTMX(r) {
		s.render(w, r, status, "index.html", view)
		return
	}
	s.render(w, r, status, "dashboard", view)
}

// handleOutgoings renders the editor page for every member.
func (s *Server) handleOutgoings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	page := outgoingsPage{Saved: r.URL.Query().Get("saved")}
	status := http.StatusOK
	for _, p := range s.household.Household().Members {
		ed := s.loadEditor(ctx, p.Name)
		if ed.Unavailable {
			status = http.StatusServiceUnavailable
		}
		page.Editors = append(page.Editors, ed)
	}
	s.render(w, r, status, "outgoings.html", page)
}

// handleEditor renders one member's editor, discarding unsaved changes.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	person := r.PathValue("person")
	if _, ok := s.household.Household().Lookup(person); !ok {
		NotFoundError("Unknown person: " + person).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	ed := s.loadEditor(ctx, person)
	status := http.StatusOK
	if ed.Unavailable {
		status = http.StatusServiceUnavailable
	}
	s.render(w, r, status, "editor", ed)
}

// handleSaveOutgoings replaces a member's outgoings with the submitted rows.
func (s *Server) handleSaveOutgoings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	person := r.PathValue("person")

	if _, ok := s.household.Household().Lookup(person); !ok {
		NotFoundError("Unknown person: " + person).Write(w)
		return
	}
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}

	rows := ParseEditorRows(r.PostForm)
	ed := newEditorView(person, rows)

	records, err := ToOutgoings(person, rows)
	if err == nil {
		err = s.household.ReplaceOutgoings(ctx, person, records)
	}
	if err != nil {
		status := saveErrorStatus(err)
		ed.Error = saveErrorMessage(person, err)
		if status >= http.StatusInternalServerError {
			log.NewStructuredLogger(logger).LogError(ctx, "Save outgoings failed", err,
				log.ComponentOutgoings, log.OpReplace, log.NewFields().WithPerson(person))
		} else {
			logger.WarnContext(ctx, "Rejected outgoings", log.FieldPerson, person, log.FieldError, err)
		}
		s.render(w, r, status, "editor", ed)
		return
	}

	log.NewStructuredLogger(logger).LogOutgoingsReplaced(ctx, person, len(records), core.TotalOutgoings(records).Pence)

	if !isHTMX(r) {
		http.Redirect(w, r, "/outgoings?"+url.Values{"saved": {person}}.Encode(), http.StatusSeeOther)
		return
	}

	saved := s.loadEditor(ctx, person)
	saved.Saved = true
	body, err := s.execute("editor", saved)
	if err != nil {
		s.renderFailed(w, r, "editor", err)
		return
	}
	NewHTMXResponse().
		TriggerOutgoingsSaved(person, len(records)).
		TriggerSuccessNotification("Saved " + person + "'s outgoings").
		BodyHTML(body).
		Write(w)
}

// loadEditor builds a member's editor from stored records. A load failure
// yields the unavailable state, never an empty editor that could be saved
// over real data.
func (s *Server) loadEditor(ctx context.Context, person string) editorView {
	records, err := s.household.OutgoingsFor(ctx, person)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Load outgoings failed", log.FieldPerson, person, log.FieldError, err)
		ed := newEditorView(person, nil)
		ed.Unavailable = true
		return ed
	}

	rows := make([]EditorRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, EditorRow{Label: rec.Label, Amount: rec.Amount.Decimal().StringFixed(2)})
	}
	ed := newEditorView(person, rows)
	ed.Total = core.FormatGBP(core.TotalOutgoings(records))
	return ed
}

func saveErrorStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidInput),
		errors.Is(err, core.ErrEmptyOutgoing),
		errors.Is(err, core.ErrReservedLabel),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrTooManyOutgoings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnknownPerson):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func saveErrorMessage(person string, err error) string {
	if errors.Is(err, storage.ErrSave) {
		return "Could not save " + person + "'s outgoings. The previous values are unchanged."
	}
	return err.Error()
}
