package api

import (
	"net/http"
)

// MaintenanceHandler runs organizer-triggered maintenance jobs.
type MaintenanceHandler struct {
	deps MaintenanceDependencies
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(deps MaintenanceDependencies) *MaintenanceHandler {
	return &MaintenanceHandler{deps: deps}
}

// HandleReconcile handles POST /events/{eventID}/reconcile.
func (h *MaintenanceHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.ReconcileMirror(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFault(w, r, "api.reconcile", err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// HandleReminders handles POST /events/{eventID}/reminders.
func (h *MaintenanceHandler) HandleReminders(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.RemindPendingReviews(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFault(w, r, "api.reminders", err)
		return
	}
	writeData(w, http.StatusOK, report)
}
