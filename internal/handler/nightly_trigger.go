package handler

import (
	"log/slog"
	"net/http"
)

// HandleNightlyTrigger closes every billing cycle that has ended.
func (d *Dependencies) HandleNightlyTrigger(w http.ResponseWriter, r *http.Request) {
	slog.Info("starting nightly cycle closing")

	closed, err := d.CloseDueCycles(r.Context())
	if err != nil {
		slog.Error("nightly cycle closing finished with errors", "statements_closed", closed, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to close billing cycles: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"statements_closed": closed})
}
