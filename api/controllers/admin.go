package controllers

import (
	"net/http"
	"time"

	"github.com/martello/marketplace-backend/api/responses"
	"github.com/martello/marketplace-backend/api/validators"
	"github.com/martello/marketplace-backend/internal/admin"
	"github.com/martello/marketplace-backend/pkg/logger"
)

// AdminDashboard reports platform totals; the commission window defaults
// to the trailing 30 days.
func AdminDashboard(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()

		from, err := validators.ParseQueryTime(r, "from", now.AddDate(0, 0, -30))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to", now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Dashboard(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
