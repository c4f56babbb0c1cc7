package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/zedpos/zedpos-backend/api/responses"
	reportsvc "github.com/zedpos/zedpos-backend/internal/reports"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/logger"
)

// DailyReport serves the per-day sales and tax totals. The day defaults to
// today (UTC) when the date query parameter is absent.
func DailyReport(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := time.Now().UTC()
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD"))
				return
			}
			day = parsed
		}

		summary, err := svc.DailySummary(r.Context(), day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func TaxReport(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.TaxSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
