package http

import (
	"net/http"
	"time"

	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// LivezHandler always returns 200 while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, votesdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler checks critical dependencies and reports 503 when any is
// down.
func ReadyzHandler(startTime time.Time, version string, st store.Store, cachePing func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &votesdk.HealthChecks{Database: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if cachePing != nil {
			checks.Cache = "ok"
			if err := cachePing(); err != nil {
				checks.Cache = "error: " + err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		httpx.WriteJSON(w, code, votesdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
