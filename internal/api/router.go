package api

import (
	"database/sql"
	"expvar"
	"net/http"

	"github.com/erazemk/koda/internal/scan"
	"github.com/erazemk/koda/internal/service"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, svc *service.Service, rec *scan.Recorder) http.Handler {
	mux := http.NewServeMux()

	codesHandler := &CodesHandler{Service: svc}
	resolveHandler := &ResolveHandler{Service: svc, Recorder: rec}

	// Management API.
	mux.HandleFunc("POST /api/codes/static", codesHandler.CreateStatic)
	mux.HandleFunc("POST /api/codes/dynamic", codesHandler.CreateDynamic)
	mux.HandleFunc("GET /api/codes", codesHandler.List)
	mux.HandleFunc("GET /api/codes/{id}", codesHandler.Get)
	mux.HandleFunc("PUT /api/codes/{id}", codesHandler.Update)
	mux.HandleFunc("DELETE /api/codes/{id}", codesHandler.Delete)
	mux.HandleFunc("GET /api/codes/{id}/image", codesHandler.Image)
	mux.HandleFunc("GET /api/codes/{id}/scans", codesHandler.Scans)

	// Public redirect surface.
	mux.HandleFunc("GET /r/{path}", resolveHandler.Resolve)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /debug/vars", expvar.Handler())

	return mux
}
