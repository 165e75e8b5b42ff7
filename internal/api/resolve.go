package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/koda/internal/metrics"
	"github.com/erazemk/koda/internal/model"
	"github.com/erazemk/koda/internal/scan"
	"github.com/erazemk/koda/internal/service"
)

// resolveTimeout bounds the destination lookup so a slow database cannot
// hang public redirects.
const resolveTimeout = 2 * time.Second

// ResolveHandler serves the public short-path redirects that dynamic
// codes encode.
type ResolveHandler struct {
	Service  *service.Service
	Recorder *scan.Recorder
}

// Resolve handles GET /r/{path}. Unknown paths, static payloads, and
// lookup timeouts all produce the same 404 so probing reveals nothing.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), resolveTimeout)
	defer cancel()

	code, err := h.Service.Resolve(ctx, r.PathValue("path"))
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			slog.Error("resolving short path", "error", err)
		}
		metrics.ResolveMisses.Add(1)
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	http.Redirect(w, r, code.Destination, http.StatusFound)
	metrics.ResolveHits.Add(1)
	metrics.ObserveResolve(time.Since(start))

	// Usage accounting must never delay or fail the redirect.
	h.Recorder.Enqueue(scan.Event{
		CodeID:        code.ID,
		OccurredAt:    time.Now().UTC(),
		ClientContext: r.UserAgent(),
	})
}
