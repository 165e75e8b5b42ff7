// Package metrics publishes the core's counters and timers on the expvar
// endpoint for an external collector. Nothing in the core reads them back.
package metrics

import (
	"expvar"
	"time"
)

var (
	CodesCreated   = expvar.NewInt("codes_created")
	ImagesRendered = expvar.NewInt("images_rendered")

	ResolveHits   = expvar.NewInt("resolve_hits")
	ResolveMisses = expvar.NewInt("resolve_misses")

	ScansRecorded  = expvar.NewInt("scans_recorded")
	ScansDropped   = expvar.NewInt("scans_dropped")
	RecordFailures = expvar.NewInt("scan_record_failures")

	resolveLastMillis = expvar.NewFloat("resolve_last_ms")
)

// ObserveResolve records the duration of one resolve on the hot path.
func ObserveResolve(d time.Duration) {
	resolveLastMillis.Set(float64(d.Microseconds()) / 1000)
}
