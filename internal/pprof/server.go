// Package pprof serves Go's runtime profiles over HTTP for field
// debugging. Unlike the rest of the ambient HTTP surface this project
// doesn't carry a router dependency for, so registration goes straight
// through net/http/pprof's package-level handlers on a dedicated mux.
package pprof

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/trunkctl/tetrabase/internal/config"
)

const readTimeout = 3 * time.Second

// CreatePProfServer blocks serving debug profiles on cfg.PProf.Bind, if
// enabled. Intended to run in its own goroutine, the same as
// metrics.CreateMetricsServer.
func CreatePProfServer(cfg *config.Config) error {
	if !cfg.PProf.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.PProf.Bind, cfg.PProf.Port),
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}
	return server.ListenAndServe()
}
