package server

import (
	"net/http"

	"github.com/tliron/commonlog"

	"github.com/chazu/nuqta/driver"
)

var log = commonlog.GetLogger("nuqta.server")

// NuqtaServer serves the compile service over Connect. The Connect
// protocol, gRPC and gRPC-Web all share the one HTTP handler.
type NuqtaServer struct {
	worker *CompileWorker
	mux    *http.ServeMux
}

// New creates a NuqtaServer compiling with opts.
func New(opts driver.Options) *NuqtaServer {
	s := &NuqtaServer{
		worker: NewCompileWorker(opts),
		mux:    http.NewServeMux(),
	}

	svc := NewCompileService(s.worker)
	for path, handler := range svc.Handlers() {
		s.mux.Handle(path, handler)
	}
	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *NuqtaServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *NuqtaServer) ListenAndServe(addr string) error {
	log.Noticef("nuqta compile service listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, CompileProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the compile worker.
func (s *NuqtaServer) Stop() {
	s.worker.Stop()
}
