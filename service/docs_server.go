package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"
)

// DocsServer serves the test document tree over HTTP so hosted
// environments can fetch fixtures from a stable origin.
type DocsServer struct {
	Dir  string
	Addr string

	ctx    context.Context
	server *http.Server
}

func (d *DocsServer) Start(ctx context.Context) error {
	info, err := os.Stat(d.Dir)
	if err != nil {
		return fmt.Errorf("docs directory %q: %w", d.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("docs path %q is not a directory", d.Dir)
	}

	handler := cors.AllowAll().Handler(http.FileServer(http.Dir(d.Dir)))
	server := &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	d.ctx = ctx
	d.server = server
	return server.ListenAndServe()
}

func (d *DocsServer) Shutdown() error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown(d.ctx)
}
