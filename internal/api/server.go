package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/homedash/internal/dashboard"
	"github.com/lox/homedash/internal/imagegen"
)

// ViewSource supplies the current ViewModel. It must never return nil.
type ViewSource interface {
	ViewModel(ctx context.Context) *dashboard.ViewModel
	RefreshInterval() time.Duration
}

type Server struct {
	views  ViewSource
	addr   string
	loc    *time.Location
	tmpl   *template.Template
	images imagegen.Cache
}

// NewServer creates a server listening on addr that formats times in loc.
func NewServer(views ViewSource, addr string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		views: views,
		addr:  addr,
		loc:   loc,
		tmpl:  newTemplates(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/dashboard", s.handleAPIDashboard)
	mux.HandleFunc("/dashboard.png", s.handleImage)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
