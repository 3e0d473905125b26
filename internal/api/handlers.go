package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"github.com/lox/homedash/internal/imagegen"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	vm := s.views.ViewModel(r.Context())
	page := NewDashboardPage(vm, DetectDevice(r), s.views.RefreshInterval(), s.loc)

	// Render to a buffer so a template failure can still return a clean 500.
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "dashboard.html", page); err != nil {
		log.Printf("server: template error: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	vm := s.views.ViewModel(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(vm)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	vm := s.views.ViewModel(r.Context())

	data, ok := s.images.Get(vm.GeneratedAt)
	if !ok {
		page := NewDashboardPage(vm, DeviceKindle, s.views.RefreshInterval(), s.loc)
		var err error
		data, err = imagegen.Render(page.Frame())
		if err != nil {
			log.Printf("server: render image: %v", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		s.images.Set(vm.GeneratedAt, data)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
