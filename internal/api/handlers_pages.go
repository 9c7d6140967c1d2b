package api

import (
	"net/http"

	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/query"
)

var routes = []string{
	"/api/v1.0/precipitation",
	"/api/v1.0/stations",
	"/api/v1.0/tobs",
	"/api/v1.0/start_date",
	"/api/v1.0/start_date/end_date",
}

type indexData struct {
	Routes      []string
	First, Last models.Date
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{Routes: routes, First: query.FirstKnownDate, Last: query.LastKnownDate}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logFor(r).Errorf("template error: %v", err)
	}
}
