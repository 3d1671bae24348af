package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/couchcryptid/sensor-map-service/internal/registry"
)

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.Entries()
	if visible, _ := strconv.ParseBool(r.URL.Query().Get("visible")); visible {
		entries = s.registry.Visible()
	}
	writeJSON(w, http.StatusOK, registry.Details(entries))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		writeError(w, http.StatusBadRequest, "missing type parameter")
		return
	}
	visible := s.registry.FilterByType(typ)
	s.logger.Debug("markers filtered", "type", typ, "visible", visible)
	writeJSON(w, http.StatusOK, map[string]int{"visible": visible})
}

func (s *Server) handleShowAll(w http.ResponseWriter, _ *http.Request) {
	s.registry.ShowAll()
	writeJSON(w, http.StatusOK, map[string]int{"visible": s.registry.Len()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.registry.Search(r.URL.Query().Get("q"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, entry.Detail())
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingester.Ingest(r.Context())
	if err != nil {
		s.logger.Error("ingestion requested over http failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.ingester.LastReport()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "no ingestion yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": msg})
}

// writeJSON encodes v before committing the status, so a value that cannot be
// encoded yields a 500 instead of a 200 with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(map[string]string{ //nolint:errcheck // plain strings always encode
			"status": "error",
			"error":  "encode response: " + err.Error(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck // client may have gone away
}
