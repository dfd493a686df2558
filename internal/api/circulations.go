package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

type borrowRequest struct {
	BookCopyID int64  `json:"book_copy_id"`
	PatronID   string `json:"patron_id"`
}

func (s *Server) handleCirculations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	records, err := s.circs.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	now := time.Now().UTC()
	views := make([]circulationView, len(records))
	for i, c := range records {
		views[i] = circulationView{Circulation: c, Overdue: c.IsOverdue(now)}
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleCirculationRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/circulations/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	switch parts[0] {
	case "borrow":
		s.handleBorrow(w, r)
		return
	case "reports":
		s.handleReports(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "invalid circulation id")
		return
	}
	if len(parts) == 1 {
		s.handleCirculation(w, r, id)
		return
	}
	switch parts[1] {
	case "return":
		s.handleReturn(w, r, id)
	case "renew":
		s.handleRenew(w, r, id)
	case "mark-lost":
		s.handleMarkLost(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if req.BookCopyID <= 0 || req.PatronID == "" {
		respondMessage(w, http.StatusUnprocessableEntity, "book_copy_id and patron_id are required")
		return
	}
	c, err := s.engine.Borrow(r.Context(), req.BookCopyID, req.PatronID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "book copy borrowed successfully",
		"circulation": c,
	})
}

func (s *Server) handleCirculation(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	c, err := s.circs.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	c, err := s.engine.Return(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "book copy returned successfully",
		"circulation": c,
	})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	c, err := s.engine.Renew(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "book copy renewed successfully",
		"circulation": c,
	})
}

func (s *Server) handleMarkLost(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	c, err := s.engine.MarkLost(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "book copy marked as lost",
		"circulation": c,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	counts, err := s.reports.Counts(r.Context(), time.Now().UTC())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// circulationView decorates a record with the derived overdue flag for list
// output. Overdue is never stored; it is computed against the request time.
type circulationView struct {
	model.Circulation
	Overdue bool `json:"overdue"`
}
