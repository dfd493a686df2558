package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

type patronRequest struct {
	PatronID   string `json:"patron_id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Suffix     string `json:"suffix"`
	Email      string `json:"email"`
	Barangay   string `json:"barangay"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	Age        *int   `json:"age"`
	Notes      string `json:"notes"`
}

func (s *Server) handlePatrons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListPatrons(w, r)
	case http.MethodPost:
		s.handleCreatePatron(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListPatrons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patrons, err := s.patrons.List(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	years, err := s.policies.ExpirationYears(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	for i := range patrons {
		patrons[i].DeriveExpiration(years)
	}
	respondJSON(w, http.StatusOK, patrons)
}

func (s *Server) handleCreatePatron(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req patronRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		respondMessage(w, http.StatusUnprocessableEntity, "first_name, last_name, and email are required")
		return
	}
	if req.City == "" || req.Province == "" {
		respondMessage(w, http.StatusUnprocessableEntity, "city and province are required")
		return
	}
	if req.Status != "" && !validPatronStatus(req.Status) {
		respondMessage(w, http.StatusUnprocessableEntity, "status must be Active, Deactivated, or Blocked")
		return
	}
	patron := &model.Patron{
		PatronID:   req.PatronID,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Suffix:     req.Suffix,
		Email:      req.Email,
		Barangay:   req.Barangay,
		City:       req.City,
		Province:   req.Province,
		Number:     req.Number,
		Status:     model.PatronStatus(req.Status),
		Age:        req.Age,
		Notes:      req.Notes,
	}
	if err := s.patrons.Create(ctx, patron); err != nil {
		respondError(w, err)
		return
	}
	years, err := s.policies.ExpirationYears(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	patron.DeriveExpiration(years)
	respondJSON(w, http.StatusCreated, patron)
}

func (s *Server) handlePatronRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/patrons/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	switch parts[0] {
	case "generate-id":
		s.handleGeneratePatronID(w, r)
		return
	case "by-id":
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		s.handlePatronByPublicID(w, r, parts[1])
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "invalid patron id")
		return
	}
	if len(parts) == 1 {
		s.handlePatron(w, r, id)
		return
	}
	switch parts[1] {
	case "deactivate":
		s.handleDeactivatePatron(w, r, id)
	case "stats":
		s.handlePatronStats(w, r, id)
	case "transactions":
		s.handlePatronTransactions(w, r, id)
	case "activity-logs":
		s.handlePatronLogs(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handlePatron(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		patron, err := s.patrons.Get(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		s.respondPatron(w, r, patron)
	case http.MethodPut:
		s.handleUpdatePatron(w, r, id)
	case http.MethodDelete:
		if err := s.patrons.Delete(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "patron deleted")
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpdatePatron(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	patron, err := s.patrons.Get(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	var req patronRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if req.Status != "" && !validPatronStatus(req.Status) {
		respondMessage(w, http.StatusUnprocessableEntity, "status must be Active, Deactivated, or Blocked")
		return
	}
	applyPatronUpdate(patron, &req)
	if err := s.patrons.Update(ctx, patron); err != nil {
		respondError(w, err)
		return
	}
	s.respondPatron(w, r, patron)
}

func (s *Server) handlePatronByPublicID(w http.ResponseWriter, r *http.Request, publicID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	patron, err := s.patrons.ByPublicID(r.Context(), publicID)
	if err != nil {
		respondError(w, err)
		return
	}
	s.respondPatron(w, r, patron)
}

func (s *Server) handleGeneratePatronID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	code, err := s.patrons.GenerateID(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"patron_id": code})
}

func (s *Server) handleDeactivatePatron(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	patron, err := s.patrons.Deactivate(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "patron account deactivated successfully",
		"patron":  patron,
	})
}

func (s *Server) handlePatronStats(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	// 404 for unknown patrons rather than empty stats.
	if _, err := s.patrons.Get(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	stats, err := s.reports.PatronStats(r.Context(), id, time.Now().UTC())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePatronTransactions(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, err := s.patrons.Get(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	oldestFirst := r.URL.Query().Get("order") == "asc"
	rows, err := s.reports.PatronTransactions(r.Context(), id, oldestFirst)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handlePatronLogs(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	logs, err := s.attendance.PatronLogs(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (s *Server) respondPatron(w http.ResponseWriter, r *http.Request, patron *model.Patron) {
	years, err := s.policies.ExpirationYears(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	patron.DeriveExpiration(years)
	respondJSON(w, http.StatusOK, patron)
}

func validPatronStatus(s string) bool {
	switch model.PatronStatus(s) {
	case model.PatronActive, model.PatronDeactivated, model.PatronBlocked:
		return true
	}
	return false
}

func applyPatronUpdate(p *model.Patron, req *patronRequest) {
	if req.FirstName != "" {
		p.FirstName = req.FirstName
	}
	if req.MiddleName != "" {
		p.MiddleName = req.MiddleName
	}
	if req.LastName != "" {
		p.LastName = req.LastName
	}
	if req.Suffix != "" {
		p.Suffix = req.Suffix
	}
	if req.Email != "" {
		p.Email = req.Email
	}
	if req.Barangay != "" {
		p.Barangay = req.Barangay
	}
	if req.City != "" {
		p.City = req.City
	}
	if req.Province != "" {
		p.Province = req.Province
	}
	if req.Number != "" {
		p.Number = req.Number
	}
	if req.Status != "" {
		p.Status = model.PatronStatus(req.Status)
	}
	if req.Age != nil {
		p.Age = req.Age
	}
	if req.Notes != "" {
		p.Notes = req.Notes
	}
}
