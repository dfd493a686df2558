package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

type attendanceRequest struct {
	PatronID       *int64 `json:"patron_id"`
	FirstName      string `json:"first_name"`
	MiddleName     string `json:"middle_name"`
	LastName       string `json:"last_name"`
	Suffix         string `json:"suffix"`
	Province       string `json:"province"`
	City           string `json:"city"`
	Barangay       string `json:"barangay"`
	Email          string `json:"email"`
	Number         string `json:"number"`
	Affiliation    string `json:"affiliation"`
	PurposeOfVisit string `json:"purpose_of_visit"`
}

func (s *Server) handleAttendances(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.attendance.List(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		s.handleTimeIn(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTimeIn(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.PurposeOfVisit == "" {
		respondMessage(w, http.StatusUnprocessableEntity, "first_name, last_name, and purpose_of_visit are required")
		return
	}
	entry := &model.Attendance{
		PatronID:       req.PatronID,
		FirstName:      req.FirstName,
		MiddleName:     req.MiddleName,
		LastName:       req.LastName,
		Suffix:         req.Suffix,
		Province:       req.Province,
		City:           req.City,
		Barangay:       req.Barangay,
		Email:          req.Email,
		Number:         req.Number,
		Affiliation:    req.Affiliation,
		PurposeOfVisit: req.PurposeOfVisit,
	}
	if err := s.attendance.TimeIn(r.Context(), entry); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleAttendanceRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/attendances/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if parts[0] == "today" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		entries, err := s.attendance.Today(r.Context(), time.Now().UTC())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "invalid attendance id")
		return
	}
	if len(parts) == 2 && parts[1] == "timeout" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		entry, err := s.attendance.TimeOut(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entry)
		return
	}
	http.NotFound(w, r)
}
