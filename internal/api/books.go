package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

type bookRequest struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	ISBN         string `json:"isbn"`
	Publisher    string `json:"publisher"`
	Copyright    string `json:"copyright"`
	Section      string `json:"section"`
	DeweyDecimal string `json:"dewey_decimal"`
	AuthorNumber string `json:"author_number"`
	Source       string `json:"source"`
	SourcePerson string `json:"source_person"`
	Copies       int    `json:"copies"`
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		books, err := s.catalog.List(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, books)
	case http.MethodPost:
		s.handleCreateBook(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if req.Title == "" || req.Section == "" || req.DeweyDecimal == "" {
		respondMessage(w, http.StatusUnprocessableEntity, "title, section, and dewey_decimal are required")
		return
	}
	if req.Copies < 1 {
		respondMessage(w, http.StatusUnprocessableEntity, "copies must be at least 1")
		return
	}
	if req.Source != "" && req.Source != "library" && req.Source != "donated" {
		respondMessage(w, http.StatusUnprocessableEntity, "source must be library or donated")
		return
	}
	if req.Source == "" {
		req.Source = "library"
	}
	book := &model.Book{
		Title:        req.Title,
		Author:       req.Author,
		ISBN:         req.ISBN,
		Publisher:    req.Publisher,
		Copyright:    req.Copyright,
		Section:      req.Section,
		DeweyDecimal: req.DeweyDecimal,
		AuthorNumber: req.AuthorNumber,
		Source:       req.Source,
		SourcePerson: req.SourcePerson,
	}
	if err := s.catalog.CreateBook(r.Context(), book, req.Copies); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "book added successfully",
		"book":    book,
	})
}

func (s *Server) handleBookRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if parts[0] == "copy" && len(parts) == 2 {
		s.handleCopyByBarcode(w, r, parts[1])
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "invalid book id")
		return
	}
	book, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleCopyByBarcode(w http.ResponseWriter, r *http.Request, barcode string) {
	cp, book, err := s.catalog.CopyByBarcode(r.Context(), barcode)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"copy": cp,
		"book": book,
	})
}
