// Package api exposes the HTTP/JSON boundary of the circulation service.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/config"
	"github.com/jmdelacruz/bibliotek/internal/model"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CirculationReader serves the read side of circulation records.
type CirculationReader interface {
	Get(ctx context.Context, id int64) (*model.Circulation, error)
	List(ctx context.Context) ([]model.Circulation, error)
}

// Catalog is the book/copy registry the handlers depend on.
type Catalog interface {
	CreateBook(ctx context.Context, b *model.Book, copies int) error
	Get(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context) ([]model.Book, error)
	CopyByBarcode(ctx context.Context, barcode string) (*model.BookCopy, *model.Book, error)
}

// Patrons is the patron registry the handlers depend on.
type Patrons interface {
	Create(ctx context.Context, p *model.Patron) error
	Get(ctx context.Context, id int64) (*model.Patron, error)
	List(ctx context.Context) ([]model.Patron, error)
	Update(ctx context.Context, p *model.Patron) error
	Delete(ctx context.Context, id int64) error
	ByPublicID(ctx context.Context, publicID string) (*model.Patron, error)
	Deactivate(ctx context.Context, id int64) (*model.Patron, error)
	GenerateID(ctx context.Context) (string, error)
}

// Attendance is the sign-in sheet store the handlers depend on.
type Attendance interface {
	TimeIn(ctx context.Context, a *model.Attendance) error
	TimeOut(ctx context.Context, id int64) (*model.Attendance, error)
	List(ctx context.Context) ([]model.Attendance, error)
	Today(ctx context.Context, now time.Time) ([]model.Attendance, error)
	PatronLogs(ctx context.Context, patronID int64) ([]model.Attendance, error)
}

// Reports serves the read-only aggregates.
type Reports interface {
	Counts(ctx context.Context, now time.Time) (*model.ReportCounts, error)
	PatronTransactions(ctx context.Context, patronID int64, oldestFirst bool) ([]model.TransactionRow, error)
	PatronStats(ctx context.Context, patronID int64, now time.Time) (*model.PatronStats, error)
}

// Deps bundles everything the Server needs.
type Deps struct {
	Engine       *circulation.Engine
	Circulations CirculationReader
	Catalog      Catalog
	Patrons      Patrons
	Attendance   Attendance
	Reports      Reports
	Policies     *policy.Service
}

// Server exposes the HTTP endpoints of the library service.
type Server struct {
	cfg        *config.Config
	engine     *circulation.Engine
	circs      CirculationReader
	catalog    Catalog
	patrons    Patrons
	attendance Attendance
	reports    Reports
	policies   *policy.Service
	server     *http.Server
	once       sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:        cfg,
		engine:     deps.Engine,
		circs:      deps.Circulations,
		catalog:    deps.Catalog,
		patrons:    deps.Patrons,
		attendance: deps.Attendance,
		reports:    deps.Reports,
		policies:   deps.Policies,
	}
}

// Handler builds the route table. Exposed separately from Run so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/circulations", s.handleCirculations)
	mux.HandleFunc("/circulations/", s.handleCirculationRoute)
	mux.HandleFunc("/books", s.handleBooks)
	mux.HandleFunc("/books/", s.handleBookRoute)
	mux.HandleFunc("/patrons", s.handlePatrons)
	mux.HandleFunc("/patrons/", s.handlePatronRoute)
	mux.HandleFunc("/attendances", s.handleAttendances)
	mux.HandleFunc("/attendances/", s.handleAttendanceRoute)
	mux.HandleFunc("/settings/", s.handleSettingRoute)
	return corsMiddleware(loggingMiddleware(mux))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// respondError maps the error taxonomy onto HTTP status codes. Messages are
// surfaced verbatim; only unexpected failures are masked.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, circulation.ErrNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, circulation.ErrPatronIneligible):
		respondMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, circulation.ErrCopyUnavailable),
		errors.Is(err, circulation.ErrNotCurrentlyBorrowed),
		errors.Is(err, circulation.ErrRenewalLimitReached),
		errors.Is(err, repository.ErrAlreadyTimedOut):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, policy.ErrOutOfRange):
		respondMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
