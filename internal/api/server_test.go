package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmdelacruz/bibliotek/internal/api"
	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/config"
	"github.com/jmdelacruz/bibliotek/internal/model"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/repository"
	"github.com/jmdelacruz/bibliotek/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// memCirculations adapts the memory store to the read-side interface.
type memCirculations struct {
	store *storage.MemoryStore
}

func (m memCirculations) Get(_ context.Context, id int64) (*model.Circulation, error) {
	c, ok := m.store.Circulation(id)
	if !ok {
		return nil, fmt.Errorf("%w: circulation %d", circulation.ErrNotFound, id)
	}
	return &c, nil
}

func (m memCirculations) List(_ context.Context) ([]model.Circulation, error) {
	return m.store.Circulations(), nil
}

// memAttendance is a map-backed sign-in sheet for handler tests.
type memAttendance struct {
	mu      sync.Mutex
	entries map[int64]*model.Attendance
	nextID  int64
}

func newMemAttendance() *memAttendance {
	return &memAttendance{entries: make(map[int64]*model.Attendance)}
}

func (m *memAttendance) TimeIn(_ context.Context, a *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	a.TimeIn = time.Now().UTC()
	a.CreatedAt = a.TimeIn
	snapshot := *a
	m.entries[a.ID] = &snapshot
	return nil
}

func (m *memAttendance) TimeOut(_ context.Context, id int64) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: attendance %d", circulation.ErrNotFound, id)
	}
	if a.TimeOut != nil {
		return nil, repository.ErrAlreadyTimedOut
	}
	now := time.Now().UTC()
	a.TimeOut = &now
	out := *a
	return &out, nil
}

func (m *memAttendance) List(_ context.Context) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Attendance, 0, len(m.entries))
	for _, a := range m.entries {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAttendance) Today(_ context.Context, now time.Time) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := model.StartOfDay(now)
	var out []model.Attendance
	for _, a := range m.entries {
		if !a.TimeIn.Before(start) && a.TimeIn.Before(start.AddDate(0, 0, 1)) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAttendance) PatronLogs(_ context.Context, patronID int64) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Attendance
	for _, a := range m.entries {
		if a.PatronID != nil && *a.PatronID == patronID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type testEnv struct {
	srv      *httptest.Server
	store    *storage.MemoryStore
	copyID   int64
	patronID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	policies := policy.NewService(policy.NewMemoryStore())
	engine := circulation.NewEngine(store, policies, nil)

	copyID := store.AddCopy(model.BookCopy{AccessionNumber: "00001", Barcode: "BC1", CopyNumber: 1})
	store.AddPatron(model.Patron{PatronID: "P00001", FirstName: "Ana", LastName: "Reyes"})
	store.AddPatron(model.Patron{PatronID: "P00002", Status: model.PatronBlocked})

	server := api.New(&config.Config{}, api.Deps{
		Engine:       engine,
		Circulations: memCirculations{store: store},
		Attendance:   newMemAttendance(),
		Policies:     policies,
	})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, copyID: copyID, patronID: "P00001"}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestBorrowEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		resp, body := env.do(t, http.MethodPost, "/circulations/borrow",
			fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00001"}`, env.copyID))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		circ, ok := body["circulation"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "borrowed", circ["status"])
		assert.Equal(t, float64(0), circ["fine"])
	})

	t.Run("blocked_patron_is_forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		resp, body := env.do(t, http.MethodPost, "/circulations/borrow",
			fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00002"}`, env.copyID))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Contains(t, body["message"], "not eligible")
	})

	t.Run("borrowed_copy_is_bad_request", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.do(t, http.MethodPost, "/circulations/borrow",
			fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00001"}`, env.copyID))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, body := env.do(t, http.MethodPost, "/circulations/borrow",
			fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00001"}`, env.copyID))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["message"], "not available")
	})

	t.Run("missing_fields_are_unprocessable", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.do(t, http.MethodPost, "/circulations/borrow", `{"book_copy_id": 1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown_copy_is_not_found", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.do(t, http.MethodPost, "/circulations/borrow",
			`{"book_copy_id": 999, "patron_id": "P00001"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestReturnAndRenewEndpoints(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/circulations/borrow",
		fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00001"}`, env.copyID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	circ := body["circulation"].(map[string]interface{})
	id := int64(circ["id"].(float64))

	// Two renewals pass, the third hits the default limit.
	resp, _ = env.do(t, http.MethodPut, fmt.Sprintf("/circulations/%d/renew", id), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPut, fmt.Sprintf("/circulations/%d/renew", id), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodPut, fmt.Sprintf("/circulations/%d/renew", id), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "renewal limit")

	resp, _ = env.do(t, http.MethodPut, fmt.Sprintf("/circulations/%d/return", id), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Returning twice is rejected.
	resp, body = env.do(t, http.MethodPut, fmt.Sprintf("/circulations/%d/return", id), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "not currently borrowed")

	// The copy is borrowable again after the return.
	resp, _ = env.do(t, http.MethodPost, "/circulations/borrow",
		fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00001"}`, env.copyID))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestListCirculations(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/circulations/borrow",
		fmt.Sprintf(`{"book_copy_id": %d, "patron_id": "P00001"}`, env.copyID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/circulations", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var list []map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "borrowed", list[0]["status"])
	assert.Equal(t, false, list[0]["overdue"])
}

func TestAttendanceEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing_fields_are_unprocessable", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/attendances", `{"first_name": "Ana"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	resp, body := env.do(t, http.MethodPost, "/attendances",
		`{"first_name": "Ana", "last_name": "Reyes", "purpose_of_visit": "Research",
		  "province": "Metro Manila", "city": "Quezon City", "barangay": "Bagumbayan"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["time_in"])
	assert.Nil(t, body["time_out"])
	id := int64(body["id"].(float64))

	t.Run("timeout_stamps_once", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, fmt.Sprintf("/attendances/%d/timeout", id), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["time_out"])
	})

	t.Run("second_timeout_is_rejected", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, fmt.Sprintf("/attendances/%d/timeout", id), "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["message"], "already timed out")
	})

	t.Run("unknown_entry_is_not_found", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/attendances/999/timeout", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("get_returns_default", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/settings/loan-days", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(5), body["loan_days"])
	})

	t.Run("post_persists_value", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/settings/fine-per-day", `{"fine_per_day": 25}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(25), body["fine_per_day"])

		resp, body = env.do(t, http.MethodGet, "/settings/fine-per-day", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(25), body["fine_per_day"])
	})

	t.Run("out_of_range_is_rejected", func(t *testing.T) {
		for path, payload := range map[string]string{
			"/settings/loan-days":        `{"loan_days": 61}`,
			"/settings/fine-per-day":     `{"fine_per_day": 0}`,
			"/settings/renewal-limit":    `{"renewal_limit": 11}`,
			"/settings/expiration-years": `{"expiration_years": 0}`,
		} {
			resp, _ := env.do(t, http.MethodPost, path, payload)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, path)
		}
	})

	t.Run("missing_field_is_rejected", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/settings/loan-days", `{}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown_setting_is_not_found", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/settings/max-books", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
