package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jmdelacruz/bibliotek/internal/policy"
)

// settingRoute binds a URL slug to a policy setting and its JSON field name.
type settingRoute struct {
	setting policy.Setting
	field   string
}

var settingRoutes = map[string]settingRoute{
	"loan-days":        {policy.LoanDays, "loan_days"},
	"fine-per-day":     {policy.FinePerDay, "fine_per_day"},
	"renewal-limit":    {policy.RenewalLimit, "renewal_limit"},
	"expiration-years": {policy.ExpirationYears, "expiration_years"},
}

func (s *Server) handleSettingRoute(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/settings/")
	route, ok := settingRoutes[slug]
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		value, err := s.policies.Get(r.Context(), route.setting)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{route.field: value})
	case http.MethodPost:
		s.handleUpdateSetting(w, r, route)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpdateSetting(w http.ResponseWriter, r *http.Request, route settingRoute) {
	var body map[string]int
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	value, ok := body[route.field]
	if !ok {
		respondMessage(w, http.StatusUnprocessableEntity, route.field+" is required")
		return
	}
	if err := s.policies.Set(r.Context(), route.setting, value); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   fmt.Sprintf("%s updated successfully", route.field),
		route.field: value,
	})
}
