package matching

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	records := []PatientRecord{
		{FamilyName: "Rossi", GivenName: "Mario", Sex: "MALE", DOB: "1985-03-15", CustomIdentifier: "P-1"},
		{FamilyName: "Bianchi", GivenName: "Giulia", Sex: "FEMALE", DOB: "1990-07-22", CustomIdentifier: "P-2"},
	}
	m, err := NewMatcher(NewCandidateIndex(records), Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return NewHandler(m), echo.New()
}

func TestHandler_MatchRecord(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"family_name":"Rossi","given_name":"Mario","sex":"M","dob":"1985-03-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.MatchRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var result MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !result.MatchFound || result.MatchType != MatchGoldStandard {
		t.Errorf("expected gold standard match, got %+v", result)
	}
	if result.Matched.CustomIdentifier != "P-1" {
		t.Errorf("matched wrong record: %s", result.Matched.CustomIdentifier)
	}
}

func TestHandler_MatchRecord_NoMatch(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"family_name":"Ferrari","given_name":"Paolo","sex":"M","dob":"1970-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.MatchRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result MatchResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.MatchFound {
		t.Errorf("expected no match, got %s", result.MatchType)
	}
}

func TestHandler_MatchRecord_MissingFields(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"given_name":"Mario"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.MatchRecord(c)
	if err == nil {
		t.Error("expected error for missing fields")
	}
}

func TestHandler_Statistics(t *testing.T) {
	h, e := newTestHandler(t)

	// Run one match so the counters move.
	body := `{"family_name":"Rossi","given_name":"Mario","sex":"M","dob":"1985-03-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	if err := h.MatchRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil)
	rec := httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := h.GetStatistics(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snap StatisticsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if snap.TotalProcessed != 1 || snap.GoldStandardMatches != 1 {
		t.Errorf("unexpected counters: %+v", snap)
	}
}

func TestHandler_ResetStatistics(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"family_name":"Rossi","given_name":"Mario","sex":"M","dob":"1985-03-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.MatchRecord(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/statistics/reset", nil)
	rec := httptest.NewRecorder()
	if err := h.ResetStatistics(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snap StatisticsSnapshot
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if snap.TotalProcessed != 0 {
		t.Errorf("expected zeroed counters after reset, got %d processed", snap.TotalProcessed)
	}
}
