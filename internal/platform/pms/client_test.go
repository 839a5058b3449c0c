package pms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestGroupDuplicates(t *testing.T) {
	ids := []string{"100", "100-1", "100-2", "200", "300-1", "400"}
	groups := GroupDuplicates(ids)

	want := []MergeGroup{{Target: "100", Sources: []string{"100-1", "100-2"}}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("GroupDuplicates = %+v, want %+v", groups, want)
	}
}

func TestGroupDuplicates_OrphanSuffixIgnored(t *testing.T) {
	// A suffixed id without its base target has nothing to merge into.
	if groups := GroupDuplicates([]string{"300-1", "300-2"}); groups != nil {
		t.Errorf("expected no groups, got %+v", groups)
	}
}

func TestClient_Merge(t *testing.T) {
	var got mergeRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/message" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-123", zerolog.Nop())
	if err := c.Merge(context.Background(), "100-1", "100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if auth != "Bearer token-123" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Header.Version != "1.0" {
		t.Errorf("header version = %q", got.Header.Version)
	}
	if got.Message.Contract != "patient" || got.Message.Operation != "merge.request" {
		t.Errorf("unexpected message envelope: %+v", got.Message)
	}
	if got.Message.SourcePatientID != "100-1" || got.Message.TargetPatientID != "100" {
		t.Errorf("unexpected patient ids: %+v", got.Message)
	}
}

func TestClient_Merge_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", zerolog.Nop())
	if err := c.Merge(context.Background(), "100-1", "100"); err == nil {
		t.Error("expected error for non-2xx status")
	}
}

func TestClient_MergeAll_ContinuesOnFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token", zerolog.Nop())
	groups := []MergeGroup{{Target: "100", Sources: []string{"100-1", "100-2"}}}

	report, err := c.MergeAll(context.Background(), groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Merged != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 1 merged and 1 failed", report)
	}
}
