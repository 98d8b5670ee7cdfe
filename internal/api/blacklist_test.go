package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/warden-bot/warden/internal/blacklist"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testToken = "wdn_test_token"

func newTestServer(t *testing.T, store blacklist.Store) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	deps := &Dependencies{
		Store:          store,
		Logger:         zap.NewNop(),
		AdminTokenHash: string(hash),
		CacheTTL:       time.Minute,
	}
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestBlacklistAPI_RequiresAuth(t *testing.T) {
	srv := newTestServer(t, blacklist.NewMemoryStore())

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "wdn_wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, srv.URL+"/api/warden/blacklist", tt.token, "")
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("want 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestBlacklistAPI_DisabledWithoutConfiguredToken(t *testing.T) {
	deps := &Dependencies{
		Store:    blacklist.NewMemoryStore(),
		Logger:   zap.NewNop(),
		CacheTTL: time.Minute,
	}
	srv := httptest.NewServer(NewRouter(deps))
	defer srv.Close()

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/warden/blacklist", "anything", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("want 403 when no admin token configured, got %d", resp.StatusCode)
	}
}

func TestBlacklistAPI_AddListRemove(t *testing.T) {
	store := blacklist.NewMemoryStore()
	srv := newTestServer(t, store)

	// Add
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/warden/blacklist", testToken,
		`{"identifier":"12345678"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: want 200, got %d", resp.StatusCode)
	}
	var mut MutationResp
	if err := json.NewDecoder(resp.Body).Decode(&mut); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if !mut.Success || mut.Identifier != "12345678" {
		t.Fatalf("unexpected mutation response: %+v", mut)
	}

	// List
	resp = doRequest(t, http.MethodGet, srv.URL+"/api/warden/blacklist", testToken, "")
	var list BlacklistResp
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if list.Total != 1 || len(list.Entries) != 1 || list.Entries[0].Identifier != "12345678" {
		t.Fatalf("unexpected list response: %+v", list)
	}

	// Remove
	resp = doRequest(t, http.MethodDelete, srv.URL+"/api/warden/blacklist/12345678", testToken, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove: want 200, got %d", resp.StatusCode)
	}
	resp = doRequest(t, http.MethodGet, srv.URL+"/api/warden/blacklist", testToken, "")
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if list.Total != 0 {
		t.Errorf("want empty blacklist after remove, got %+v", list)
	}
}

func TestBlacklistAPI_RejectsNonNumericIdentifier(t *testing.T) {
	srv := newTestServer(t, blacklist.NewMemoryStore())

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/warden/blacklist", testToken,
		`{"identifier":"abc123"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("want 400 for non-numeric identifier, got %d", resp.StatusCode)
	}
}

func TestEventsAPI_UnavailableWithoutReader(t *testing.T) {
	srv := newTestServer(t, blacklist.NewMemoryStore())

	for _, path := range []string{"/api/warden/events", "/api/warden/analytics"} {
		resp := doRequest(t, http.MethodGet, srv.URL+path, testToken, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s: want 503 without reader, got %d", path, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, blacklist.NewMemoryStore())

	resp := doRequest(t, http.MethodGet, srv.URL+"/healthz", "", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz should not require auth, got %d", resp.StatusCode)
	}
}
