package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminAgentListRequiresKey(t *testing.T) {
	r, _ := newTestEnv(t)

	code, _ := doJSON(t, r, http.MethodPost, "/api/agents", map[string]any{"owner_address": testOwner})
	if code != http.StatusOK {
		t.Fatalf("create agent: status %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin key: status %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	agents, ok := resp["agents"].([]any)
	if !ok || len(agents) != 1 {
		t.Fatalf("expected one agent in listing, got %v", resp)
	}
	agent, _ := agents[0].(map[string]any)
	if agent["owner_address"] != testOwner {
		t.Fatalf("unexpected agent: %v", agent)
	}
	for key := range agent {
		if key == "encrypted_private_key" || key == "private_key" {
			t.Fatalf("key material leaked in admin listing: %s", key)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer key: status %d, want 200", rec.Code)
	}
}
