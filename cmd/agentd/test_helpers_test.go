package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"lucky-agents/internal/broadcast"
	"lucky-agents/internal/config"
	"lucky-agents/internal/executor"
	"lucky-agents/internal/keyvault"
	"lucky-agents/internal/registry"
	"lucky-agents/internal/testutil"
)

const (
	testOwner    = "0x1111111111111111111111111111111111111111"
	testAdminKey = "admin-key"
)

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		EntryFeeGwei:     10_000_000,
		GasBufferGwei:    2_000_000,
		MinOperatingGwei: 10_000_000,
		ConfirmTimeout:   time.Second,
	}
}

func newTestEnv(t *testing.T) (*chi.Mux, *testutil.FakeGateway) {
	t.Helper()
	vault, err := keyvault.NewWithKey(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	fs := testutil.NewFakeStore()
	cfg := testChainConfig()
	reg := registry.NewService(fs, vault, cfg.MinOperatingWei())
	gw := testutil.NewFakeGateway()
	exec := executor.New(gw, vault, fs, cfg)
	return newRouter(nil, reg, exec, broadcast.NewHub(), testAdminKey), gw
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func agentField(t *testing.T, resp map[string]any, key string) any {
	t.Helper()
	agent, ok := resp["agent"].(map[string]any)
	if !ok {
		t.Fatalf("response has no agent object: %v", resp)
	}
	return agent[key]
}
