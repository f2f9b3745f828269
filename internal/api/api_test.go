package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/graph"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/ledger"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/relay"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelayer struct {
	calls   []relay.Request
	result  *relay.Result
	err     error
	last    *ledger.Entry
	lastErr error
}

func (f *fakeRelayer) Relay(_ context.Context, req relay.Request) (*relay.Result, error) {
	f.calls = append(f.calls, req)
	return f.result, f.err
}

func (f *fakeRelayer) Last(context.Context) (*ledger.Entry, error) {
	return f.last, f.lastErr
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestRelaySuccess(t *testing.T) {
	fake := &fakeRelayer{result: &relay.Result{
		InputFile: "daily.csv",
		Parser:    "generic",
		Count:     1,
		Uploaded:  []string{"daily.md"},
		Items:     []graph.Item{{ID: "x", Name: "daily.md"}},
	}}
	router := NewRouter(&Services{Relay: fake}, nil)

	rec, body := do(t, router, http.MethodPost, "/api/relay", `{"driveId":"d1","itemPath":"reports/daily.csv"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []relay.Request{{DriveID: "d1", ItemPath: "reports/daily.csv"}}, fake.calls)
	assert.Equal(t, "daily.csv", body["inputFile"])
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, []any{"daily.md"}, body["uploaded"])
}

func TestRelayMalformedJSON(t *testing.T) {
	fake := &fakeRelayer{}
	router := NewRouter(&Services{Relay: fake}, nil)

	rec, body := do(t, router, http.MethodPost, "/api/relay", `{"driveId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", body["kind"])
	assert.Empty(t, fake.calls)
}

func TestRelayErrorStatus(t *testing.T) {
	tests := []struct {
		kind relay.Kind
		want int
	}{
		{relay.KindInvalidInput, http.StatusBadRequest},
		{relay.KindNotFound, http.StatusNotFound},
		{relay.KindParse, http.StatusUnprocessableEntity},
		{relay.KindAuth, http.StatusBadGateway},
		{relay.KindUpstream, http.StatusBadGateway},
		{relay.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			fake := &fakeRelayer{err: &relay.Error{Kind: tt.kind, Op: "step", Err: fmt.Errorf("boom")}}
			router := NewRouter(&Services{Relay: fake}, nil)

			rec, body := do(t, router, http.MethodPost, "/api/relay", `{"itemPath":"a.csv"}`)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, string(tt.kind), body["kind"])
			assert.Equal(t, "step: boom", body["error"])
		})
	}
}

func TestCustomFunctionName(t *testing.T) {
	fake := &fakeRelayer{result: &relay.Result{}}
	router := NewRouter(&Services{Relay: fake, FunctionName: "/ReportRelay/"}, nil)

	rec, _ := do(t, router, http.MethodPost, "/api/ReportRelay", `{"itemPath":"a.csv"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/relay", `{"itemPath":"a.csv"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLast(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeRelayer
		want int
	}{
		{"found", &fakeRelayer{last: &ledger.Entry{InputFile: "a.csv"}}, http.StatusOK},
		{"empty", &fakeRelayer{lastErr: ledger.ErrNoEntry}, http.StatusNotFound},
		{"disabled", &fakeRelayer{lastErr: relay.ErrLedgerDisabled}, http.StatusNotImplemented},
		{"broken", &fakeRelayer{lastErr: fmt.Errorf("redis down")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&Services{Relay: tt.fake}, nil)
			rec, body := do(t, router, http.MethodGet, "/api/relay/last", "")
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "a.csv", body["inputFile"])
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec, body := do(t, NewRouter(nil, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCORS(t *testing.T) {
	router := NewRouter(nil, []string{"https://flow.example.com, https://admin.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://flow.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://flow.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{" https://a.example.com ,https://b.example.com", ""})
	assert.False(t, all)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

func TestRecovery(t *testing.T) {
	router := NewRouter(nil, nil)
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec, body := do(t, router, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", body["kind"])
}
