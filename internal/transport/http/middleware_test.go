package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/intensity/internal/observability"
)

func TestCorsMiddleware(t *testing.T) {
	testCases := []struct {
		name          string
		configured    string
		origin        string
		method        string
		expectOrigin  string
		expectStatus  int
		expectForward bool
	}{
		{name: "Wildcard", configured: "*", origin: "https://app.example.com", method: http.MethodGet, expectOrigin: "*", expectStatus: http.StatusOK, expectForward: true},
		{name: "MatchingOrigin", configured: "https://app.example.com", origin: "https://app.example.com", method: http.MethodGet, expectOrigin: "https://app.example.com", expectStatus: http.StatusOK, expectForward: true},
		{name: "OtherOrigin", configured: "https://app.example.com", origin: "https://evil.example.com", method: http.MethodGet, expectOrigin: "", expectStatus: http.StatusOK, expectForward: true},
		{name: "Preflight", configured: "*", origin: "https://app.example.com", method: http.MethodOptions, expectOrigin: "*", expectStatus: http.StatusNoContent, expectForward: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			forwarded := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { forwarded = true })

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, "/api/health", nil)
			req.Header.Set("Origin", tc.origin)
			Cors(tc.configured)(next).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.expectStatus, rr.Code)
			assert.Equal(t, tc.expectForward, forwarded)
		})
	}
}

func TestPanicRecovery(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	before := testutil.ToFloat64(observability.Panics())

	handler := PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "server_error")
	assert.Equal(t, before+1, testutil.ToFloat64(observability.Panics()))
	require.NotNil(t, hook.LastEntry())
}

func TestLogRequestCountsStatus(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	counter := observability.RequestCount(http.MethodPost, http.StatusTeapot)
	before := testutil.ToFloat64(counter)

	handler := LogRequest(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestNewServerAnswersPreflight(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	router := mux.NewRouter()
	router.HandleFunc("/api/records", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	srv := NewServer(DefaultServerConfig(":0"), router, logger)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "https://app.example.com")
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
