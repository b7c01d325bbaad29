package request_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/farmsight-go/pkg/auth"
	"github.com/agrovista/farmsight-go/pkg/auth/credstore"
	"github.com/agrovista/farmsight-go/pkg/request"
)

// fastPolicy keeps retry tests quick.
var fastPolicy = request.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func newExecutor(serverURL string) *request.Executor {
	return request.NewExecutor(&request.Config{
		BaseURL: serverURL,
		Policy:  fastPolicy,
	})
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"North Field","crop":"corn"}`))
	}))
	defer server.Close()

	result := newExecutor(server.URL).Get(context.Background(), "/api/fields/f1", nil)
	require.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.Status)

	var field struct {
		Name string `json:"name"`
		Crop string `json:"crop"`
	}
	require.NoError(t, result.Decode(&field))
	assert.Equal(t, "North Field", field.Name)
	assert.Equal(t, "corn", field.Crop)
}

func TestDo_EnvelopePassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"t1"},"message":"created"}`))
	}))
	defer server.Close()

	result := newExecutor(server.URL).Post(context.Background(), "/api/tasks", map[string]string{"title": "Scout"})
	require.True(t, result.Success)
	assert.Equal(t, "created", result.Message)
	assert.JSONEq(t, `{"id":"t1"}`, string(result.Data))
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := newExecutor(server.URL).Get(context.Background(), "/api/fields", nil)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, "server error, please try again later", result.Error)

	// The attempt budget is exhausted, never exceeded.
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestDo_ClientErrorIsTerminal(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"field not found"}`))
	}))
	defer server.Close()

	result := newExecutor(server.URL).Get(context.Background(), "/api/fields/nope", nil)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusNotFound, result.Status)
	assert.Equal(t, "field not found", result.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDo_SkipRetry(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := newExecutor(server.URL).Do(context.Background(), &request.Request{
		Endpoint:  "/api/fields",
		SkipRetry: true,
	})
	assert.False(t, result.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDo_Timeout(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	result := newExecutor(server.URL).Do(context.Background(), &request.Request{
		Endpoint: "/api/fields",
		Timeout:  20 * time.Millisecond,
	})
	assert.False(t, result.Success)
	assert.Equal(t, "request timeout", result.Error)

	// Timeouts do not burn through the retry budget.
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDo_InvalidJSONIsTerminal(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"broken`))
	}))
	defer server.Close()

	result := newExecutor(server.URL).Get(context.Background(), "/api/fields", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "invalid JSON response", result.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDo_TextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	result := newExecutor(server.URL).Get(context.Background(), "/ping", nil)
	require.True(t, result.Success)

	var text string
	require.NoError(t, result.Decode(&text))
	assert.Equal(t, "pong", text)
}

func TestDo_RefreshAndReplayOn401(t *testing.T) {
	var apiHits, refreshHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshHits, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh-token"})
	})
	mux.HandleFunc("/api/fields", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiHits, 1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"f1"}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	creds := credstore.NewMemory()
	require.NoError(t, creds.SetTokens("", "refresh-1"))
	mgr := auth.NewManager(&auth.Config{RefreshURL: server.URL + "/api/auth/refresh", Creds: creds})

	executor := request.NewExecutor(&request.Config{
		BaseURL: server.URL,
		Auth:    mgr,
		Policy:  fastPolicy,
	})

	result := executor.Get(context.Background(), "/api/fields", nil)
	require.True(t, result.Success)

	// One 401, one refresh, one replay; nothing more.
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshHits))
	assert.Equal(t, "fresh-token", mgr.Token())
}

func TestDo_SessionExpiredWhenRefreshFails(t *testing.T) {
	var apiHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/fields", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiHits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	creds := credstore.NewMemory()
	require.NoError(t, creds.SetTokens("", "refresh-1"))
	mgr := auth.NewManager(&auth.Config{RefreshURL: server.URL + "/api/auth/refresh", Creds: creds})

	var expiredFired int32
	executor := request.NewExecutor(&request.Config{
		BaseURL:          server.URL,
		Auth:             mgr,
		Policy:           fastPolicy,
		OnSessionExpired: func() { atomic.AddInt32(&expiredFired, 1) },
	})

	result := executor.Get(context.Background(), "/api/fields", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "session expired, please login again", result.Error)
	assert.Equal(t, http.StatusUnauthorized, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&apiHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&expiredFired))
}

func TestDo_AuthEndpointSkips401Loop(t *testing.T) {
	var refreshHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshHits, 1)
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	creds := credstore.NewMemory()
	require.NoError(t, creds.SetTokens("", "refresh-1"))
	mgr := auth.NewManager(&auth.Config{RefreshURL: server.URL + "/api/auth/refresh", Creds: creds})

	executor := request.NewExecutor(&request.Config{BaseURL: server.URL, Auth: mgr, Policy: fastPolicy})

	// A 401 on a login attempt means wrong credentials, not a stale token.
	result := executor.Post(context.Background(), "/api/auth/login", map[string]string{"email": "x"})
	assert.False(t, result.Success)
	assert.Equal(t, "bad credentials", result.Error)
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshHits))
}

func TestDo_StateChangingHeaders(t *testing.T) {
	var got http.Header
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		method = r.Method
	}))
	defer server.Close()

	executor := request.NewExecutor(&request.Config{
		BaseURL:   server.URL,
		Policy:    fastPolicy,
		CSRFToken: "csrf-123",
	})

	executor.Post(context.Background(), "/api/tasks", map[string]string{"title": "Irrigate"})
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "XMLHttpRequest", got.Get("X-Requested-With"))
	assert.Equal(t, "csrf-123", got.Get("X-CSRF-Token"))

	executor.Get(context.Background(), "/api/tasks", nil)
	assert.Empty(t, got.Get("X-CSRF-Token"))
	assert.Empty(t, got.Get("X-Requested-With"))
}

func TestDo_QueryParameters(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
	}))
	defer server.Close()

	newExecutor(server.URL).Get(context.Background(), "/api/tasks", url.Values{"status": {"pending"}})
	assert.Equal(t, "status=pending", gotQuery)
}
