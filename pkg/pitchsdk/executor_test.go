package pitchsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRequest(paths []string, bases []string) request {
	return request{
		method:  http.MethodGet,
		paths:   paths,
		bases:   bases,
		timeout: 2 * time.Second,
	}
}

func TestExecuteSoftFailSkipsToNextCandidate(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer good.Close()

	client := newTestClient(newMemStore())
	resp, body, err := client.execute(context.Background(),
		testRequest([]string{"/ping"}, []string{bad.URL, good.URL}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestExecutePathMajorOrder(t *testing.T) {
	t.Parallel()

	// Candidate order must be: baseA+/v2, baseB+/v2, baseA+/v1, baseB+/v1.
	var visited []string
	record := func(tag string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visited = append(visited, tag+r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}))
	}
	serverA := record("A")
	defer serverA.Close()
	serverB := record("B")
	defer serverB.Close()

	client := newTestClient(newMemStore())
	_, _, err := client.execute(context.Background(),
		testRequest([]string{"/v2", "/v1"}, []string{serverA.URL, serverB.URL}))
	require.Error(t, err)
	require.Equal(t, []string{"A/v2", "B/v2", "A/v1", "B/v1"}, visited)
}

func TestExecuteHardStatusShortCircuits(t *testing.T) {
	t.Parallel()

	var neverCalled bool
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad input"}`))
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		neverCalled = true
	}))
	defer second.Close()

	client := newTestClient(newMemStore())
	resp, body, err := client.execute(context.Background(),
		testRequest([]string{"/op"}, []string{first.URL, second.URL}))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, neverCalled, "hard failure must not try remaining candidates")

	apiErr := parseAPIError(resp.StatusCode, body)
	require.Equal(t, "bad input", apiErr.Message)
}

func TestExecuteExhaustion(t *testing.T) {
	t.Parallel()

	t.Run("all 404 yields exhausted error naming hosts", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		client := newTestClient(newMemStore())
		_, _, err := client.execute(context.Background(),
			testRequest([]string{"/a", "/b"}, []string{server.URL}))

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		require.Equal(t, []string{server.URL}, exhausted.Hosts)
		require.Equal(t, http.StatusNotFound, exhausted.LastStatus)
		require.Contains(t, err.Error(), server.URL)
	})

	t.Run("any 503 classifies as service unavailable", func(t *testing.T) {
		overloaded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer overloaded.Close()

		missing := httptest.NewServer(http.NotFoundHandler())
		defer missing.Close()

		client := newTestClient(newMemStore())
		_, _, err := client.execute(context.Background(),
			testRequest([]string{"/op"}, []string{overloaded.URL, missing.URL}))

		var unavailable *ServiceUnavailableError
		require.ErrorAs(t, err, &unavailable)
	})

	t.Run("transport error is soft", func(t *testing.T) {
		// A closed server produces connection-refused.
		dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		dead.Close()

		good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer good.Close()

		client := newTestClient(newMemStore())
		resp, _, err := client.execute(context.Background(),
			testRequest([]string{"/op"}, []string{dead.URL, good.URL}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestExecuteDedupesBases(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(newMemStore())
	_, _, err := client.execute(context.Background(),
		testRequest([]string{"/op"}, []string{server.URL, server.URL + "/", "", server.URL}))
	require.Error(t, err)
	require.Equal(t, 1, hits)
}

func TestExecutePreservesMultiValuedHeaders(t *testing.T) {
	t.Parallel()

	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values("X-Feature")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	req := testRequest([]string{"/op"}, []string{server.URL})
	req.header = http.Header{"X-Feature": {"alpha", "beta"}}

	client := newTestClient(newMemStore())
	_, _, err := client.execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, got)
}

func TestExecuteSetsRequestID(t *testing.T) {
	t.Parallel()

	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(newMemStore())
	_, _, err := client.execute(context.Background(),
		testRequest([]string{"/op"}, []string{server.URL}))
	require.NoError(t, err)
	require.Len(t, requestID, 26)
}
