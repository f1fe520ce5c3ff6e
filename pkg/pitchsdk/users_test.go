package pitchsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchUsers(t *testing.T) {
	t.Parallel()

	t.Run("dedicated endpoint", func(t *testing.T) {
		store := newMemStore()
		loggedIn(t, store, "user-1")

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/users/search", r.URL.Path)
			require.Equal(t, "anna", r.URL.Query().Get("q"))
			fmt.Fprint(w, `[{"id":"1","name":"Anna Andersson","email":"anna@example.com"}]`)
		}))
		defer server.Close()

		client := newTestClient(store, server.URL)
		users, err := client.SearchUsers(context.Background(), "anna")
		require.NoError(t, err)
		require.Len(t, users, 1)
		require.Equal(t, "Anna Andersson", users[0].Name)
	})

	t.Run("falls back to client-side filtering on 404", func(t *testing.T) {
		store := newMemStore()
		loggedIn(t, store, "user-1")

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/users" && r.URL.Query().Get("search") == "" {
				fmt.Fprint(w, `{"users":[
					{"id":"1","name":"Anna Andersson","email":"aa@example.com"},
					{"id":"2","name":"Bob Berg","email":"bob@example.com","job":"engineer"},
					{"id":"3","name":"Carol","email":"carol@example.com","sector":"Savanna tech"}
				]}`)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(store, server.URL)
		users, err := client.SearchUsers(context.Background(), "anna")
		require.NoError(t, err)

		// Case-insensitive substring across name, email, job and sector.
		require.Len(t, users, 2)
		require.Equal(t, "1", users[0].ID)
		require.Equal(t, "3", users[1].ID)
	})

	t.Run("503 surfaces instead of falling back", func(t *testing.T) {
		store := newMemStore()
		loggedIn(t, store, "user-1")

		var listingCalled bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/users" && r.URL.Query().Get("search") == "" {
				listingCalled = true
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(store, server.URL)
		_, err := client.SearchUsers(context.Background(), "anna")

		var unavailable *ServiceUnavailableError
		require.ErrorAs(t, err, &unavailable)
		require.False(t, listingCalled, "overload must not trigger the full-listing fallback")
	})
}

func TestDecodeUserList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":"1"},{"id":"2"}]`, 2},
		{"users wrapper", `{"users":[{"id":"1"}]}`, 1},
		{"data wrapper", `{"data":[{"id":"1"}]}`, 1},
		{"results wrapper", `{"results":[{"id":"1"},{"id":"2"},{"id":"3"}]}`, 3},
		{"null array", `null`, 0},
		{"empty wrapper", `{}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users, err := decodeUserList([]byte(tc.body))
			require.NoError(t, err)
			require.Len(t, users, tc.want)
		})
	}

	t.Run("non-JSON body", func(t *testing.T) {
		_, err := decodeUserList([]byte(`<html>gateway error</html>`))
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}
