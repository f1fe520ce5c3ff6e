package pitchsdk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store double.
type memStore struct {
	mu        sync.Mutex
	cred      *Credential
	liked     map[string]map[string]bool
	favorites map[string]map[string]bool
	chatCache map[string][]byte
	chatOwner string
}

func newMemStore() *memStore {
	return &memStore{
		liked:     map[string]map[string]bool{},
		favorites: map[string]map[string]bool{},
		chatCache: map[string][]byte{},
	}
}

func (m *memStore) Credential(context.Context) (Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return Credential{}, false
	}
	return *m.cred, true
}

func (m *memStore) SaveCredential(_ context.Context, cred Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = &cred
}

func (m *memStore) ClearSession(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	m.chatCache = map[string][]byte{}
	m.chatOwner = ""
}

func (m *memStore) LikedVideos(_ context.Context, owner string) map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySet(m.liked[owner])
}

func (m *memStore) SaveLikedVideos(_ context.Context, owner string, ids map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liked[owner] = copySet(ids)
}

func (m *memStore) FavoriteVideos(_ context.Context, owner string) map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySet(m.favorites[owner])
}

func (m *memStore) SaveFavoriteVideos(_ context.Context, owner string, ids map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[owner] = copySet(ids)
}

func (m *memStore) ChatCache(_ context.Context, owner string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chatOwner != owner {
		return nil, false
	}
	data, ok := m.chatCache[owner]
	return data, ok
}

func (m *memStore) SaveChatCache(_ context.Context, owner string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatOwner = owner
	m.chatCache[owner] = data
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// mintToken signs a throwaway JWT; the client never verifies signatures.
func mintToken(t *testing.T, sub string, expiresIn time.Duration) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(expiresIn).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

// newTestClient builds a Client with all endpoint families pointed at the
// given bases and short timeouts.
func newTestClient(store Store, bases ...string) *Client {
	return New(Config{
		Endpoints: Endpoints{
			Auth:      bases,
			Video:     bases,
			Community: bases,
			Chat:      bases,
			Notify:    bases,
		},
		Timeouts: Timeouts{
			Auth:      2 * time.Second,
			Video:     2 * time.Second,
			Upload:    5 * time.Second,
			Community: 2 * time.Second,
			Chat:      2 * time.Second,
		},
		Store: store,
	})
}

// loggedIn seeds store with a fresh credential and returns it.
func loggedIn(t *testing.T, store *memStore, sub string) Credential {
	t.Helper()

	cred := Credential{
		AccessToken:  mintToken(t, sub, time.Hour),
		RefreshToken: "refresh-1",
	}
	store.SaveCredential(context.Background(), cred)
	return cred
}
