package pitchsdk

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/reelpitch/reelpitch/pkg/httpx"
	"github.com/reelpitch/reelpitch/pkg/jwtx"
)

// Endpoints holds the ordered candidate base URLs per service family.
// Order matters: the first entry is tried first, and later entries exist
// because the same logical API has lived on several hosts over time.
type Endpoints struct {
	Auth      []string // auth + user service
	Video     []string
	Community []string
	Chat      []string
	Notify    []string
}

// DefaultEndpoints returns the known deployment hosts, newest first, ending
// with the plain-HTTP fallback kept for devices behind broken TLS middleboxes.
func DefaultEndpoints() Endpoints {
	shared := []string{
		"https://api.reelpitch.app",
		"https://reelpitch-api.fly.dev",
		"http://api.reelpitch.app",
	}
	return Endpoints{
		Auth:      shared,
		Video:     shared,
		Community: shared,
		Chat:      shared,
		Notify:    shared,
	}
}

// Timeouts are per-attempt limits. Each candidate attempt gets its own
// timeout; a slow host cannot starve the remaining candidates.
type Timeouts struct {
	Auth      time.Duration
	Video     time.Duration
	Upload    time.Duration
	Community time.Duration
	Chat      time.Duration
}

func defaultTimeouts() Timeouts {
	return Timeouts{
		Auth:      8 * time.Second,
		Video:     10 * time.Second,
		Upload:    60 * time.Second,
		Community: 8 * time.Second,
		Chat:      6 * time.Second,
	}
}

// Config configures a Client. Store is required; everything else defaults.
type Config struct {
	Endpoints Endpoints
	Timeouts  Timeouts
	Store     Store

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ExpiryBuffer is the proactive-refresh window.
	// Defaults to jwtx.DefaultExpiryBuffer (5 minutes).
	ExpiryBuffer time.Duration
}

// Client is the ReelPitch API client. It owns request execution with
// multi-host failover, the token refresh lifecycle, and the domain facades
// (auth, users, video, community, chat, notify).
type Client struct {
	endpoints Endpoints
	timeouts  Timeouts
	store     Store

	httpClient   *http.Client
	logger       *slog.Logger
	expiryBuffer time.Duration

	authLimiter    *httpx.Limiter
	generalLimiter *httpx.Limiter
	uploadLimiter  *httpx.Limiter

	// refreshMu serializes token refreshes so concurrent 401s share a
	// single refresh instead of racing each other.
	refreshMu sync.Mutex
}

// New creates a Client. It panics when cfg.Store is nil: every operation
// needs somewhere to read credentials from, there is no useful zero value.
func New(cfg Config) *Client {
	if cfg.Store == nil {
		panic("pitchsdk: Config.Store is required")
	}

	c := &Client{
		endpoints:    cfg.Endpoints,
		timeouts:     cfg.Timeouts,
		store:        cfg.Store,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger,
		expiryBuffer: cfg.ExpiryBuffer,

		authLimiter:    httpx.NewLimiter(httpx.AuthLimit),
		generalLimiter: httpx.NewLimiter(httpx.GeneralLimit),
		uploadLimiter:  httpx.NewLimiter(httpx.UploadLimit),
	}

	if len(c.endpoints.Auth) == 0 {
		c.endpoints = DefaultEndpoints()
	}
	if c.timeouts == (Timeouts{}) {
		c.timeouts = defaultTimeouts()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.expiryBuffer == 0 {
		c.expiryBuffer = jwtx.DefaultExpiryBuffer
	}

	return c
}

// HasSession reports whether a credential pair is currently stored. It does
// not validate the tokens against the backend.
func (c *Client) HasSession(ctx context.Context) bool {
	_, ok := c.store.Credential(ctx)
	return ok
}
