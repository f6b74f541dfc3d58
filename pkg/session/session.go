// Package session owns credentials, the encrypted login flow, the bearer
// token lifecycle and every outbound call to the Solix cloud API.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/solixsync/solixsync/pkg/common"
	"github.com/solixsync/solixsync/pkg/tokenstore"
)

const (
	loginEndpoint = "passport/login"

	// tokenRefreshMargin forces a re-login when the token is this close to
	// its expiry, so an in-flight poll cycle never races the server clock.
	tokenRefreshMargin = 60 * time.Second

	defaultRequestDelay = 300 * time.Millisecond
	minRequestDelay     = 100 * time.Millisecond
	maxRequestDelay     = 5 * time.Second
)

// Per-region API servers. The platform routes EU accounts to a dedicated
// cluster; everything else lands on the global one.
var regionBaseURLs = map[string]string{
	"com": "https://ankerpower-api.anker.com",
	"eu":  "https://ankerpower-api-eu.anker.com",
}

var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CH": true, "CY": true, "CZ": true,
	"DE": true, "DK": true, "EE": true, "ES": true, "FI": true, "FR": true,
	"GB": true, "GR": true, "HR": true, "HU": true, "IE": true, "IT": true,
	"LT": true, "LU": true, "LV": true, "MT": true, "NL": true, "NO": true,
	"PL": true, "PT": true, "RO": true, "SE": true, "SI": true, "SK": true,
}

// RegionForCountry returns the API region serving the given country code.
func RegionForCountry(country string) string {
	if euCountries[country] {
		return "eu"
	}
	return "com"
}

// Config carries everything a Session needs at construction. There is no
// package-level mutable state; hosts build one Config per account.
type Config struct {
	Email    string
	Password string
	Country  string
	// Region overrides the country-derived API region ("com" or "eu").
	Region string
	// BaseURL overrides the region lookup entirely; used by tests.
	BaseURL string

	// Store caches the login response across restarts. Nil disables
	// persistence.
	Store tokenstore.Store

	// TestDir is the fixture directory for file-replay mode.
	TestDir string

	// RequestDelay is the minimum delay before every outbound call,
	// clamped to [100ms, 5s]. Zero means the default of 300ms.
	RequestDelay time.Duration

	// Client overrides the HTTP client; used by tests.
	Client *http.Client

	// ServerPublicKey overrides the platform login key; used by tests.
	ServerPublicKey string
}

// Session is the authenticated connection to the cloud API. All outbound
// calls pass through it. Token state is guarded by mu; overlapping poll
// cycles on one session remain a caller obligation (see the concurrency
// notes on Request).
type Session struct {
	client  *http.Client
	baseURL string
	store   tokenstore.Store

	email    string
	password string
	country  string
	region   string

	serverKeyHex string
	keys         *sessionKeys

	mu          sync.Mutex
	token       string
	gtoken      string
	userID      string
	nickname    string
	tokenExpiry time.Time
	fingerprint string

	// retryAttempt bounds automatic re-authentication to one per
	// originating call: set before any login attempt, cleared only after a
	// non-login call succeeds.
	retryAttempt bool

	minDelay    time.Duration
	lastRequest time.Time
	counter     *RequestCounter

	testDir string

	// nowFunc is swapped in tests.
	nowFunc func() time.Time
}

// New builds a Session from the config. It performs no network calls.
func New(cfg Config) (*Session, error) {
	s := &Session{
		client:       cfg.Client,
		store:        cfg.Store,
		email:        cfg.Email,
		password:     cfg.Password,
		country:      cfg.Country,
		region:       cfg.Region,
		serverKeyHex: cfg.ServerPublicKey,
		minDelay:     defaultRequestDelay,
		counter:      NewRequestCounter(),
		testDir:      cfg.TestDir,
		nowFunc:      time.Now,
	}
	if s.client == nil {
		s.client = common.HTTPClient(time.Minute)
	}
	if s.region == "" {
		s.region = RegionForCountry(s.country)
	}
	s.baseURL = cfg.BaseURL
	if s.baseURL == "" {
		s.baseURL = regionBaseURLs[s.region]
		if s.baseURL == "" {
			s.baseURL = regionBaseURLs["com"]
		}
	}
	if s.serverKeyHex == "" {
		s.serverKeyHex = serverPublicKeyHex
	}
	if cfg.RequestDelay != 0 {
		s.SetRequestDelay(cfg.RequestDelay)
	}
	return s, nil
}

// SetRequestDelay sets the minimum delay enforced before every outbound
// call, clamped to [100ms, 5s].
func (s *Session) SetRequestDelay(d time.Duration) {
	if d < minRequestDelay {
		d = minRequestDelay
	}
	if d > maxRequestDelay {
		d = maxRequestDelay
	}
	s.mu.Lock()
	s.minDelay = d
	s.mu.Unlock()
}

// RequestDelay returns the currently enforced minimum inter-request delay.
func (s *Session) RequestDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minDelay
}

// SetTestDir points the file-replay adapter at a fixture directory.
func (s *Session) SetTestDir(dir string) {
	s.mu.Lock()
	s.testDir = dir
	s.mu.Unlock()
}

// TestDir returns the fixture directory for file-replay mode.
func (s *Session) TestDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testDir
}

// Counter exposes the trailing-window request counter.
func (s *Session) Counter() *RequestCounter {
	return s.counter
}

// RequestCounts returns the trailing-minute and trailing-hour request
// totals in one call.
func (s *Session) RequestCounts() (lastMinute, lastHour int) {
	return s.counter.LastMinute(), s.counter.LastHour()
}

// Email returns the account email.
func (s *Session) Email() string { return s.email }

// Country returns the account country code.
func (s *Session) Country() string { return s.country }

// Region returns the API region in use.
func (s *Session) Region() string { return s.region }

// Nickname returns the account nickname from the last login, if any.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// UserID returns the platform user identifier from the last login, if any.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// LoggedIn reports whether a usable token is held right now.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenValidLocked()
}

func (s *Session) tokenValidLocked() bool {
	return s.token != "" && s.nowFunc().Add(tokenRefreshMargin).Before(s.tokenExpiry)
}
