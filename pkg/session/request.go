package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/types"
)

// Application status codes embedded in HTTP 200 responses.
const (
	apiCodeSuccess     = 0
	apiCodeUnauthorized = 401
	apiCodeKickedOut    = 403
	apiCodeRateLimited  = 429
	// apiCodeRetryBudget is the server-side lockout after repeated failed
	// logins. It is explicitly non-retriable: retrying extends the lockout.
	apiCodeRetryBudget = 100053
)

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Request performs an authenticated API call and returns the decoded data
// object. It re-checks token freshness first, enforces the minimum
// inter-request delay, and on HTTP 401/403 performs at most one automatic
// re-authentication-and-replay per originating call. Callers must not issue
// overlapping poll cycles on one session; token state is locked but cache
// merge ordering is theirs to serialize.
func (s *Session) Request(ctx context.Context, method, endpoint string, payload map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doCall(ctx, method, endpoint, payload, false)
}

// doCall must be called with s.mu held.
func (s *Session) doCall(ctx context.Context, method, endpoint string, payload map[string]any, isLogin bool) (map[string]any, error) {
	if !isLogin {
		if err := s.ensureFreshToken(ctx); err != nil {
			return nil, err
		}
	}

	// Two passes at most: the original call plus one replay after an
	// automatic re-authentication.
	for attempt := 0; ; attempt++ {
		if err := s.throttle(ctx); err != nil {
			return nil, &types.CommunicationError{Endpoint: endpoint, Err: err}
		}

		req, err := s.newRequest(ctx, method, endpoint, payload, isLogin)
		if err != nil {
			return nil, err
		}

		s.counter.Add(s.nowFunc())
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, &types.CommunicationError{Endpoint: endpoint, Err: err}
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &types.CommunicationError{Endpoint: endpoint, Err: readErr}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &types.RateLimitError{
				Code:       resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				LastMinute: s.counter.LastMinute(),
				LastHour:   s.counter.LastHour(),
			}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			retry, err := s.handleUnauthorized(ctx, endpoint, resp.StatusCode, "", isLogin, attempt)
			if err != nil {
				return nil, err
			}
			if retry {
				continue
			}
		case resp.StatusCode != http.StatusOK:
			return nil, &types.APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}

		var ar apiResponse
		if err := json.Unmarshal(body, &ar); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to decode api response",
				slog.String("endpoint", endpoint), slog.Any("error", err))
			return nil, &types.CommunicationError{Endpoint: endpoint, Err: err}
		}

		switch ar.Code {
		case apiCodeSuccess:
			// fall through below
		case apiCodeUnauthorized, apiCodeKickedOut:
			retry, err := s.handleUnauthorized(ctx, endpoint, ar.Code, ar.Msg, isLogin, attempt)
			if err != nil {
				return nil, err
			}
			if retry {
				continue
			}
		case apiCodeRateLimited:
			return nil, &types.RateLimitError{
				Code:       ar.Code,
				Message:    ar.Msg,
				LastMinute: s.counter.LastMinute(),
				LastHour:   s.counter.LastHour(),
			}
		case apiCodeRetryBudget:
			return nil, &types.RetryBudgetError{Code: ar.Code, Message: ar.Msg}
		default:
			log.Ctx(ctx).DebugContext(ctx, "api error",
				slog.String("endpoint", endpoint),
				slog.Int("code", ar.Code),
				slog.String("msg", ar.Msg))
			return nil, &types.APIError{Code: ar.Code, Message: ar.Msg}
		}

		var data map[string]any
		if len(ar.Data) > 0 && !bytes.Equal(ar.Data, []byte("null")) {
			if err := json.Unmarshal(ar.Data, &data); err != nil {
				return nil, &types.CommunicationError{Endpoint: endpoint,
					Err: fmt.Errorf("failed to decode data object: %w", err)}
			}
		}
		if !isLogin {
			// A non-login call succeeded; re-arm automatic re-auth.
			s.retryAttempt = false
		}
		return data, nil
	}
}

// handleUnauthorized decides whether an authorization failure may trigger
// the single automatic re-authentication-and-replay.
func (s *Session) handleUnauthorized(ctx context.Context, endpoint string, code int, msg string, isLogin bool, attempt int) (bool, error) {
	if isLogin || s.retryAttempt || attempt > 0 {
		return false, &types.AuthorizationError{Code: code, Message: msg}
	}
	log.Ctx(ctx).InfoContext(ctx, "token rejected, re-authenticating",
		slog.String("endpoint", endpoint), slog.Int("code", code))
	if _, err := s.authenticate(ctx, true); err != nil {
		return false, err
	}
	return true, nil
}

// ensureFreshToken re-authenticates when the token is missing, close to
// expiry, or when the on-disk login cache changed out from under the
// in-memory token. Must be called with s.mu held.
func (s *Session) ensureFreshToken(ctx context.Context) error {
	if s.store != nil && s.fingerprint != "" && s.fingerprint != s.store.Fingerprint(s.email) {
		log.Ctx(ctx).DebugContext(ctx, "login cache changed on disk, re-syncing")
		_, err := s.authenticate(ctx, false)
		return err
	}
	if !s.tokenValidLocked() {
		log.Ctx(ctx).DebugContext(ctx, "token missing or expiring, re-authenticating",
			slog.Time("expiry", s.tokenExpiry))
		_, err := s.authenticate(ctx, false)
		return err
	}
	return nil
}

// throttle waits out the configured minimum inter-request delay. The wait is
// a suspension point: it aborts when the context is canceled.
func (s *Session) throttle(ctx context.Context) error {
	wait := s.minDelay - time.Since(s.lastRequest)
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	s.lastRequest = time.Now()
	return nil
}

func (s *Session) newRequest(ctx context.Context, method, endpoint string, payload map[string]any, isLogin bool) (*http.Request, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Country", s.country)
	req.Header.Set("Model-Type", "DESKTOP")
	req.Header.Set("App-Name", "anker_power")
	req.Header.Set("Os-Type", "android")
	if !isLogin {
		req.Header.Set("X-Auth-Token", s.token)
		req.Header.Set("Gtoken", s.gtoken)
	}
	return req, nil
}
