package session

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solixsync/solixsync/pkg/log"
	"github.com/solixsync/solixsync/pkg/tokenstore"
	"github.com/solixsync/solixsync/pkg/types"
)

// Authenticate ensures the session holds a valid token. With restart it
// discards the in-memory token and the on-disk cache and performs a fresh
// login; otherwise a still-valid cached login is adopted to skip the
// round-trip. It returns whether a fresh login was performed.
func (s *Session) Authenticate(ctx context.Context, restart bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticate(ctx, restart)
}

// authenticate must be called with s.mu held.
func (s *Session) authenticate(ctx context.Context, restart bool) (bool, error) {
	if restart {
		log.Ctx(ctx).DebugContext(ctx, "clearing cached login state")
		s.token = ""
		s.gtoken = ""
		s.tokenExpiry = time.Time{}
		s.fingerprint = ""
		if s.store != nil {
			if err := s.store.Delete(ctx, s.email); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to clear login cache", slog.Any("error", err))
			}
		}
	} else if s.store != nil {
		rec, err := s.store.Load(ctx, s.email)
		if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
			log.Ctx(ctx).WarnContext(ctx, "failed to read login cache", slog.Any("error", err))
		}
		if err == nil && rec.Email == s.email && rec.Valid(s.nowFunc(), tokenRefreshMargin) {
			log.Ctx(ctx).DebugContext(ctx, "restored login from cache",
				slog.Time("expiry", rec.ExpiresAt))
			s.token = rec.Token
			s.gtoken = rec.GToken
			s.userID = rec.UserID
			s.nickname = rec.Nickname
			s.tokenExpiry = rec.ExpiresAt
			s.fingerprint = s.store.Fingerprint(s.email)
			return false, nil
		}
	}

	if err := s.login(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// login performs the encrypted login call. Must be called with s.mu held.
func (s *Session) login(ctx context.Context) error {
	if s.email == "" || s.password == "" {
		return &types.AuthorizationError{Message: "missing email or password"}
	}

	// The retry flag is set before any login attempt and cleared only once
	// a non-login call succeeds; this bounds automatic re-authentication to
	// one per originating request.
	s.retryAttempt = true

	if s.keys == nil {
		keys, err := newSessionKeys(s.serverKeyHex)
		if err != nil {
			return err
		}
		s.keys = keys
	}

	encPassword, err := s.keys.encrypt(s.password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	now := s.nowFunc()
	_, offset := now.Zone()
	payload := map[string]any{
		"ab": s.country,
		"client_secret_info": map[string]any{
			"public_key": s.keys.publicHex,
		},
		"enc":         0,
		"email":       s.email,
		"password":    encPassword,
		"time_zone":   offset * 1000,
		"transaction": fmt.Sprintf("%d", now.UnixMilli()),
	}

	log.Ctx(ctx).DebugContext(ctx, "logging in", slog.String("region", s.region))
	data, err := s.doCall(ctx, "POST", loginEndpoint, payload, true)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "login failed", slog.Any("error", err))
		return err
	}

	token := types.GetString(data, "", "auth_token")
	if token == "" {
		return &types.AuthorizationError{Message: "login response missing auth token"}
	}
	userID := types.GetString(data, "", "user_id")

	s.token = token
	s.userID = userID
	s.nickname = types.GetString(data, "", "nick_name")
	s.gtoken = deriveGToken(userID)
	expires := types.GetFloat(data, 0, "token_expires_at")
	s.tokenExpiry = time.Unix(int64(expires), 0)

	log.Ctx(ctx).InfoContext(ctx, "login success",
		slog.String("nickname", s.nickname),
		slog.Time("expiry", s.tokenExpiry))

	if s.store != nil {
		rec := tokenstore.Record{
			Email:     s.email,
			UserID:    s.userID,
			Nickname:  s.nickname,
			Country:   s.country,
			Token:     s.token,
			GToken:    s.gtoken,
			ExpiresAt: s.tokenExpiry,
			SavedAt:   now,
		}
		if err := s.store.Save(ctx, s.email, rec); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to persist login cache", slog.Any("error", err))
		}
		s.fingerprint = s.store.Fingerprint(s.email)
	}
	return nil
}

// deriveGToken computes the session token the API expects alongside the
// bearer token: a fixed hash of the user identifier.
func deriveGToken(userID string) string {
	sum := md5.Sum([]byte(userID))
	return hex.EncodeToString(sum[:])
}
