package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/solixsync/solixsync/pkg/types"
)

// FixtureName returns the deterministic fixture file name for an endpoint
// and optional entity ID: the last endpoint path segment, an underscore and
// the ID, plus ".json".
func FixtureName(endpoint, entityID string) string {
	name := path.Base(strings.Trim(endpoint, "/"))
	if entityID != "" {
		name += "_" + entityID
	}
	return name + ".json"
}

// FromFile substitutes a recorded JSON fixture for a live call. Fixtures may
// be stored either as the raw data object or wrapped in the usual
// {code,msg,data} envelope.
func (s *Session) FromFile(endpoint, entityID string) (map[string]any, error) {
	s.mu.Lock()
	dir := s.testDir
	s.mu.Unlock()
	if dir == "" {
		return nil, fmt.Errorf("file replay requested but no test directory configured")
	}

	name := FixtureName(endpoint, entityID)
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, &types.CommunicationError{Endpoint: endpoint,
			Err: fmt.Errorf("failed to read fixture %s: %w", name, err)}
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &types.CommunicationError{Endpoint: endpoint,
			Err: fmt.Errorf("failed to decode fixture %s: %w", name, err)}
	}

	// Envelope form: honor the embedded application code like a live call.
	if _, hasCode := raw["code"]; hasCode {
		code := types.GetInt(raw, 0, "code")
		if code != apiCodeSuccess {
			return nil, &types.APIError{Code: code, Message: types.GetString(raw, "", "msg")}
		}
		return types.GetMap(raw, "data"), nil
	}
	return raw, nil
}

// Fetch routes to either a live Request or the file-replay adapter,
// letting poll cycles switch transparently.
func (s *Session) Fetch(ctx context.Context, method, endpoint string, payload map[string]any, fromFile bool, entityID string) (map[string]any, error) {
	if fromFile {
		return s.FromFile(endpoint, entityID)
	}
	return s.Request(ctx, method, endpoint, payload)
}
